package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/repository"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "JARFLOW_"

// FileNames are searched, in order, by [Find].
var FileNames = []string{"jarflow.toml", "jarflow.yaml", "jarflow.yml"}

// Find returns the first config file in dir, or "" when there is none.
func Find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load builds the effective configuration: defaults, then the file at path
// (searched in the working directory when empty), then a .env file, then
// JARFLOW_* variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = Find(".")
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}

	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromFile reads a TOML or YAML file. The format follows the extension.
// Unset keys are left at their zero value; callers merge over [Default].
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config file")
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	return nil
}

// LoadFromEnv applies JARFLOW_* overrides.
func (c *Config) LoadFromEnv() error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + name)); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := strings.TrimSpace(os.Getenv(EnvPrefix + name))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s%s", EnvPrefix, name)
		}
		*dst = n
		return nil
	}
	flag := func(name string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + name)); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	str("LIB_DIR", &c.LibDir)
	str("EXCLUSION_POLICY", &c.ExclusionPolicy)
	flag("REDIRECT_CONFLICTS", &c.RedirectConflicts)
	for name, dst := range map[string]*int{
		"PARALLELISM": &c.Parallelism,
		"CONCURRENCY": &c.Concurrency,
		"MAX_DEPTH":   &c.MaxDepth,
		"REDIS_DB":    &c.Cache.RedisDB,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + "BATCH_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %sBATCH_TIMEOUT", EnvPrefix)
		}
		c.BatchTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + "REPOSITORIES")); v != "" {
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.Repositories = append(c.Repositories, repository.New(u, ""))
			}
		}
	}

	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_DIR", &c.Cache.Dir)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.Password)
	str("CACHE_SCOPE", &c.Cache.Scope)

	str("MIRROR_ENDPOINT", &c.Mirror.Endpoint)
	str("MIRROR_REGION", &c.Mirror.Region)
	str("MIRROR_ACCESS_KEY", &c.Mirror.AccessKey)
	str("MIRROR_SECRET_KEY", &c.Mirror.SecretKey)
	str("MIRROR_BUCKET", &c.Mirror.Bucket)
	str("MIRROR_PREFIX", &c.Mirror.Prefix)
	flag("MIRROR_USE_SSL", &c.Mirror.UseSSL)

	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_DIR", &c.Store.Dir)
	str("MONGO_URI", &c.Store.MongoURI)
	str("MONGO_DATABASE", &c.Store.Database)
	return nil
}
