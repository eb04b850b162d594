// Package mirror publishes installed artifacts to an S3-compatible bucket
// in Maven repository layout, so the bucket can itself be used as a
// repository by other builds.
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/matzehuels/jarflow/pkg/cache"
	"github.com/matzehuels/jarflow/pkg/coord"
)

// Config configures a [Mirror].
type Config struct {
	Endpoint  string `toml:"endpoint" yaml:"endpoint"`
	Region    string `toml:"region" yaml:"region"`
	AccessKey string `toml:"access_key" yaml:"access_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
	Bucket    string `toml:"bucket" yaml:"bucket"`
	Prefix    string `toml:"prefix" yaml:"prefix"` // key prefix, e.g. "maven2"
	UseSSL    bool   `toml:"use_ssl" yaml:"use_ssl"`
}

// Enabled reports whether a mirror is configured.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Endpoint) != "" }

// Mirror uploads archives and descriptors to a bucket.
type Mirror struct {
	client *minio.Client
	bucket string
	region string
	prefix string
	retry  cache.RetryPolicy
	logger *log.Logger

	initOnce sync.Once
	initErr  error
}

// New validates cfg and creates the client. No request is made until the
// first upload.
func New(cfg Config, logger *log.Logger) (*Mirror, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("mirror endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("mirror access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("mirror bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	if logger == nil {
		logger = log.Default()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &Mirror{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		retry:  cache.DefaultRetryPolicy,
		logger: logger,
	}, nil
}

// Bucket returns the target bucket name.
func (m *Mirror) Bucket() string { return m.bucket }

// Key returns the object key of c's file with extension ext.
func (m *Mirror) Key(c coord.Coordinate, ext string) string {
	if m.prefix == "" {
		return c.Path(ext)
	}
	return m.prefix + "/" + c.Path(ext)
}

func (m *Mirror) ensureBucket(ctx context.Context) error {
	m.initOnce.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.initErr = err
			return
		}
		if exists {
			return
		}
		m.initErr = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region})
	})
	return m.initErr
}

// PublishArchive uploads the archive at path for c. An object of the same
// size already in the bucket is left alone. It returns the object key.
func (m *Mirror) PublishArchive(ctx context.Context, c coord.Coordinate, path string) (string, error) {
	if err := m.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	key := m.Key(c, "jar")
	if info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err == nil && info.Size == st.Size() {
		m.logger.Debug("mirror up to date", "key", key)
		return key, nil
	}

	err = cache.Retry(ctx, m.retry, func() error {
		_, err := m.client.FPutObject(ctx, m.bucket, key, path, minio.PutObjectOptions{
			ContentType: "application/java-archive",
		})
		return classify(err)
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	m.logger.Debug("mirrored", "key", key, "bucket", m.bucket)
	return key, nil
}

// PublishDescriptor uploads a descriptor document for c.
func (m *Mirror) PublishDescriptor(ctx context.Context, c coord.Coordinate, data []byte) (string, error) {
	if err := m.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}
	key := m.Key(c, "pom")
	err := cache.Retry(ctx, m.retry, func() error {
		_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/xml",
		})
		return classify(err)
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// Has reports whether c's archive is in the bucket.
func (m *Mirror) Has(ctx context.Context, c coord.Coordinate) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, m.Key(c, "jar"), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if code := minio.ToErrorResponse(err).Code; code == "NoSuchKey" || code == "NoSuchBucket" {
		return false, nil
	}
	return false, err
}

// classify marks server-side and transport failures as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == 0 || resp.StatusCode >= 500 {
		return cache.Retryable(err)
	}
	return err
}
