package mirror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/jarflow/pkg/cache"
	"github.com/matzehuels/jarflow/pkg/coord"
)

func validConfig() Config {
	return Config{
		Endpoint:  "localhost:9000",
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "artifacts",
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint = " " }},
		{"missing access key", func(c *Config) { c.AccessKey = "" }},
		{"missing secret key", func(c *Config) { c.SecretKey = "" }},
		{"missing bucket", func(c *Config) { c.Bucket = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, nil)
			assert.Error(t, err)
		})
	}

	m, err := New(validConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "artifacts", m.Bucket())
	assert.Equal(t, "us-east-1", m.region)
}

func TestKey(t *testing.T) {
	c := coord.New("com.google.guava", "guava", "32.1.3-jre")

	m, err := New(validConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "com/google/guava/guava/32.1.3-jre/guava-32.1.3-jre.jar", m.Key(c, "jar"))

	cfg := validConfig()
	cfg.Prefix = "/maven2/"
	m, err = New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "maven2/com/google/guava/guava/32.1.3-jre/guava-32.1.3-jre.pom", m.Key(c, "pom"))
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, validConfig().Enabled())
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.True(t, cache.IsRetryable(classify(errors.New("connection reset"))))
	assert.True(t, cache.IsRetryable(classify(minio.ErrorResponse{StatusCode: 503, Code: "SlowDown"})))
	assert.False(t, cache.IsRetryable(classify(minio.ErrorResponse{StatusCode: 403, Code: "AccessDenied"})))
}

// s3Stub answers object HEAD requests for the keys in objects.
func s3Stub(t *testing.T, objects map[string]bool) *Mirror {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/artifacts/")
		switch {
		case r.Method != http.MethodHead:
			w.WriteHeader(http.StatusNotImplemented)
		case objects[key]:
			w.Header().Set("Content-Length", "3")
			w.Header().Set("Content-Type", "application/java-archive")
			w.Header().Set("ETag", `"abc"`)
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := validConfig()
	cfg.Endpoint = strings.TrimPrefix(srv.URL, "http://")
	m, err := New(cfg, nil)
	require.NoError(t, err)
	return m
}

func TestHas(t *testing.T) {
	guava := coord.New("com.google.guava", "guava", "32.1.3-jre")
	m := s3Stub(t, map[string]bool{"com/google/guava/guava/32.1.3-jre/guava-32.1.3-jre.jar": true})

	ok, err := m.Has(context.Background(), guava)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Has(context.Background(), coord.New("com.google.guava", "guava", "33.0.0-jre"))
	require.NoError(t, err)
	assert.False(t, ok)
}
