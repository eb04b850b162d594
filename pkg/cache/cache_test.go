package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/jarflow/pkg/coord"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache should never hit")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set(ctx, "pom", []byte("<project/>"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "pom")
	if err != nil || !hit {
		t.Fatalf("Get = hit %v, err %v", hit, err)
	}
	if string(data) != "<project/>" {
		t.Errorf("Get data = %q", data)
	}

	if err := c.Delete(ctx, "pom"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "pom"); hit {
		t.Error("expected miss after Delete")
	}
	if err := c.Delete(ctx, "pom"); err != nil {
		t.Errorf("second Delete should be a no-op: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("cache dir should be empty, has %d entries", len(entries))
	}
}

func TestLRUCache(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2, nil)

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	_ = c.Set(ctx, "c", []byte("3"), 0)

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("oldest entry should have been evicted")
	}
	if data, hit, _ := c.Get(ctx, "c"); !hit || string(data) != "3" {
		t.Errorf("Get(c) = %q, %v", data, hit)
	}
}

func TestLRUCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	backing, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = backing.Set(ctx, "pom", []byte("doc"), time.Hour)

	c := NewLRUCache(8, backing)
	data, hit, err := c.Get(ctx, "pom")
	if err != nil || !hit || string(data) != "doc" {
		t.Fatalf("read-through Get = %q, %v, %v", data, hit, err)
	}
	if c.Len() != 1 {
		t.Errorf("entry should be promoted into memory, Len = %d", c.Len())
	}

	_ = c.Set(ctx, "other", []byte("x"), time.Hour)
	if _, hit, _ := backing.Get(ctx, "other"); !hit {
		t.Error("Set should write through to the backing cache")
	}

	_ = c.Delete(ctx, "pom")
	if _, hit, _ := backing.Get(ctx, "pom"); hit {
		t.Error("Delete should reach the backing cache")
	}
}

func TestLRUCacheClear(t *testing.T) {
	ctx := context.Background()
	backing, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewLRUCache(8, backing)
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	n, err := c.Clear(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Clear = %d, %v, want 2", n, err)
	}
	if c.Len() != 0 {
		t.Errorf("memory should be purged, Len = %d", c.Len())
	}
	if _, hit, _ := backing.Get(ctx, "a"); hit {
		t.Error("Clear should reach the backing cache")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(4, nil)
	_ = c.Set(ctx, "k", []byte("v"), time.Nanosecond)
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired in-memory entry should miss")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	d1 := k.DescriptorKey("https://repo1/", "g:a:1")
	d2 := k.DescriptorKey("https://repo2/", "g:a:1")
	if d1 == d2 {
		t.Error("DescriptorKey should depend on the repository")
	}
	if !strings.HasPrefix(d1, "pom:") {
		t.Errorf("DescriptorKey prefix: %q", d1)
	}
	if d1 != k.DescriptorKey("https://repo1/", "g:a:1") {
		t.Error("DescriptorKey should be stable")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "ci:")
	got := scoped.DescriptorKey("r", "g:a:1")
	if !strings.HasPrefix(got, "ci:pom:") {
		t.Errorf("DescriptorKey = %q", got)
	}
	if got != "ci:"+NewDefaultKeyer().DescriptorKey("r", "g:a:1") {
		t.Errorf("DescriptorKey = %q, want the default key with a prefix", got)
	}
}

func TestTTLFor(t *testing.T) {
	tests := []struct {
		version string
		want    time.Duration
	}{
		{"1.0-SNAPSHOT", TTLSnapshot},
		{"1.0", TTLDescriptor},
		{"SNAPSHOT", TTLDescriptor},
		{"1.0-snapshot", TTLDescriptor},
	}
	for _, tt := range tests {
		if got := TTLFor(coord.New("g", "a", tt.version)); got != tt.want {
			t.Errorf("TTLFor(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should be true for wrapped error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapped error should unwrap to ErrNetwork")
	}
	if IsRetryable(ErrNotFound) {
		t.Error("plain errors are not retryable")
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	fast := RetryPolicy{Attempts: 3, Delay: time.Millisecond}

	calls := 0
	err := Retry(ctx, fast, func() error {
		calls++
		if calls < 3 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("Retry = %v after %d calls", err, calls)
	}

	calls = 0
	err = Retry(ctx, fast, func() error {
		calls++
		return ErrNotFound
	})
	if err != ErrNotFound || calls != 1 {
		t.Errorf("non-retryable: err %v, calls %d", err, calls)
	}

	calls = 0
	err = Retry(ctx, fast, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !errors.Is(err, ErrNetwork) || calls != 3 {
		t.Errorf("exhausted: err %v, calls %d", err, calls)
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryPolicy, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Retry = %v, want context.Canceled", err)
	}
}
