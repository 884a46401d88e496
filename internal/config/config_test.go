package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if s := cfg.ApiUrl.String(); s != DefaultApiUrl {
		t.Errorf("expected api url %s, got %s", DefaultApiUrl, s)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.StorageBackend != SqliteBackend {
		t.Errorf("expected sqlite backend, got %s", cfg.StorageBackend)
	}
}

func TestFromViper(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  any
		err  error
	}{
		{"trailing slash is removed", "api_url", "http://wiki.test/api/v1/", nil},
		{"file backend", "storage_backend", FileBackend, nil},
		{"memory backend", "storage_backend", MemoryBackend, nil},
		{"unknown backend", "storage_backend", "redis", ErrInvalidBackend},
		{"short session key", "session_key", "short", ErrInvalidSessionKey},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(c.key, c.val)

			cfg, err := FromViper(v)
			if c.err != nil {
				if !errors.Is(err, c.err) {
					t.Errorf("expected error %s, got %v", c.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal("unexpected error:", err)
			}
			if c.key == "api_url" && cfg.ApiUrl.String() != "http://wiki.test/api/v1" {
				t.Errorf("unexpected api url %s", cfg.ApiUrl)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wikifront.yaml")
	content := "api_url: http://wiki.test/api/v1\nstorage_backend: memory\naddr: \":8081\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WIKIFRONT_ADDR", ":9090")

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if cfg.ApiUrl.String() != "http://wiki.test/api/v1" {
		t.Errorf("unexpected api url %s", cfg.ApiUrl)
	}
	if cfg.StorageBackend != MemoryBackend {
		t.Errorf("expected memory backend, got %s", cfg.StorageBackend)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("expected the environment to override the file, got addr %s", cfg.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected an error for a missing config file")
	}
}
