package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SqliteBackend = "sqlite"
	FileBackend   = "file"
	MemoryBackend = "memory"
)

const (
	DefaultApiUrl         = "http://localhost:8000/api/v1"
	DefaultRequestTimeout = 10 * time.Second
	DefaultGCTime         = 5 * time.Minute
)

type Configuration struct {
	// ApiUrl is the base URL of the wiki REST API, including the version prefix, e.g.
	// http://localhost:8000/api/v1.
	ApiUrl *url.URL
	// RequestTimeout aborts any request to the API that takes longer than this.
	RequestTimeout time.Duration
	// Addr is the address the frontend server listens on.
	Addr string
	// Debug, if true, lowers the log level to debug and logs every request sent to the API.
	Debug bool
	// StorageBackend selects where the access token is persisted: "sqlite", "file" or "memory". The memory
	// backend forgets the token on exit.
	StorageBackend string
	// DbUrl is the path to the SQLite database file used by the sqlite storage backend.
	DbUrl            string
	MigrationsFolder string
	// FsRoot is the directory used by the file storage backend. Each stored key is a file.
	FsRoot string
	// SessionKey signs the cookies holding flash notifications. Must be 32 characters long.
	SessionKey string
	// GCTime is how long an unused cache entry is kept before being discarded.
	GCTime  time.Duration
	Metrics bool
}

var (
	ErrInvalidBackend    = errors.New("unknown storage backend")
	ErrInvalidSessionKey = errors.New("session key must be 32 characters long")
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultApiUrl)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("addr", ":8080")
	v.SetDefault("debug", false)
	v.SetDefault("storage_backend", SqliteBackend)
	v.SetDefault("db_url", "wikifront.db")
	v.SetDefault("migrations_folder", "migrations")
	v.SetDefault("fs_root", "wikifront-data")
	v.SetDefault("session_key", "u46IpCV9y5Vlur8YvODJEhgOY8m9JVE4")
	v.SetDefault("gc_time", DefaultGCTime)
	v.SetDefault("metrics", false)
}

// ReadConfig loads the configuration from wikifront.yaml, if present, and from WIKIFRONT_ prefixed
// environment variables, which take precedence over the file.
func ReadConfig() (Configuration, error) {
	return Load(viper.New(), "")
}

// Load reads the configuration into v, which may already have command line flags bound to it. If path is
// empty, wikifront.yaml is looked up in the working directory and in the user configuration directory, and
// may be missing; otherwise the file at path must exist.
func Load(v *viper.Viper, path string) (Configuration, error) {
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wikifront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(xdg, "wikifront"))
		}
	}
	v.SetEnvPrefix("wikifront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Configuration{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Configuration out of an already populated viper instance.
func FromViper(v *viper.Viper) (Configuration, error) {
	apiUrl, err := url.Parse(strings.TrimSuffix(v.GetString("api_url"), "/"))
	if err != nil {
		return Configuration{}, fmt.Errorf("invalid api url: %w", err)
	}

	cfg := Configuration{
		ApiUrl:           apiUrl,
		RequestTimeout:   v.GetDuration("request_timeout"),
		Addr:             v.GetString("addr"),
		Debug:            v.GetBool("debug"),
		StorageBackend:   v.GetString("storage_backend"),
		DbUrl:            v.GetString("db_url"),
		MigrationsFolder: v.GetString("migrations_folder"),
		FsRoot:           v.GetString("fs_root"),
		SessionKey:       v.GetString("session_key"),
		GCTime:           v.GetDuration("gc_time"),
		Metrics:          v.GetBool("metrics"),
	}

	switch cfg.StorageBackend {
	case SqliteBackend, FileBackend, MemoryBackend:
	default:
		return cfg, fmt.Errorf("%w: %q", ErrInvalidBackend, cfg.StorageBackend)
	}
	if len(cfg.SessionKey) != 32 {
		return cfg, ErrInvalidSessionKey
	}
	return cfg, nil
}
