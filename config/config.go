package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG subdirectories.
const AppName = "vaultimport"

// Store backends.
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// Environment variables.
const (
	EnvMasterSecret    = "VAULTIMPORT_MASTER_SECRET"
	EnvModelHost       = "VAULTIMPORT_MODEL_HOST"
	EnvModel           = "VAULTIMPORT_MODEL"
	EnvAPIToken        = "VAULTIMPORT_API_TOKEN"
	EnvMaxChunkChars   = "VAULTIMPORT_MAX_CHUNK_CHARS"
	EnvMaxAttempts     = "VAULTIMPORT_MAX_ATTEMPTS"
	EnvChunkTimeout    = "VAULTIMPORT_CHUNK_TIMEOUT"
	EnvDBPath          = "VAULTIMPORT_DB_PATH"
	EnvStore           = "VAULTIMPORT_STORE"
	EnvListenAddr      = "VAULTIMPORT_LISTEN_ADDR"
	EnvPreferDirectCSV = "VAULTIMPORT_PREFER_DIRECT_CSV"
	EnvPoolSize        = "VAULTIMPORT_POOL_SIZE"
)

const (
	DefaultModelHost     = "http://localhost:11434/v1"
	DefaultModel         = "qwen2.5:3b"
	DefaultListenAddr    = "127.0.0.1:8080"
	DefaultMaxChunkChars = 6000
	DefaultMaxAttempts   = 1
)

// Config holds the resolved process configuration.
type Config struct {
	MasterSecret    string        `yaml:"-"`
	ModelHost       string        `yaml:"modelHost,omitempty"`
	Model           string        `yaml:"model,omitempty"`
	APIToken        string        `yaml:"apiToken,omitempty"`
	MaxChunkChars   int           `yaml:"maxChunkChars,omitempty"`
	MaxAttempts     int           `yaml:"maxAttempts,omitempty"`
	ChunkTimeout    time.Duration `yaml:"chunkTimeout,omitempty"`
	Store           string        `yaml:"store,omitempty"`
	DBPath          string        `yaml:"dbPath,omitempty"`
	ListenAddr      string        `yaml:"listenAddr,omitempty"`
	PreferDirectCSV bool          `yaml:"preferDirectCSV,omitempty"`
	PoolSize        int           `yaml:"poolSize,omitempty"`
}

// Default returns a Config holding the built-in defaults.
// PoolSize zero lets the pipeline pick its own default.
func Default() *Config {
	return &Config{
		ModelHost:     DefaultModelHost,
		Model:         DefaultModel,
		MaxChunkChars: DefaultMaxChunkChars,
		MaxAttempts:   DefaultMaxAttempts,
		Store:         StoreBadger,
		DBPath:        DefaultDBPath(StoreBadger),
		ListenAddr:    DefaultListenAddr,
	}
}

// DataDir returns the XDG data directory for vaultimport.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigDir returns the XDG config directory for vaultimport.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultConfigFile returns the path of the YAML file read when none is named.
func DefaultConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultDBPath returns the default database location for store.
// Badger uses a directory, SQLite a single file.
func DefaultDBPath(store string) string {
	if store == StoreSQLite {
		return filepath.Join(DataDir(), "credentials.db")
	}
	return filepath.Join(DataDir(), "credentials")
}

// Load resolves the configuration.
// path names a YAML file; if empty the default file is used when present.
// An explicitly named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile()
	}
	dbPathSet, err := cfg.loadFile(path)
	if err != nil && (explicit || !errors.Is(err, ErrConfigNotFound)) {
		return nil, err
	}

	envDBPath, err := cfg.applyEnv()
	if err != nil {
		return nil, err
	}

	// A store switch without an explicit path moves to that store's default location
	if !dbPathSet && !envDBPath {
		cfg.DBPath = DefaultDBPath(cfg.Store)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path. It reports whether the file set DBPath.
func (c *Config) loadFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return false, err
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}

	overlayString(&c.ModelHost, file.ModelHost)
	overlayString(&c.Model, file.Model)
	overlayString(&c.APIToken, file.APIToken)
	overlayString(&c.Store, file.Store)
	overlayString(&c.DBPath, file.DBPath)
	overlayString(&c.ListenAddr, file.ListenAddr)
	if file.MaxChunkChars > 0 {
		c.MaxChunkChars = file.MaxChunkChars
	}
	if file.MaxAttempts > 0 {
		c.MaxAttempts = file.MaxAttempts
	}
	if file.ChunkTimeout > 0 {
		c.ChunkTimeout = file.ChunkTimeout
	}
	if file.PoolSize > 0 {
		c.PoolSize = file.PoolSize
	}
	c.PreferDirectCSV = c.PreferDirectCSV || file.PreferDirectCSV

	return file.DBPath != "", nil
}

// applyEnv overlays VAULTIMPORT_* variables. It reports whether the DB path was set.
func (c *Config) applyEnv() (bool, error) {
	c.MasterSecret = os.Getenv(EnvMasterSecret)

	overlayEnv(&c.ModelHost, EnvModelHost)
	overlayEnv(&c.Model, EnvModel)
	overlayEnv(&c.APIToken, EnvAPIToken)
	overlayEnv(&c.Store, EnvStore)
	overlayEnv(&c.ListenAddr, EnvListenAddr)
	dbPathSet := overlayEnv(&c.DBPath, EnvDBPath)

	for name, dst := range map[string]*int{
		EnvMaxChunkChars: &c.MaxChunkChars,
		EnvMaxAttempts:   &c.MaxAttempts,
		EnvPoolSize:      &c.PoolSize,
	} {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return false, fmt.Errorf("%w: %s=%q must be a positive integer", ErrInvalidValue, name, v)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv(EnvChunkTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return false, fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, EnvChunkTimeout, v, err)
		}
		c.ChunkTimeout = d
	}

	if v, ok := os.LookupEnv(EnvPreferDirectCSV); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, EnvPreferDirectCSV, v, err)
		}
		c.PreferDirectCSV = b
	}

	return dbPathSet, nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if c.MasterSecret == "" {
		return ErrMasterSecretMissing
	}
	switch c.Store {
	case StoreBadger, StoreSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Store)
	}
	if c.ChunkTimeout < 0 {
		return fmt.Errorf("%w: chunk timeout must be non-negative", ErrInvalidValue)
	}
	return nil
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayEnv(dst *string, name string) bool {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return false
	}
	*dst = strings.TrimSpace(v)
	return true
}
