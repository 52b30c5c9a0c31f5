// Package config loads service configuration.
//
// Sources are applied in order, later ones winning: built-in defaults, an
// optional YAML file, a .env file and finally the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Portal   PortalConfig   `yaml:"portal"`
	Download DownloadConfig `yaml:"download"`
	Extract  ExtractConfig  `yaml:"extract"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxSessions     int           `yaml:"max_sessions"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// PortalConfig holds browser and portal settings.
type PortalConfig struct {
	BaseURL        string        `yaml:"base_url"`
	ChromePath     string        `yaml:"chrome_path"`
	NoSandbox      bool          `yaml:"no_sandbox"`
	Headful        bool          `yaml:"headful"`
	AutoDownload   bool          `yaml:"auto_download"`
	DebugDir       string        `yaml:"debug_dir"`
	StepTimeout    time.Duration `yaml:"step_timeout"`
	AccountTimeout time.Duration `yaml:"account_timeout"`
}

// DownloadConfig holds download directory and watcher settings.
type DownloadConfig struct {
	Dir          string        `yaml:"dir"`
	Timeout      time.Duration `yaml:"timeout"`
	Settle       time.Duration `yaml:"settle"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ExtractConfig selects the text extraction engine.
type ExtractConfig struct {
	Engine string `yaml:"engine"` // native or mupdf
}

// CleanupConfig holds deferred deletion settings.
type CleanupConfig struct {
	Store       string        `yaml:"store"` // memory or redis
	Delay       time.Duration `yaml:"delay"`
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
	Redis       RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    6 * time.Minute,
			RequestTimeout:  5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxSessions:     2,
			CORSOrigins:     []string{"*"},
		},
		Portal: PortalConfig{
			BaseURL:        "https://www.eneldistribuicao.com.br",
			StepTimeout:    45 * time.Second,
			AccountTimeout: 30 * time.Second,
		},
		Download: DownloadConfig{
			Dir:          "/tmp/billtext_downloads",
			Timeout:      120 * time.Second,
			Settle:       15 * time.Second,
			PollInterval: 3 * time.Second,
		},
		Extract: ExtractConfig{
			Engine: "native",
		},
		Cleanup: CleanupConfig{
			Store:       "memory",
			Delay:       5 * time.Second,
			Interval:    time.Second,
			MaxAttempts: 5,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "billtext:cleanup:",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the YAML file at path (skipped when empty),
// then the given .env files (".env" when none is given, ignored if
// missing), then the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Variables already set in the environment take precedence.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// env reads variables and collects parse failures.
type env struct {
	errs []error
}

func (e *env) strVar(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (e *env) intVar(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q: not an integer", key, v))
		return
	}
	*dst = n
}

func (e *env) boolVar(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q: not a boolean", key, v))
		return
	}
	*dst = b
}

// dur accepts Go durations ("90s") and bare numbers of seconds ("90").
func (e *env) durVar(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q: not a duration", key, v))
		return
	}
	*dst = d
}

func (e *env) listVar(key string, dst *[]string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func applyEnvOverrides(cfg *Config) error {
	e := &env{}

	e.strVar("HOST", &cfg.Server.Host)
	e.intVar("PORT", &cfg.Server.Port)
	e.durVar("REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	e.intVar("MAX_SESSIONS", &cfg.Server.MaxSessions)
	e.listVar("CORS_ORIGINS", &cfg.Server.CORSOrigins)

	e.strVar("PORTAL_BASE_URL", &cfg.Portal.BaseURL)
	e.strVar("CHROME_PATH", &cfg.Portal.ChromePath)
	e.boolVar("CHROME_NO_SANDBOX", &cfg.Portal.NoSandbox)
	e.boolVar("CHROME_HEADFUL", &cfg.Portal.Headful)
	e.boolVar("CHROME_AUTO_DOWNLOAD", &cfg.Portal.AutoDownload)
	e.strVar("DEBUG_DIR", &cfg.Portal.DebugDir)
	e.durVar("STEP_TIMEOUT", &cfg.Portal.StepTimeout)

	e.strVar("DOWNLOAD_DIR", &cfg.Download.Dir)
	e.durVar("DOWNLOAD_TIMEOUT", &cfg.Download.Timeout)
	e.durVar("DOWNLOAD_SETTLE", &cfg.Download.Settle)

	e.strVar("EXTRACT_ENGINE", &cfg.Extract.Engine)

	e.strVar("CLEANUP_STORE", &cfg.Cleanup.Store)
	e.durVar("CLEANUP_DELAY", &cfg.Cleanup.Delay)
	e.strVar("REDIS_ADDR", &cfg.Cleanup.Redis.Addr)
	e.strVar("REDIS_PASSWORD", &cfg.Cleanup.Redis.Password)
	e.intVar("REDIS_DB", &cfg.Cleanup.Redis.DB)

	e.strVar("LOG_LEVEL", &cfg.Log.Level)
	e.strVar("LOG_FORMAT", &cfg.Log.Format)

	if len(e.errs) > 0 {
		return fmt.Errorf("environment: %w", errors.Join(e.errs...))
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must not be negative")
	}
	if c.Download.Dir == "" {
		return fmt.Errorf("download dir must be set")
	}
	if c.Download.Timeout <= 0 {
		return fmt.Errorf("download timeout must be positive")
	}
	if c.Download.PollInterval <= 0 {
		return fmt.Errorf("download poll interval must be positive")
	}
	if c.Portal.StepTimeout <= 0 || c.Portal.AccountTimeout <= 0 {
		return fmt.Errorf("portal timeouts must be positive")
	}

	switch c.Extract.Engine {
	case "native", "mupdf":
	default:
		return fmt.Errorf("invalid extract engine: %s", c.Extract.Engine)
	}

	switch c.Cleanup.Store {
	case "memory":
	case "redis":
		if c.Cleanup.Redis.Addr == "" {
			return fmt.Errorf("redis addr must be set for the redis cleanup store")
		}
	default:
		return fmt.Errorf("invalid cleanup store: %s", c.Cleanup.Store)
	}
	if c.Cleanup.Delay < 0 {
		return fmt.Errorf("cleanup delay must not be negative")
	}
	if c.Cleanup.MaxAttempts < 1 {
		return fmt.Errorf("cleanup max_attempts must be at least 1")
	}
	if c.Cleanup.Interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
