package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Luminosity server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Revocation RevocationConfig `yaml:"revocation"`
	Mail       MailConfig       `yaml:"mail"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	BaseURL         string `yaml:"base_url"` // used in verification links
	TLSCert         string `yaml:"tls_cert"`
	TLSKey          string `yaml:"tls_key"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the bolt document store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig configures passwords and session tokens.
type AuthConfig struct {
	TokenSecret     string `yaml:"token_secret"`
	TokenSecretFile string `yaml:"token_secret_file"` // read when token_secret is empty
	TokenTTL        string `yaml:"token_ttl"`
	SecureCookie    bool   `yaml:"secure_cookie"`
	BcryptCost      int    `yaml:"bcrypt_cost"`
	VerifyTokenTTL  string `yaml:"verify_token_ttl"`
}

// RevocationConfig selects where logged out tokens are remembered.
type RevocationConfig struct {
	Backend       string `yaml:"backend"` // bolt, redis
	RedisURL      string `yaml:"redis_url"`
	PurgeInterval string `yaml:"purge_interval"`
}

// MailConfig configures verification mail delivery.
type MailConfig struct {
	Driver   string `yaml:"driver"` // log, smtp
	From     string `yaml:"from"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BaseURL:         "http://localhost:8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "15s",
			ShutdownTimeout: "10s",
		},
		Database: DatabaseConfig{
			Path: filepath.Join("data", "luminosity.db"),
		},
		Auth: AuthConfig{
			TokenTTL:       "24h",
			BcryptCost:     10,
			VerifyTokenTTL: "1h",
		},
		Revocation: RevocationConfig{
			Backend:       "bolt",
			RedisURL:      "redis://localhost:6379",
			PurgeInterval: "1h",
		},
		Mail: MailConfig{
			Driver: "log",
			From:   "no-reply@luminosity.local",
			Port:   587,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("LUMINOSITY_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if u := os.Getenv("LUMINOSITY_BASE_URL"); u != "" {
		c.Server.BaseURL = u
	}
	if secret := os.Getenv("TOKEN_SECRET"); secret != "" {
		c.Auth.TokenSecret = secret
	}
	if path := os.Getenv("LUMINOSITY_DB"); path != "" {
		c.Database.Path = path
	}
	if u := os.Getenv("REDIS_URL"); u != "" {
		c.Revocation.RedisURL = u
		c.Revocation.Backend = "redis"
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		c.Mail.Host = host
		c.Mail.Driver = "smtp"
	}
	if port, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
		c.Mail.Port = port
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		c.Mail.Username = user
	}
	if pw := os.Getenv("SMTP_PASSWORD"); pw != "" {
		c.Mail.Password = pw
	}
	if from := os.Getenv("SMTP_FROM"); from != "" {
		c.Mail.From = from
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 15*time.Second)
}

func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 15*time.Second)
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GetTokenTTL returns the session token lifetime.
func (c *Config) GetTokenTTL() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 24*time.Hour)
}

// GetVerifyTokenTTL returns how long an email verification link is valid.
func (c *Config) GetVerifyTokenTTL() time.Duration {
	return parseDuration(c.Auth.VerifyTokenTTL, time.Hour)
}

func (c *Config) GetPurgeInterval() time.Duration {
	return parseDuration(c.Revocation.PurgeInterval, time.Hour)
}

// TLSEnabled reports whether both certificate and key are configured.
func (c *Config) TLSEnabled() bool {
	return c.Server.TLSCert != "" && c.Server.TLSKey != ""
}

var (
	ValidRevocationBackends = []string{"bolt", "redis"}
	ValidMailDrivers        = []string{"log", "smtp"}
	ValidLogLevels          = []string{"debug", "info", "warn", "error"}
)

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if v == s {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address not configured")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path not configured (set database.path or LUMINOSITY_DB)")
	}
	if len(c.Auth.TokenSecret) < 32 {
		return fmt.Errorf("token secret must be at least 32 characters (set auth.token_secret or TOKEN_SECRET, see gensecret)")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}
	if !oneOf(c.Revocation.Backend, ValidRevocationBackends) {
		return fmt.Errorf("invalid revocation backend: %s (valid: %v)", c.Revocation.Backend, ValidRevocationBackends)
	}
	if c.Revocation.Backend == "redis" && c.Revocation.RedisURL == "" {
		return fmt.Errorf("redis revocation backend needs redis_url")
	}
	if !oneOf(c.Mail.Driver, ValidMailDrivers) {
		return fmt.Errorf("invalid mail driver: %s (valid: %v)", c.Mail.Driver, ValidMailDrivers)
	}
	if c.Mail.Driver == "smtp" && (c.Mail.Host == "" || c.Mail.From == "") {
		return fmt.Errorf("smtp mail driver needs host and from")
	}
	if c.Logging.Level != "" && !oneOf(c.Logging.Level, ValidLogLevels) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return nil
}

// ResolvePaths makes relative file paths absolute against base.
func (c *Config) ResolvePaths(base string) {
	for _, p := range []*string{&c.Database.Path, &c.Auth.TokenSecretFile, &c.Server.TLSCert, &c.Server.TLSKey, &c.Logging.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// LoadSecret fills TokenSecret from TokenSecretFile when only the file is
// configured.
func (c *Config) LoadSecret() error {
	if c.Auth.TokenSecret != "" || c.Auth.TokenSecretFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.Auth.TokenSecretFile)
	if err != nil {
		return fmt.Errorf("failed to read token secret: %w", err)
	}
	c.Auth.TokenSecret = strings.TrimSpace(string(data))
	return nil
}

// ProjectRoot walks up from the working directory to the nearest go.mod. It
// falls back to the working directory, or "." if that is unknown.
func ProjectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd
		}
		dir = parent
	}
}
