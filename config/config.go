package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all application configuration loaded from a YAML file and
// environment variables.
type Config struct {
	Postgres PostgresConfig `koanf:"postgres"`
	Import   ImportConfig   `koanf:"import"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// PostgresConfig describes the store connection target.
type PostgresConfig struct {
	Host           string        `koanf:"host"`
	Port           string        `koanf:"port"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	DB             string        `koanf:"db"`
	SSLMode        string        `koanf:"sslmode"`
	ConnectRetries int           `koanf:"connect_retries"`
	RetryDelay     time.Duration `koanf:"retry_delay"`
}

// ImportConfig controls a single import run.
type ImportConfig struct {
	Salt                string  `koanf:"salt"`
	PlaceholderPassword string  `koanf:"placeholder_password"`
	BcryptCost          int     `koanf:"bcrypt_cost"`
	MaxRecordsPerSecond float64 `koanf:"max_records_per_second"`
	RejectsPath         string  `koanf:"rejects_path"`
	ProgressEvery       int     `koanf:"progress_every"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
}

// RunConfig is the immutable per-run configuration handed to the importer.
type RunConfig struct {
	Path                string
	DSN                 string
	Salt                string
	PlaceholderPassword string
}

// bcrypt ignores input past this many bytes.
const maxCredentialBytes = 72

var sections = map[string]bool{
	"postgres": true,
	"import":   true,
	"log":      true,
	"metrics":  true,
}

// Load reads the .env file, the optional YAML file at path and the
// environment, in that order of precedence (environment wins). An empty
// path skips the file. The result is not validated; call Validate once
// command-line overrides have been applied.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// POSTGRES_CONNECT_RETRIES -> postgres.connect_retries
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name and drops variables
// that belong to no known section.
func envKey(s string) string {
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || !sections[parts[0]] || parts[1] == "" {
		return ""
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.Postgres.Host, "localhost")
	setDefault(&cfg.Postgres.Port, "5432")
	setDefault(&cfg.Postgres.SSLMode, "disable")
	if cfg.Postgres.ConnectRetries <= 0 {
		cfg.Postgres.ConnectRetries = 5
	}
	if cfg.Postgres.RetryDelay <= 0 {
		cfg.Postgres.RetryDelay = 500 * time.Millisecond
	}

	setDefault(&cfg.Import.PlaceholderPassword, "123456")
	if cfg.Import.BcryptCost == 0 {
		cfg.Import.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Import.ProgressEvery <= 0 {
		cfg.Import.ProgressEvery = 1000
	}

	setDefault(&cfg.Log.Level, "info")
	setDefault(&cfg.Log.Format, "console")
	setDefault(&cfg.Metrics.Job, "listing_import")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Postgres.Host == "" {
		errs = append(errs, errors.New("postgres.host is required"))
	}
	if c.Postgres.User == "" {
		errs = append(errs, errors.New("postgres.user is required"))
	}
	if c.Postgres.DB == "" {
		errs = append(errs, errors.New("postgres.db is required"))
	}
	if c.Import.Salt == "" {
		errs = append(errs, errors.New("import.salt is required"))
	}
	if n := len(c.Import.Salt) + len(c.Import.PlaceholderPassword); n > maxCredentialBytes {
		errs = append(errs, fmt.Errorf("import.salt and import.placeholder_password together exceed %d bytes (%d)", maxCredentialBytes, n))
	}
	if c.Import.BcryptCost < bcrypt.MinCost || c.Import.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("import.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Import.MaxRecordsPerSecond < 0 {
		errs = append(errs, errors.New("import.max_records_per_second must not be negative"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection URL.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:     net.JoinHostPort(c.Postgres.Host, c.Postgres.Port),
		Path:     "/" + c.Postgres.DB,
		RawQuery: url.Values{"sslmode": {c.Postgres.SSLMode}}.Encode(),
	}
	return u.String()
}

// RunConfig freezes the settings one import run needs.
func (c *Config) RunConfig(path string) RunConfig {
	return RunConfig{
		Path:                path,
		DSN:                 c.DSN(),
		Salt:                c.Import.Salt,
		PlaceholderPassword: c.Import.PlaceholderPassword,
	}
}
