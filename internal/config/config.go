package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/asientos/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. ASIENTOS_DATABASE_DSN.
const EnvPrefix = "ASIENTOS"

// Config represents the top-level asientos.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business" mapstructure:"business"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Mail     MailConfig     `yaml:"mail" mapstructure:"mail"`
	Audit    AuditConfig    `yaml:"audit" mapstructure:"audit"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name  string `yaml:"name" mapstructure:"name"`
	TaxID string `yaml:"tax_id" mapstructure:"tax_id"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DSN     string `yaml:"dsn" mapstructure:"dsn"`       // file path for sqlite, URL for postgres
	LogMode bool   `yaml:"log_mode" mapstructure:"log_mode"`
}

// LedgerConfig controls balance periods and validation tolerance.
type LedgerConfig struct {
	Period    string `yaml:"period" mapstructure:"period"`       // "yearly" or "monthly"
	Tolerance string `yaml:"tolerance" mapstructure:"tolerance"` // decimal string
}

// MailConfig configures cancellation notices.
type MailConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password,omitempty" mapstructure:"password"`
	From      string `yaml:"from" mapstructure:"from"`
	Recipient string `yaml:"recipient" mapstructure:"recipient"`
}

// AuditConfig controls the optional CSV copy of the activity log.
type AuditConfig struct {
	CSVPath string `yaml:"csv_path,omitempty" mapstructure:"csv_path"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	Mode string `yaml:"mode" mapstructure:"mode"` // gin mode: debug, release, test
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
}

// Granularity returns the configured balance period granularity.
func (l LedgerConfig) Granularity() (model.Granularity, error) {
	switch l.Period {
	case "", string(model.Yearly):
		return model.Yearly, nil
	case string(model.Monthly):
		return model.Monthly, nil
	}
	return "", fmt.Errorf("invalid ledger period %q (want yearly or monthly)", l.Period)
}

// ToleranceValue parses the configured tolerance, defaulting to 0.01.
func (l LedgerConfig) ToleranceValue() (decimal.Decimal, error) {
	if l.Tolerance == "" {
		return decimal.New(1, -2), nil
	}
	d, err := decimal.NewFromString(l.Tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid ledger tolerance %q: %w", l.Tolerance, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid ledger tolerance %q: must not be negative", l.Tolerance)
	}
	return d, nil
}

// Load reads an asientos.yaml file from disk, applying ASIENTOS_* environment
// overrides on top.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default(""))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("business.name", d.Business.Name)
	v.SetDefault("business.tax_id", d.Business.TaxID)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.log_mode", d.Database.LogMode)
	v.SetDefault("ledger.period", d.Ledger.Period)
	v.SetDefault("ledger.tolerance", d.Ledger.Tolerance)
	v.SetDefault("mail.enabled", d.Mail.Enabled)
	v.SetDefault("mail.host", d.Mail.Host)
	v.SetDefault("mail.port", d.Mail.Port)
	v.SetDefault("mail.username", d.Mail.Username)
	v.SetDefault("mail.password", d.Mail.Password)
	v.SetDefault("mail.from", d.Mail.From)
	v.SetDefault("mail.recipient", d.Mail.Recipient)
	v.SetDefault("audit.csv_path", d.Audit.CSVPath)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name: businessName,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/asientos.db",
		},
		Ledger: LedgerConfig{
			Period:    string(model.Yearly),
			Tolerance: "0.01",
		},
		Mail: MailConfig{
			Port: 587,
		},
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
