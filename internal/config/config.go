package config

import (
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/docval/internal/source"
	"github.com/sells-group/docval/internal/store"
	"github.com/sells-group/docval/internal/validate"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Rules  RulesConfig  `yaml:"rules" mapstructure:"rules"`
	Input  InputConfig  `yaml:"input" mapstructure:"input"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL        string `yaml:"database_url" mapstructure:"database_url"`
	RecordsTable       string `yaml:"records_table" mapstructure:"records_table"`
	DiscrepanciesTable string `yaml:"discrepancies_table" mapstructure:"discrepancies_table"`
	MaxConns           int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// Tables returns the configured collection table names.
func (s StoreConfig) Tables() store.Tables {
	return store.Tables{Records: s.RecordsTable, Discrepancies: s.DiscrepanciesTable}
}

// RulesConfig holds the validation bounds. They have no defaults; a nil
// pointer or empty date means the value was never supplied.
type RulesConfig struct {
	MinTitleLength  *int   `yaml:"min_title_length" mapstructure:"min_title_length"`
	MaxCreationDate string `yaml:"max_creation_date" mapstructure:"max_creation_date"`
	MaxRowSum       *int   `yaml:"max_row_sum" mapstructure:"max_row_sum"`
}

// InputConfig configures where documents are read from.
type InputConfig struct {
	Path           string  `yaml:"path" mapstructure:"path"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
	FTPTimeoutSecs int     `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
	FTPRatePerSec  float64 `yaml:"ftp_rate_per_sec" mapstructure:"ftp_rate_per_sec"`
}

// SourceOptions converts the input settings for source.Open.
func (i InputConfig) SourceOptions() source.Options {
	return source.Options{
		FTPTimeout:    time.Duration(i.FTPTimeoutSecs) * time.Second,
		FTPRatePerSec: i.FTPRatePerSec,
	}
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Rules have no defaults, so AutomaticEnv alone would never see them.
	for _, key := range []string{"rules.min_title_length", "rules.max_creation_date", "rules.max_row_sum", "store.database_url", "input.path"} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	tables := store.DefaultTables()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.records_table", tables.Records)
	v.SetDefault("store.discrepancies_table", tables.Discrepancies)
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("input.concurrency", 4)
	v.SetDefault("input.ftp_timeout_secs", 30)
	v.SetDefault("input.ftp_rate_per_sec", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Modes accepted by Validate.
const (
	ModeRun   = "run"
	ModeStore = "store"
	ModeServe = "serve"
)

var (
	tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	// Postgres tables may carry one schema prefix, e.g. docval.documents.
	qualifiedTableNameRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*\.)?[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks the settings the given mode depends on and reports every
// problem at once. "run" needs the rules and input, "store" only the
// database, "serve" the database and a port.
func (c *Config) Validate(mode string) error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, eris.Errorf(format, args...))
	}

	switch mode {
	case ModeRun:
		if c.Rules.MinTitleLength == nil {
			add("rules.min_title_length is required")
		} else if *c.Rules.MinTitleLength < 0 {
			add("rules.min_title_length must be >= 0")
		}
		if c.Rules.MaxCreationDate == "" {
			add("rules.max_creation_date is required")
		} else if _, err := validate.ParseBoundDate(c.Rules.MaxCreationDate); err != nil {
			add("rules.max_creation_date must be YYYY-MM-DD, got %q", c.Rules.MaxCreationDate)
		}
		if c.Rules.MaxRowSum == nil {
			add("rules.max_row_sum is required")
		}
		if c.Input.Path == "" {
			add("input.path is required")
		}
		if c.Input.Concurrency < 1 {
			add("input.concurrency must be >= 1")
		}
	case ModeStore:
	case ModeServe:
		if c.Server.Port <= 0 {
			add("server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	errs = multierr.Append(errs, c.validateStore())

	if errs != nil {
		return eris.Wrapf(errs, "config: invalid %s configuration", mode)
	}
	return nil
}

func (c *Config) validateStore() error {
	var errs error
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = multierr.Append(errs, eris.New("store.database_url is required for the postgres driver"))
		}
	default:
		errs = multierr.Append(errs, eris.Errorf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}

	for key, name := range map[string]string{
		"store.records_table":       c.Store.RecordsTable,
		"store.discrepancies_table": c.Store.DiscrepanciesTable,
	} {
		re := tableNameRe
		if c.Store.Driver == "postgres" {
			re = qualifiedTableNameRe
		}
		if !re.MatchString(name) {
			errs = multierr.Append(errs, eris.Errorf("%s %q is not a valid table name", key, name))
		}
	}
	return errs
}

// ValidationRules converts the configured bounds for the validator. Call
// Validate("run") first; missing values are reported as an error.
func (c *Config) ValidationRules() (validate.Rules, error) {
	if c.Rules.MinTitleLength == nil || c.Rules.MaxRowSum == nil {
		return validate.Rules{}, eris.New("config: rules are incomplete")
	}
	bound, err := validate.ParseBoundDate(c.Rules.MaxCreationDate)
	if err != nil {
		return validate.Rules{}, eris.Wrap(err, "config: rules")
	}
	return validate.Rules{
		MinTitleLength:  *c.Rules.MinTitleLength,
		MaxCreationDate: bound,
		MaxRowSum:       *c.Rules.MaxRowSum,
	}, nil
}

// DSN returns the connection string for the configured driver. SQLite
// falls back to a file in the working directory.
func (c *Config) DSN() string {
	if c.Store.Driver == "sqlite" && c.Store.DatabaseURL == "" {
		return "docval.db"
	}
	return c.Store.DatabaseURL
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
