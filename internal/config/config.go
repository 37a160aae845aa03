package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/storage"
	"github.com/Veraticus/transcat/internal/textclass"
)

// Config is the complete runtime configuration.
type Config struct {
	Logging    LoggingConfig
	Database   DatabaseConfig
	Stream     StreamConfig
	Rules      RulesConfig
	Classifier ClassifierConfig
	Pipeline   PipelineConfig
}

// LoggingConfig selects log level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig locates the record store.
type DatabaseConfig struct {
	Driver string
	DSN    string
	Table  string
}

// StreamConfig names the Redis streams the worker uses.
type StreamConfig struct {
	URL         string
	InputStream string
	Group       string
	Consumer    string
	EventStream string
	ReplyStream string
	BatchSize   int64
	Block       time.Duration
}

// ClassifierConfig tunes the text classifier.
type ClassifierConfig struct {
	CategoryColumn string
	FeatureColumns []string
	MaxFeatures    int
	MaxIterations  int
	Lowercase      bool
}

// RulesConfig points at the ordered regex rule file.
type RulesConfig struct {
	File string
}

// PipelineConfig holds batch policies.
type PipelineConfig struct {
	SkipMalformed bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "$HOME/.local/share/transcat/transcat.db")
	v.SetDefault("database.table", storage.DefaultTable)

	v.SetDefault("stream.url", "redis://localhost:6379/0")
	v.SetDefault("stream.input_stream", "transactions")
	v.SetDefault("stream.group", "transcat")
	v.SetDefault("stream.consumer", defaultConsumer())
	v.SetDefault("stream.event_stream", "label_events")
	v.SetDefault("stream.reply_stream", "replies")
	v.SetDefault("stream.batch_size", 10)
	v.SetDefault("stream.block", 5*time.Second)

	v.SetDefault("classifier.feature_columns", []string{model.ColumnAmount, model.ColumnDescription})
	v.SetDefault("classifier.category_column", model.ColumnCategory)
	v.SetDefault("classifier.max_features", textclass.DefaultMaxFeatures)
	v.SetDefault("classifier.max_iterations", 5000)
	v.SetDefault("classifier.lowercase", false)

	v.SetDefault("rules.file", "")
	v.SetDefault("pipeline.skip_malformed", false)
}

// BindEnv binds every key to its TRANSCAT_ variable and, for the connection
// settings, to the plain DB_URL, DB_TABLE and REDIS_URL variables as well.
// The prefixed variable wins when both are set.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix("TRANSCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	legacy := map[string]string{
		"database.dsn":   "DB_URL",
		"database.table": "DB_TABLE",
		"stream.url":     "REDIS_URL",
	}
	for key, env := range legacy {
		prefixed := "TRANSCAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
			Table:  v.GetString("database.table"),
		},
		Stream: StreamConfig{
			URL:         v.GetString("stream.url"),
			InputStream: v.GetString("stream.input_stream"),
			Group:       v.GetString("stream.group"),
			Consumer:    v.GetString("stream.consumer"),
			EventStream: v.GetString("stream.event_stream"),
			ReplyStream: v.GetString("stream.reply_stream"),
			BatchSize:   v.GetInt64("stream.batch_size"),
			Block:       v.GetDuration("stream.block"),
		},
		Classifier: ClassifierConfig{
			FeatureColumns: v.GetStringSlice("classifier.feature_columns"),
			CategoryColumn: v.GetString("classifier.category_column"),
			MaxFeatures:    v.GetInt("classifier.max_features"),
			MaxIterations:  v.GetInt("classifier.max_iterations"),
			Lowercase:      v.GetBool("classifier.lowercase"),
		},
		Rules: RulesConfig{
			File: ExpandPath(v.GetString("rules.file")),
		},
		Pipeline: PipelineConfig{
			SkipMalformed: v.GetBool("pipeline.skip_malformed"),
		},
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = inferDriver(cfg.Database.DSN)
	}
	if cfg.Database.Driver == "sqlite3" {
		cfg.Database.DSN = ExpandPath(cfg.Database.DSN)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for missing or contradictory values.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn", common.ErrMissingConfig)
	}
	if c.Database.Table == "" {
		return fmt.Errorf("%w: database.table", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if len(c.Classifier.FeatureColumns) == 0 {
		return fmt.Errorf("%w: classifier.feature_columns", common.ErrMissingConfig)
	}
	blank := model.CategoryRecord{}
	for _, col := range append([]string{c.Classifier.CategoryColumn}, c.Classifier.FeatureColumns...) {
		if _, err := blank.Column(col); err != nil {
			return fmt.Errorf("%w: classifier: %w", common.ErrInvalidConfig, err)
		}
	}
	if c.Classifier.MaxFeatures < 0 || c.Classifier.MaxIterations < 0 {
		return fmt.Errorf("%w: classifier limits must not be negative", common.ErrInvalidConfig)
	}
	if c.Stream.BatchSize <= 0 {
		return fmt.Errorf("%w: stream.batch_size must be positive", common.ErrInvalidConfig)
	}
	if c.Stream.Block <= 0 {
		return fmt.Errorf("%w: stream.block must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// Trainer builds the text classifier configuration.
func (c *Config) Trainer() textclass.Config {
	t := textclass.DefaultConfig()
	t.FeatureColumns = c.Classifier.FeatureColumns
	t.CategoryColumn = c.Classifier.CategoryColumn
	t.MaxFeatures = c.Classifier.MaxFeatures
	t.MaxIterations = c.Classifier.MaxIterations
	t.Lowercase = c.Classifier.Lowercase
	return t
}

func inferDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite3"
}

func defaultConsumer() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "transcat-1"
	}
	return host
}
