package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(home, ".local/share/transcat/transcat.db"), cfg.Database.DSN)
	assert.Equal(t, "transactions", cfg.Database.Table)
	assert.Equal(t, "transactions", cfg.Stream.InputStream)
	assert.Equal(t, int64(10), cfg.Stream.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Stream.Block)
	assert.Equal(t, []string{model.ColumnAmount, model.ColumnDescription}, cfg.Classifier.FeatureColumns)
	assert.False(t, cfg.Classifier.Lowercase)
	assert.False(t, cfg.Pipeline.SkipMalformed)
	assert.NotEmpty(t, cfg.Stream.Consumer)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DB_URL", "postgres://bot:secret@db:5432/finance?sslmode=disable")
	t.Setenv("DB_TABLE", "ledger")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("TRANSCAT_PIPELINE_SKIP_MALFORMED", "true")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://bot:secret@db:5432/finance?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "ledger", cfg.Database.Table)
	assert.Equal(t, "redis://cache:6379/2", cfg.Stream.URL)
	assert.True(t, cfg.Pipeline.SkipMalformed)
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("DB_TABLE", "ledger")
	t.Setenv("TRANSCAT_DATABASE_TABLE", "records")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, "records", cfg.Database.Table)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  dsn: `+filepath.Join(dir, "data.db")+`
classifier:
  feature_columns: [description]
  max_iterations: 200
stream:
  block: 2s
  batch_size: 50
rules:
  file: $RULES_DIR/rules.yaml
`), 0600))
	t.Setenv("RULES_DIR", dir)

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data.db"), cfg.Database.DSN)
	assert.Equal(t, []string{"description"}, cfg.Classifier.FeatureColumns)
	assert.Equal(t, 2*time.Second, cfg.Stream.Block)
	assert.Equal(t, int64(50), cfg.Stream.BatchSize)
	assert.Equal(t, filepath.Join(dir, "rules.yaml"), cfg.Rules.File)

	trainer := cfg.Trainer()
	assert.Equal(t, []string{"description"}, trainer.FeatureColumns)
	assert.Equal(t, 200, trainer.MaxIterations)
	assert.Equal(t, 120.0, trainer.ConfidenceScale)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		wantErr error
		set     map[string]any
		name    string
	}{
		{name: "empty dsn", set: map[string]any{"database.dsn": ""}, wantErr: common.ErrMissingConfig},
		{name: "unknown feature column", set: map[string]any{"classifier.feature_columns": []string{"merchant"}}, wantErr: common.ErrInvalidConfig},
		{name: "no feature columns", set: map[string]any{"classifier.feature_columns": []string{}}, wantErr: common.ErrMissingConfig},
		{name: "bad log level", set: map[string]any{"logging.level": "loud"}, wantErr: common.ErrInvalidConfig},
		{name: "zero batch", set: map[string]any{"stream.batch_size": 0}, wantErr: common.ErrInvalidConfig},
		{name: "non-blocking read", set: map[string]any{"stream.block": "0s"}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TRANSCAT_TEST_DIR", "/srv/data")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/db.sqlite", want: filepath.Join(home, "db.sqlite")},
		{in: "$TRANSCAT_TEST_DIR/db.sqlite", want: "/srv/data/db.sqlite"},
		{in: "~user/x", want: "~user/x"},
		{in: "/abs/path", want: "/abs/path"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "transcat"), dir)
}
