package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bad33ndj3/mcp-l10n-index/internal/command"
	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
)

const catalogJSON = `{
  "en": {"common": {"save": "Save changes", "cancel": "Cancel"}},
  "de": {"common": {"save": "Änderungen speichern"}}
}`

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ".mcp-l10n", cfg.StateDir)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "locales", cfg.Catalog.Path)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, store.BackendFile, cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Catalog.MatchConfig().TopN)
	assert.False(t, cfg.Catalog.MatchConfig().FoldAccents)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "l10n.yaml"), []byte(`
language: ko
catalog:
  path: i18n
  top_n: 3
  fold_accents: true
store:
  backend: sqlite
`), 0o644))
	t.Setenv("L10N_CATALOG_PATH", "override")
	t.Setenv("L10N_WORKERS", "8")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "ko", cfg.Language)
	assert.Equal(t, "override", cfg.Catalog.Path)
	assert.Equal(t, 3, cfg.Catalog.TopN)
	assert.True(t, cfg.Catalog.MatchConfig().FoldAccents)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, store.BackendSQLite, cfg.StoreConfig().Backend)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetupLogger_WritesDatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	logger, file, err := SetupLogger(dir, slog.LevelDebug)
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, file.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "debug-*.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalogJSON), 0o644))

	v := viper.New()
	SetDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	cfg.StateDir = filepath.Join(dir, "state")
	cfg.Catalog.Path = catalogPath
	cfg.Document.Path = filepath.Join(dir, "document.yaml")
	cfg.Store.Backend = store.BackendMemory
	return &cfg
}

func TestNew_WiresSession(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Equal(t, 0, a.Doc.Len())
	assert.Equal(t, 2, a.Holder.Current().Len())

	msgs, err := a.Session.Handle(context.Background(), command.CheckTranslation{Text: "Save changes"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	result := msgs[0].(command.TranslationCheckResult)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "common.save", result.Data[0].Key)
}

func TestNew_MissingCatalogIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "nope")

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Equal(t, 0, a.Session.Status().CatalogEntries)
}

func TestCommit_WritesDocument(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	require.NoError(t, a.Commit())
	_, err = os.Stat(cfg.Document.Path)
	assert.NoError(t, err)
}
