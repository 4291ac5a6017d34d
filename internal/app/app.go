package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panjf2000/ants/v2"

	"github.com/bad33ndj3/mcp-l10n-index/internal/catalog"
	"github.com/bad33ndj3/mcp-l10n-index/internal/host/memdoc"
	mcphandlers "github.com/bad33ndj3/mcp-l10n-index/internal/mcp"
	"github.com/bad33ndj3/mcp-l10n-index/internal/notify"
	"github.com/bad33ndj3/mcp-l10n-index/internal/session"
	"github.com/bad33ndj3/mcp-l10n-index/internal/store"
)

const (
	ServerName    = "mcp-l10n-index"
	ServerVersion = "v0.1.0"
)

// App holds the wired components of one scout process.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Bridge  *store.Bridge
	Doc     *memdoc.Document
	Holder  *catalog.Holder
	Session *session.Session

	pool *ants.Pool
}

// ParseLevel maps a config level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// SetupLogger creates an slog logger that writes to a debug file in dir.
// File format: debug-YYYY-MM-DD.txt
func SetupLogger(dir string, level slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create state dir: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("debug-%s.txt", date))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(handler), file, nil
}

// New opens the store, loads the document and the catalog and creates
// the session. A missing document starts empty and a missing or broken
// catalog yields empty matches; neither is fatal.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &App{Config: cfg, Logger: logger}

	bridge, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	a.Bridge = bridge

	a.Doc, err = loadDocument(cfg.Document.Path)
	if err != nil {
		a.Close()
		return nil, err
	}

	matchCfg := catalog.WithMatchConfig(cfg.Catalog.MatchConfig())
	cat, err := catalog.Load(cfg.Catalog.Path, matchCfg)
	if err != nil {
		logger.Warn("catalog not loaded, matches will be empty", "path", cfg.Catalog.Path, "error", err)
	}
	a.Holder = catalog.NewHolder(cat)

	text, err := notify.New(cfg.Language)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load notification messages: %w", err)
	}

	opts := []session.Option{session.WithLogger(logger), session.WithLocalizer(text)}
	if cfg.Workers > 1 {
		a.pool, err = ants.NewPool(cfg.Workers)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		opts = append(opts, session.WithPool(a.pool))
	}

	a.Session, err = session.New(a.Bridge, a.Doc, a.Holder, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("app ready",
		"state_dir", cfg.StateDir,
		"store", cfg.Store.Backend,
		"document", cfg.Document.Path,
		"nodes", a.Doc.Len(),
		"catalog", cfg.Catalog.Path,
		"catalog_entries", a.Holder.Current().Len(),
	)
	return a, nil
}

func loadDocument(path string) (*memdoc.Document, error) {
	doc, err := memdoc.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return memdoc.New(nil), nil
	}
	return doc, err
}

// Commit writes the document back to its file.
func (a *App) Commit() error {
	return a.Doc.Save(a.Config.Document.Path)
}

// Serve restores the session and answers MCP requests on stdio until ctx
// is done. The catalog is reloaded in the background when it changes.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.Config.Catalog.Watch {
		a.watchCatalog(ctx)
	}

	msgs, err := a.Session.Restore(ctx)
	if err != nil {
		a.Logger.Warn("session restored with store errors", "error", err)
	}
	a.Logger.Info("session restored", "messages", len(msgs))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Instructions: "Use add_selection to extract text objects, check_translation to find existing resource keys for a text, and plugin_message for the rest of the plugin protocol (save-state, focus-nodes, apply-translation, ...).",
	})

	handlers := mcphandlers.NewHandlers(a.Session, a.Logger, mcphandlers.WithCommit(a.Commit))
	handlers.Register(server)

	a.Logger.Info("server ready, waiting for requests")

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		a.Logger.Error("server error", "error", err)
		return err
	}
	return nil
}

// watchCatalog reloads the catalog in the background until ctx is done.
func (a *App) watchCatalog(ctx context.Context) {
	path := a.Config.Catalog.Path
	w, err := catalog.NewWatcher(path, a.Holder, a.Logger,
		catalog.WithMatchConfig(a.Config.Catalog.MatchConfig()))
	if err != nil {
		a.Logger.Warn("catalog hot reload disabled", "path", path, "error", err)
		return
	}
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Warn("catalog watcher stopped", "error", err)
		}
	}()
}

// Close releases the worker pool and the stores.
func (a *App) Close() error {
	if a.pool != nil {
		a.pool.Release()
	}
	if a.Bridge != nil {
		return a.Bridge.Close()
	}
	return nil
}
