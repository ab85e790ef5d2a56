package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"bozorlik/internal/api"
	"bozorlik/internal/app"
	"bozorlik/internal/assistant"
	"bozorlik/internal/catalog"
	"bozorlik/internal/config"
	"bozorlik/internal/database"
	"bozorlik/internal/history"
	"bozorlik/internal/llm"
	"bozorlik/internal/metrics"
	"bozorlik/internal/session"
	"bozorlik/internal/share"
	"bozorlik/internal/telegram"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, WebSocket endpoint and Telegram webhook",
		RunE:  runServe,
	}

	cmd.Flags().Int("port", 8000, "HTTP listen port")
	cmd.Flags().String("db", "bozorlik.db", "path to SQLite database")
	cmd.Flags().String("catalog", "data/products.json", "path to the price catalog")

	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	_ = v.BindPFlag("catalog.path", cmd.Flags().Lookup("catalog"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 1. Storage
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	dataDir := filepath.Dir(cfg.Database.Path)

	metricsStore := metrics.NewStore(db.SQL)
	if n, err := metricsStore.Cleanup(ctx, cfg.Metrics.Retention); err != nil {
		slog.Warn("metrics cleanup failed", "error", err)
	} else if n > 0 {
		slog.Info("old metrics removed", "rows", n)
	}

	// 2. Catalog
	registry := catalog.NewRegistry(catalog.LoadOrEmpty(cfg.Catalog.Path))

	// 3. LLM agents
	formatterGen, err := newTextGenerator(ctx, cfg.LLM, assistant.FormatterAgent, llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return err
	}
	defer closeGenerator(formatterGen)

	editorGen, err := newTextGenerator(ctx, cfg.LLM, assistant.EditorAgent, llm.Options{
		Temperature: 0.1,
		MaxTokens:   cfg.LLM.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return err
	}
	defer closeGenerator(editorGen)

	// 4. Application
	var (
		sessions  session.Store
		languages session.LanguageStore
	)
	if cfg.Session.Store == "memory" {
		sessions, languages = session.NewMemoryStore(), session.NewMemoryLanguages()
	} else {
		sessions, languages = session.NewRepository(db.SQL), session.NewLanguageRepository(db.SQL)
	}

	a := app.NewApp(
		registry,
		assistant.NewFormatter(formatterGen, app.PriceHints(registry)),
		assistant.NewEditor(editorGen),
		sessions,
		languages,
		history.NewRepository(db.SQL).WithLimit(cfg.History.MaxEntries),
		share.NewService(share.NewRepository(db.SQL), cfg.Share.Secret, cfg.Share.TTL),
		metricsStore,
	)

	// 5. Transports
	srv := api.NewServer(a, dataDir)
	defer srv.Close()

	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBot(cfg.Telegram, a, metricsStore, dataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		srv.Handle("/telegram/webhook", http.HandlerFunc(bot.HandleWebhook))
	}

	go reloadCatalogOnHangup(ctx, registry, cfg.Catalog.Path)

	// 6. Serve until the context is cancelled
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", httpServer.Addr, "session_store", cfg.Session.Store, "llm", cfg.LLM.Provider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server exited")
	return nil
}

func newTextGenerator(ctx context.Context, cfg config.LLMConfig, agent string, opts llm.Options) (llm.TextGenerator, error) {
	gen, err := llm.New(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", agent, err)
	}
	if cfg.CachePath == "" {
		return gen, nil
	}

	ext := filepath.Ext(cfg.CachePath)
	path := strings.TrimSuffix(cfg.CachePath, ext) + "." + agent + ext
	cached, err := llm.NewCachedTextGenerator(gen, path)
	if err != nil {
		_ = llm.Close(gen)
		return nil, fmt.Errorf("failed to open %s cache: %w", agent, err)
	}
	return cached, nil
}

func closeGenerator(g llm.TextGenerator) {
	if err := llm.Close(g); err != nil {
		slog.Warn("failed to close model client", "error", err)
	}
}

func reloadCatalogOnHangup(ctx context.Context, registry *catalog.Registry, path string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := registry.Reload(path); err != nil {
				slog.Error("catalog reload failed, keeping previous catalog", "path", path, "error", err)
				continue
			}
			slog.Info("catalog reloaded", "path", path, "products", registry.Catalog().Len())
		}
	}
}
