// Package internal wires the quire commands: corpus ingestion, search,
// catalog fetching, the HTTP API server, and the MCP stdio server.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/docservice"
	"github.com/starford/quire/internal/ingest"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pdf"
	"github.com/starford/quire/internal/search"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/store"
	pkgconfig "github.com/starford/quire/pkg/config"
)

// Run executes the quire command line with the given arguments.
func Run(ctx context.Context, args []string, opts ...Option) error {
	app := &application{stdout: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	return app.rootCommand().Run(ctx, args)
}

func (a *application) rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "quire",
		Usage: "Per-page PDF corpus ingestion and BM25 full-text search over SQLite",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("QUIRE_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			a.ingestCommand(),
			a.searchCommand(),
			a.fetchCommand(),
			a.serveCommand(),
			a.mcpCommand(),
		},
	}
}

// buildLogger returns the injected logger, or a JSON logger on stderr so
// command output on stdout stays clean.
func (a *application) buildLogger(cmd *cli.Command) *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (a *application) ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest every PDF under a directory into the database",
		ArgsUsage: "<source_dir> <db_path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return apperr.InvalidArgumentf("usage: quire ingest <source_dir> <db_path>")
			}
			sourceDir, dbPath := cmd.Args().Get(0), cmd.Args().Get(1)
			logger := a.buildLogger(cmd)

			st, err := store.Open(dbPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			runner := ingest.NewRunner(st, pdf.NewExtractor(logger), logger)
			stats, err := runner.Run(ctx, sourceDir)
			if err != nil {
				return err
			}

			a.printIngestSummary(stats)
			if stats.Failed > 0 {
				return fmt.Errorf("ingest: %d files failed", stats.Failed)
			}
			return nil
		},
	}
}

func (a *application) searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search ingested pages and print ranked hits",
		ArgsUsage: "<db_path> <query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "top-k",
				Usage: "Maximum number of hits to print",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "snippet-chars",
				Usage: "Maximum snippet length in characters",
				Value: search.DefaultSnippetChars,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return apperr.InvalidArgumentf("usage: quire search <db_path> <query>")
			}
			dbPath, query := cmd.Args().Get(0), cmd.Args().Get(1)

			info, err := os.Stat(dbPath)
			if err != nil {
				return apperr.InvalidArgumentf("database does not exist: %s", dbPath)
			}
			if !info.Mode().IsRegular() {
				return apperr.InvalidArgumentf("database path is not a regular file: %s", dbPath)
			}
			logger := a.buildLogger(cmd)

			st, err := store.Open(dbPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			hits, err := search.Query(st, query, int(cmd.Int("top-k")), int(cmd.Int("snippet-chars")))
			if err != nil {
				return err
			}
			a.printHits(hits)
			return nil
		},
	}
}

func (a *application) fetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Mirror the publications catalog into a directory",
		ArgsUsage: "<dest_dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "catalog-url",
				Usage: "Catalog page to harvest PDF links from",
				Value: catalog.DefaultCatalogURL,
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Minimum delay between downloads",
				Value: catalog.DefaultDownloadDelay,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Process at most N publications (0 = all)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return apperr.InvalidArgumentf("usage: quire fetch <dest_dir>")
			}
			logger := a.buildLogger(cmd)

			fetcher, err := catalog.NewFetcher(cmd.String("catalog-url"), cmd.Args().Get(0), cmd.Duration("delay"), logger)
			if err != nil {
				return err
			}
			stats, err := fetcher.Run(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}

			a.printFetchSummary(stats, fetcher.MetadataPath())
			if stats.Failed > 0 {
				return fmt.Errorf("fetch: %d downloads failed", stats.Failed)
			}
			return nil
		},
	}
}

func (a *application) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API over the corpus database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("QUIRE_CONFIG_FILE"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := a.config
			if cfg == nil {
				cfg = NewDefaultConfig()
				configPath := cmd.String("config")
				// An explicitly named file must exist; the default path may not.
				if cmd.IsSet("config") {
					if err := pkgconfig.Load(configPath, cfg); err != nil {
						return err
					}
				} else if err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
					return err
				}
			}
			return a.serve(ctx, cfg)
		},
	}
}

func (a *application) mcpCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp",
		Usage:     "Serve the corpus to MCP clients over stdio",
		ArgsUsage: "<db_path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source-dir",
				Usage: "Corpus directory the run_ingest tool reads from",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return apperr.InvalidArgumentf("usage: quire mcp <db_path>")
			}
			dbPath := cmd.Args().Get(0)
			logger := a.buildLogger(cmd)

			st, err := store.Open(dbPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			runner := ingest.NewRunner(st, pdf.NewExtractor(logger), logger)
			svc := docservice.NewService(st, runner, nil, cmd.String("source-dir"), 0)

			logger.Info("mcp server listening on stdio", slog.String("db_path", dbPath))
			return mcpserver.New(svc).ServeStdio()
		},
	}
}

// serve runs the HTTP API, the optional corpus watcher, and signal handling
// under one errgroup until shutdown.
func (a *application) serve(ctx context.Context, cfg *Config) error {
	logger := a.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("corpus_path", cfg.Corpus.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Corpus.Path, 0o755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}

	st, err := store.Open(cfg.SQLite.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	runner := ingest.NewRunner(st, pdf.NewExtractor(logger), logger)
	runner.OnOutcome = func(outcome ingest.Outcome, path string) {
		broker.PublishDocumentEvent(outcome.String(), path)
	}

	svc := docservice.NewService(st, runner, broker, cfg.Corpus.Path, cfg.Search.SnippetChars)

	// Initial ingest brings the database up to date with the corpus dir.
	if _, err := svc.Reingest(ctx, ""); err != nil {
		logger.Warn("initial ingest failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api/v1", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Corpus.Watch {
		g.Go(func() error {
			err := ingest.Watch(gCtx, cfg.Corpus.Path, cfg.Corpus.Debounce(), logger, func() {
				if _, err := svc.Reingest(gCtx, ""); err != nil {
					logger.Warn("watch-triggered ingest failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				return fmt.Errorf("corpus watcher: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}

func (a *application) printIngestSummary(stats models.IngestStats) {
	fmt.Fprintf(a.stdout, "Discovered PDFs: %d\n", stats.Discovered)
	fmt.Fprintf(a.stdout, "Ingested new: %d\n", stats.Ingested)
	fmt.Fprintf(a.stdout, "Updated changed: %d\n", stats.Updated)
	fmt.Fprintf(a.stdout, "Skipped unchanged: %d\n", stats.Skipped)
	fmt.Fprintf(a.stdout, "Failed: %d\n", stats.Failed)
}

func (a *application) printFetchSummary(stats catalog.FetchStats, metadataPath string) {
	fmt.Fprintf(a.stdout, "Discovered PDFs: %d\n", stats.Discovered)
	fmt.Fprintf(a.stdout, "Downloaded: %d\n", stats.Downloaded)
	fmt.Fprintf(a.stdout, "Updated: %d\n", stats.Updated)
	fmt.Fprintf(a.stdout, "Skipped: %d\n", stats.Skipped)
	fmt.Fprintf(a.stdout, "Failed: %d\n", stats.Failed)
	fmt.Fprintf(a.stdout, "Metadata: %s\n", metadataPath)
}

func (a *application) printHits(hits []search.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(a.stdout, "No results.")
		return
	}
	for _, hit := range hits {
		fmt.Fprintf(a.stdout, "%d. %s:p%d score=%.4f\n", hit.Rank, hit.Filename, hit.PageIndex+1, hit.Score)
		fmt.Fprintf(a.stdout, "  %s\n", hit.Snippet)
	}
}
