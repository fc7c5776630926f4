package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"pizza-dashboard/internal/aggregate"
	"pizza-dashboard/internal/config"
	"pizza-dashboard/internal/middleware"
	"pizza-dashboard/internal/observability"
	"pizza-dashboard/internal/server"
	"pizza-dashboard/internal/services"
	"pizza-dashboard/internal/store"
	"pizza-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "private, max-age=60"
)

func init() {
	// Money values are emitted as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func newDashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		opts := analytics.Filters()
		page := templates.Dashboard(templates.Filters{
			Months:     opts.Months,
			Categories: opts.Categories,
			Sizes:      opts.Sizes,
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newAnalytics(cfg *config.Config) *services.Analytics {
	return services.NewAnalytics(services.Options{
		CacheDir:    cfg.Data.CacheDir,
		SkipInvalid: cfg.Data.SkipInvalid,
		MemoSize:    cfg.Analytics.MemoSize,
		Dashboard: aggregate.Options{
			TopN:           cfg.Analytics.TopN,
			IngredientTopN: cfg.Analytics.IngredientTopN,
		},
	})
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	srv := server.NewServer(analytics, logger, &server.TemplateHandlers{
		Dashboard: newDashboardHandler(analytics),
	})

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"csv_file", cfg.Data.CSVFile,
		"skip_invalid_rows", cfg.Data.SkipInvalid,
	)

	analytics := newAnalytics(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.LoadFromCSV(ctx, cfg.Data.CSVFile); err != nil {
		var loadErr *store.DataLoadError
		var parseErr *store.ParseError
		switch {
		case errors.As(err, &parseErr):
			logger.Error("invalid row in CSV data",
				"row", parseErr.Row,
				"column", parseErr.Column,
				"value", parseErr.Value,
				"hint", "set DATA_SKIP_INVALID_ROWS=true to drop invalid rows",
			)
		case errors.As(err, &loadErr):
			logger.Error("failed to load CSV data", "path", loadErr.Path, "reason", loadErr.Reason, "error", err)
		default:
			logger.Error("failed to load CSV data", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("CSV data loaded successfully", "duration", time.Since(start), "rows", analytics.Set().Len())

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook("analytics", func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.Run(context.Background()); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
