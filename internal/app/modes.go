package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/optionlab/internal/server"
	"github.com/alanyoungcy/optionlab/internal/server/handler"
	"github.com/alanyoungcy/optionlab/internal/server/ws"
	"github.com/alanyoungcy/optionlab/internal/service"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// services holds the service layer built over Dependencies. Scenarios and
// Archives are nil when their stores are not wired.
type services struct {
	Rates     *service.RateService
	Pricing   *service.PricingService
	Scenarios *service.ScenarioService
	Archives  *service.ArchiveService
}

func (a *App) buildServices(deps *Dependencies) *services {
	svc := &services{}
	svc.Rates = service.NewRateService(deps.RateCache, deps.SignalBus,
		a.cfg.Rate.Default, a.cfg.Rate.MaxAge.Duration, a.logger)
	svc.Pricing = service.NewPricingService(deps.Solver, svc.Rates, deps.QuoteCache, deps.SignalBus, a.logger)

	if deps.ScenarioStore != nil {
		svc.Scenarios = service.NewScenarioService(deps.ScenarioStore, svc.Pricing, deps.SignalBus, a.logger)
	}
	if deps.Archiver != nil && deps.BlobReader != nil {
		svc.Archives = service.NewArchiveService(
			deps.Archiver, deps.BlobReader, deps.LockManager, deps.SignalBus,
			a.cfg.Archive.RetentionDays, archivePrefix(a.cfg), a.logger,
		)
	}
	return svc
}

// CalcMode serves pricing, curves and the rate over HTTP. Only Redis is needed.
func (a *App) CalcMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting calc mode")
	return a.serve(ctx, deps)
}

// ServerMode is calc mode plus saved scenarios.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	return a.serve(ctx, deps)
}

// serve runs the HTTP server and notifier over whatever deps has wired.
func (a *App) serve(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, a.buildServices(deps), nil)
	a.startNotifier(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode runs one archival pass and returns.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	svc := a.buildServices(deps)
	if svc.Archives == nil {
		return errors.New("archive mode: archiver not wired (needs postgres and s3)")
	}
	n, err := svc.Archives.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}
	a.logger.InfoContext(ctx, "archive mode finished", slog.Int64("archived", n))
	return nil
}

// FullMode runs the HTTP server, the notifier and, when enabled, the
// periodic archiver that POST /api/archives/run can also trigger.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svc := a.buildServices(deps)

	var triggerCh chan struct{}
	if a.cfg.Archive.Enabled && svc.Archives != nil {
		triggerCh = make(chan struct{}, 1)
		archives := svc.Archives.WithTrigger(triggerCh)
		interval := a.cfg.Archive.Interval.Duration
		g.Go(func() error {
			return archives.Run(ctx, interval)
		})
	} else {
		a.logger.InfoContext(ctx, "full mode: periodic archiving disabled")
	}

	a.startHTTPServer(ctx, g, deps, svc, triggerCh)
	a.startNotifier(ctx, g, deps)
	return g.Wait()
}

// startNotifier forwards bus alerts to the configured senders.
func (a *App) startNotifier(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Notifier == nil || !deps.Notifier.Enabled() || deps.SignalBus == nil {
		return
	}
	g.Go(func() error {
		return deps.Notifier.Run(ctx, deps.SignalBus)
	})
}

// startHTTPServer registers the API and WebSocket hub and serves until ctx
// is cancelled. archiveTriggerCh is optional; when non-nil,
// POST /api/archives/run sends on it to request one archive run.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	svc *services,
	archiveTriggerCh chan<- struct{},
) {
	health := handler.NewHealthHandler(a.logger)
	for name, check := range deps.Checks {
		health.WithCheck(name, check)
	}

	handlers := server.Handlers{
		Health: health,
		Status: handler.NewStatusHandler(a.cfg.Mode, a.startedAt, deps.Solver.Config()),
		Quotes: handler.NewQuoteHandler(svc.Pricing, a.logger),
		Rate:   handler.NewRateHandler(svc.Rates, a.logger),
	}
	if svc.Scenarios != nil {
		handlers.Scenarios = handler.NewScenarioHandler(svc.Scenarios, a.logger)
	}
	if svc.Archives != nil {
		ah := handler.NewArchiveHandler(svc.Archives, a.logger)
		if archiveTriggerCh != nil {
			ah = ah.WithTriggerChannel(archiveTriggerCh)
		}
		handlers.Archives = ah
	}
	if deps.AuditStore != nil {
		handlers.Audit = handler.NewAuditHandler(deps.AuditStore, a.logger)
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:           a.cfg.Mode,
		StartedAt:      a.startedAt,
		AllowedOrigins: a.cfg.Server.CORSOrigins,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		APIKeyHash:  a.cfg.Server.APIKeyHash,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
		Limiter:     deps.RateLimiter,

		TrustedProxies: a.cfg.Server.TrustedProxies,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
