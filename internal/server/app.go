// Package server wires the feature board together: configuration, the
// PostgreSQL store, the services, the gRPC endpoint and the metrics listener.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/logging"
	"github.com/dmitrijs2005/featureboard/internal/server/auth"
	"github.com/dmitrijs2005/featureboard/internal/server/config"
	"github.com/dmitrijs2005/featureboard/internal/server/mailer"
	"github.com/dmitrijs2005/featureboard/internal/server/metrics"
	"github.com/dmitrijs2005/featureboard/internal/server/ratelimit"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/featureboard/internal/server/services"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/featureboard/internal/server/grpc"
)

// limiterSweepInterval is how often expired login windows are dropped.
const limiterSweepInterval = time.Minute

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	registry    *prometheus.Registry
	clock       clockwork.Clock
	limiter     *ratelimit.Limiter

	userService    *services.UserService
	requestService *services.RequestService
	voteService    *services.VoteService
	accountService *services.AccountService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db, "featureboard"))
	mt := metrics.New(reg)

	clock := clockwork.NewRealClock()
	limiter := ratelimit.New(clock, c.LoginMaxAttempts, c.LoginWindow)
	hasher := auth.NewBcryptHasher(c.BcryptCost)
	sender := mailer.NewLogSender(logger)
	rm := repomanager.NewPostgresRepositoryManager()

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		repomanager:    rm,
		registry:       reg,
		clock:          clock,
		limiter:        limiter,
		userService:    services.NewUserService(db, rm, c, hasher, sender, limiter, logger, mt),
		requestService: services.NewRequestService(db, rm, logger, mt),
		voteService:    services.NewVoteService(db, rm, logger, mt),
		accountService: services.NewAccountService(db, rm, hasher, c, logger, mt),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context) error {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger,
		app.userService, app.requestService, app.voteService, app.accountService, app.config.SecretKey).
		WithTrustedProxy(app.config.TrustProxyHeaders)

	return s.Run(ctx)
}

func (app *App) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{Registry: app.registry}))
	return mux
}

func (app *App) startMetricsServer(ctx context.Context) error {
	if app.config.MetricsAddr == "" {
		return nil
	}

	srv := &http.Server{
		Addr:              app.config.MetricsAddr,
		Handler:           app.metricsHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Serving metrics", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sweepLimiter drops expired login windows until ctx is done.
func (app *App) sweepLimiter(ctx context.Context, every time.Duration) {
	ticker := app.clock.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := app.limiter.Sweep(); n > 0 {
				app.logger.Debug(ctx, "login windows swept", "count", n)
			}
		}
	}
}

// Run applies migrations and serves until a signal arrives or a listener
// fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, "migration error", "error", err)
		return fmt.Errorf("migration error: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.startGRPCServer(gctx)
	})
	g.Go(func() error {
		return app.startMetricsServer(gctx)
	})
	g.Go(func() error {
		app.sweepLimiter(gctx, limiterSweepInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}
	return nil
}
