package app

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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	"github.com/aussiebroadwan/issuer/internal/issuer/chain"
	httpapi "github.com/aussiebroadwan/issuer/internal/issuer/http"
	"github.com/aussiebroadwan/issuer/internal/issuer/metadata"
	"github.com/aussiebroadwan/issuer/internal/issuer/risk"
	"github.com/aussiebroadwan/issuer/internal/issuer/service"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/postgres"
	"github.com/aussiebroadwan/issuer/internal/issuer/store/drivers/sqlite"
	"github.com/aussiebroadwan/issuer/pkg/cryptox"
	"github.com/aussiebroadwan/issuer/pkg/jwtx"
	"github.com/aussiebroadwan/issuer/pkg/otelx"
	"github.com/aussiebroadwan/issuer/pkg/ratelimit"
	"github.com/aussiebroadwan/issuer/pkg/sigauth"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "credential-issuer"
)

// Application encapsulates the issuer service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db           store.Store
	keyManager   *jwtx.KeyManager
	sealer       *cryptox.Sealer
	otelShutdown otelx.ShutdownFunc

	// Rate limiting
	limiter     *ratelimit.Limiter
	limiterPing httpapi.PingFunc
	purgers     []service.Purger
	redis       *redis.Client

	// Chain
	eth       *ethclient.Client
	submitter *chain.Submitter
	minter    *chain.Minter

	publisher metadata.Publisher
	riskGate  *risk.Gate

	// Services
	sessionService      *service.SessionService
	delegationService   *service.DelegationService
	issuanceService     *service.IssuanceService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// On error anything already opened is closed again.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	ready := false
	defer func() {
		if !ready {
			_ = app.closeAll(context.Background())
		}
	}()

	ctx := context.Background()

	var err error
	app.otelShutdown, err = otelx.Setup(ctx, otelx.Config{
		Service:  serviceName,
		Version:  BuildVersion,
		Env:      cfg.Env,
		Endpoint: cfg.OTelEndpoint,
		Insecure: cfg.OTelInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if err = app.initDatabase(); err != nil {
		return nil, err
	}
	if err = app.initRateLimiter(ctx); err != nil {
		return nil, err
	}

	if app.keyManager, err = InitSessionKeys(cfg, app.logger); err != nil {
		return nil, fmt.Errorf("failed to initialize session keys: %w", err)
	}
	if app.sealer, err = InitPayloadSealer(cfg, app.logger); err != nil {
		return nil, fmt.Errorf("failed to initialize payload sealer: %w", err)
	}

	if err = app.initChain(ctx); err != nil {
		return nil, err
	}

	app.publisher, err = metadata.New(ctx, metadata.Config{
		Backend:   metadata.Backend(cfg.MetadataBackend),
		Bucket:    cfg.MetadataBucket,
		Prefix:    cfg.MetadataPrefix,
		Region:    cfg.MetadataRegion,
		Endpoint:  cfg.MetadataEndpoint,
		Dir:       cfg.MetadataDir,
		PublicURL: cfg.MetadataPublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata publisher: %w", err)
	}

	if err = app.initRisk(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	ready = true
	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("issuer service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"backend", app.submitter.Address().Hex(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application. In-flight issuances keep
// running on their detached contexts until the grace period ends.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down issuer service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeAll(ctx); err != nil {
		return err
	}

	app.logger.Info("issuer service stopped")
	return nil
}

// closeAll releases every opened dependency and returns the database close
// error, the only one that can lose data.
func (app *Application) closeAll(ctx context.Context) error {
	if app.eth != nil {
		app.eth.Close()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if app.otelShutdown != nil {
		if err := app.otelShutdown(ctx); err != nil {
			app.logger.Error("error flushing telemetry", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			return err
		}
	}
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initRateLimiter picks the limiter backend. Backend errors let the request
// through and are counted.
func (app *Application) initRateLimiter(ctx context.Context) error {
	var backend ratelimit.Backend

	switch app.cfg.RateLimitBackend {
	case "redis":
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		rb := ratelimit.NewRedisBackend(app.redis, app.cfg.RedisPrefix)
		if err := rb.Ping(ctx); err != nil {
			// Fail open: the limiter allows requests until Redis comes back.
			app.logger.Warn("redis unreachable at startup", "addr", app.cfg.RedisAddr, "error", err)
		}
		backend = rb
		app.limiterPing = rb.Ping
	case "memory":
		mb := ratelimit.NewMemoryBackend()
		backend = mb
		app.purgers = append(app.purgers, mb)
	default:
		sb := store.NewRateLimitBackend(app.db)
		backend = sb
		app.purgers = append(app.purgers, sb)
		app.limiterPing = app.db.Ping
	}

	errorsCounter, err := otelx.Meter().Int64Counter("issuer.ratelimit.backend_errors",
		metric.WithDescription("Rate limit checks that failed open because the backend errored"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit metrics: %w", err)
	}

	app.limiter = ratelimit.New(backend,
		ratelimit.WithLogger(app.logger),
		ratelimit.WithErrorHook(func(ctx context.Context, _ string, _ error) {
			errorsCounter.Add(ctx, 1)
		}),
	)

	app.logger.Info("rate limiter ready", "backend", app.cfg.RateLimitBackend)
	return nil
}

// initChain dials the RPC node and builds the minter
func (app *Application) initChain(ctx context.Context) error {
	key, err := chain.ParsePrivateKey(app.cfg.BackendPrivateKey)
	if err != nil {
		return err
	}

	for name, v := range map[string]string{
		"CREDENTIAL_CONTRACT": app.cfg.CredentialContract,
		"DELEGATION_MANAGER":  app.cfg.DelegationManager,
	} {
		if !common.IsHexAddress(v) {
			return fmt.Errorf("%s is not a valid address", name)
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	app.submitter, app.eth, err = chain.Dial(dialCtx, app.cfg.ChainRPCURL, app.cfg.ChainID, key,
		chain.WithConfirmTimeout(app.cfg.ChainConfirmTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to chain: %w", err)
	}

	app.minter, err = chain.NewMinter(app.submitter,
		common.HexToAddress(app.cfg.DelegationManager),
		common.HexToAddress(app.cfg.CredentialContract),
	)
	if err != nil {
		return err
	}

	app.logger.Info("chain connected", "backend", app.submitter.Address().Hex())
	return nil
}

// initRisk builds the gate. An indexer URL takes priority over the local
// issuance history; a model URL enables the model path with rules fallback.
func (app *Application) initRisk() error {
	var source risk.DataSource
	if app.cfg.RiskIndexerURL != "" {
		source = risk.NewIndexerSource(app.cfg.RiskIndexerURL, 0)
	} else {
		source = risk.NewStoreSource(app.db, app.cfg.VerifiedIssuers)
	}

	var opts []risk.GateOption
	if app.cfg.RiskModelURL != "" {
		model, err := risk.NewModelAnalyzer(risk.ModelConfig{
			BaseURL: app.cfg.RiskModelURL,
			APIKey:  app.cfg.RiskModelAPIKey,
			Model:   app.cfg.RiskModelName,
			Timeout: app.cfg.RiskModelTimeout,
			RPS:     app.cfg.RiskModelRPS,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize risk model: %w", err)
		}
		opts = append(opts, risk.WithModel(model))
		app.logger.Info("risk model enabled", "model", app.cfg.RiskModelName)
	}

	app.riskGate = risk.NewGate(source, opts...)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Keys:   app.keyManager,
		Issuer: app.cfg.SessionIssuer,
		TTL:    app.cfg.SessionTTL,
	}

	app.delegationService = &service.DelegationService{
		Store:          app.db,
		Sealer:         app.sealer,
		BackendAddress: sigauth.NormalizeAddress(app.submitter.Address().Hex()),
	}

	app.issuanceService = &service.IssuanceService{
		Store:        app.db,
		Sealer:       app.sealer,
		Risk:         app.riskGate,
		Publisher:    app.publisher,
		Minter:       app.minter,
		ChainTimeout: app.cfg.ChainConfirmTimeout,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.logger,
		app.cfg.HousekeepingInterval,
		app.purgers...,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		sigauth.NewVerifier(),
		app.limiter,
		app.cfg.RateLimits,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.SessionService = app.sessionService
	router.DelegationService = app.delegationService
	router.IssuanceService = app.issuanceService
	router.RiskGate = app.riskGate
	router.ChainPing = app.submitter.Ping
	router.LimiterPing = app.limiterPing
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
