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

	httpapi "github.com/aussiebroadwan/medmigrate/internal/auth/http"
	"github.com/aussiebroadwan/medmigrate/internal/auth/service"
	"github.com/aussiebroadwan/medmigrate/internal/auth/store"
	mongostore "github.com/aussiebroadwan/medmigrate/internal/auth/store/drivers/mongo"
	"github.com/aussiebroadwan/medmigrate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/medmigrate/pkg/cryptox"
	"github.com/aussiebroadwan/medmigrate/pkg/jwtx"
	"github.com/aussiebroadwan/medmigrate/pkg/mongox"
	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	signer   *jwtx.HS256Signer
	verifier *jwtx.HS256Verifier
	hasher   *cryptox.Hasher

	// Services
	tokenService *service.TokenService
	authService  *service.AuthService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.SecretKey == DefaultSecretKey {
		app.logger.Warn("SECRET_KEY not set, using the insecure default")
	}

	if err := app.initCrypto(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired router.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initCrypto loads the pepper and builds the HS256 signer and verifier.
func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrGeneratePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	secret := []byte(app.cfg.SecretKey)
	if app.signer, err = jwtx.NewSignerHS256(secret); err != nil {
		return fmt.Errorf("failed to create token signer: %w", err)
	}
	if app.verifier, err = jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{
		Issuer: app.cfg.Issuer,
	}); err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	app.logger.Info("token signer ready",
		"alg", app.signer.Alg(),
		"secret_fingerprint", cryptox.Fingerprint(app.cfg.SecretKey),
		"access_ttl", app.cfg.AccessTTL,
	)
	return nil
}

// initDatabase opens the configured credential store and applies migrations
func (app *Application) initDatabase() error {
	ctx := context.Background()

	switch app.cfg.StoreDriver {
	case DriverSQLite:
		db, err := sqlite.NewStore(app.cfg.DatabaseFile)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	case DriverMongo:
		client, err := mongox.Connect(ctx, app.cfg.MongoURI, mongox.DefaultConnectTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		app.db = mongostore.NewStore(client, app.cfg.MongoDB, app.cfg.MongoUsersCollection)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, app.cfg.StoreDriver)
	}

	if err := app.db.ApplyMigrations(ctx); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Signer:    app.signer,
		Verifier:  app.verifier,
		Issuer:    app.cfg.Issuer,
		AccessTTL: app.cfg.AccessTTL,
	}

	app.authService = &service.AuthService{
		Store:  app.db,
		Hasher: app.hasher,
		Tokens: app.tokenService,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.authService,
		app.db,
		app.signer,
		app.cfg.Limits,
		BuildVersion,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
