// Package bootstrap builds the application object graph from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/auth"
	"docflow-backend/internal/documents"
	"docflow-backend/internal/ingestion"
	"docflow-backend/internal/processing"
	sharedauth "docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/server"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/storage/db"
	"docflow-backend/internal/shared/storage/object"
	localstore "docflow-backend/internal/shared/storage/object/local"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/users"
)

// devJWTSecret keeps local development working without configuration. Any
// non-dev environment must set JWT_SECRET.
const devJWTSecret = "dev-insecure-secret"

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Tokens *sharedauth.TokenManager

	UsersService     *users.Service
	DocumentsService *documents.Service
	IngestionService *ingestion.Service
	AuthService      *auth.Service
	Dispatcher       *ingestion.Dispatcher
	Processing       processing.Client
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	uploadDir := cfg.UploadDir
	if strings.TrimSpace(uploadDir) == "" {
		uploadDir = "./uploads"
	}
	store := localstore.New(uploadDir)

	tokens, err := buildTokens(cfg)
	if err != nil {
		return nil, err
	}

	var usersRepo users.Repo
	var docsRepo documents.Repo
	var jobsRepo ingestion.Repo
	if sqlDB != nil {
		usersRepo = &users.PGRepo{DB: sqlDB}
		docsRepo = &documents.PGRepo{DB: sqlDB}
		jobsRepo = &ingestion.PGRepo{DB: sqlDB}
	} else {
		usersRepo = users.NewMemoryRepo()
		docsRepo = documents.NewMemoryRepo()
		jobsRepo = ingestion.NewMemoryRepo()
	}

	usersSvc := users.NewService(usersRepo)
	docsSvc := &documents.Service{
		Store:        store,
		Repo:         docsRepo,
		Jobs:         jobsRepo,
		AllowedTypes: cfg.AllowedMimeTypes,
		MaxBytes:     cfg.MaxUploadBytes,
	}

	procClient, err := buildProcessing(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := ingestion.NewDispatcher(jobsRepo, docsSvc, procClient, ingestion.DispatcherOptions{
		Workers:   cfg.DispatchWorkers,
		QueueSize: cfg.DispatchQueueSize,
		Timeout:   cfg.ProcessingTimeout,
	})
	jobsSvc := ingestion.NewService(jobsRepo, docsSvc, dispatcher, cfg.JobMaxRetries)

	authSvc := auth.NewService(usersSvc, tokens)

	if err := usersSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, err
	}

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Store:            store,
		Tokens:           tokens,
		UsersService:     usersSvc,
		DocumentsService: docsSvc,
		IngestionService: jobsSvc,
		AuthService:      authSvc,
		Dispatcher:       dispatcher,
		Processing:       procClient,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		Tokens:           tokens,
		AuthHandler:      auth.NewHandler(authSvc, middleware.NewRateLimiter(nil)),
		UsersHandler:     users.NewHandler(usersSvc),
		DocumentsHandler: documents.NewHandler(docsSvc),
		IngestionHandler: ingestion.NewHandler(jobsSvc),
	})

	return app, nil
}

// Close releases background workers and connections.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.Env == "dev" || cfg.Env == "test" {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{
				"reason": "DATABASE_URL empty",
			})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required when ENV=%s", cfg.Env)
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultServerOptions())
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildTokens(cfg config.Config) (*sharedauth.TokenManager, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		if cfg.Env != "dev" && cfg.Env != "test" {
			return nil, fmt.Errorf("JWT_SECRET is required when ENV=%s", cfg.Env)
		}
		telemetry.Warn("bootstrap.dev_jwt_secret", nil)
		secret = devJWTSecret
	}
	return sharedauth.NewTokenManager(secret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

func buildProcessing(cfg config.Config) (processing.Client, error) {
	if strings.TrimSpace(cfg.ProcessingBaseURL) == "" {
		telemetry.Warn("bootstrap.processing_stub", map[string]any{
			"reason": "PROCESSING_SERVICE_URL empty",
		})
		return &processing.StubClient{}, nil
	}
	return processing.NewHTTPClient(cfg.ProcessingBaseURL, cfg.ProcessingTimeout)
}
