package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"compliance-backend/internal/companies"
	"compliance-backend/internal/credits"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/drivers"
	"compliance-backend/internal/extraction"
	"compliance-backend/internal/extraction/httpsvc"
	openaiextract "compliance-backend/internal/extraction/openai"
	"compliance-backend/internal/importer"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/reminders"
	"compliance-backend/internal/shared/auth"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/server"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/storage/object"
	localstore "compliance-backend/internal/shared/storage/object/local"
	miniostore "compliance-backend/internal/shared/storage/object/minio"
	s3store "compliance-backend/internal/shared/storage/object/s3"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/verification"
)

// App holds shared dependencies for the API and the worker.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Redis        *redis.Client
	Store        object.Bucket
	LocalStore   *localstore.Store
	Queue        queue.Client
	Verifier     *auth.Verifier
	Companies    *companies.Service
	Drivers      *drivers.Service
	Documents    *documents.Service
	Credits      *credits.Service
	Orchestrator *extraction.Orchestrator
	Onboarding   *verification.Workflow
	Sweeper      *reminders.Sweeper
	Applier      *reminders.Applier
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	return BuildWithOptions(cfg, db.DefaultServerOptions())
}

// BuildWithOptions is Build with explicit database pool settings.
func BuildWithOptions(cfg config.Config, dbOpts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, dbOpts)
	if err != nil {
		return nil, err
	}

	rdb, err := buildRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, local, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     cfg,
		DB:         sqlDB,
		Redis:      rdb,
		Store:      store,
		LocalStore: local,
		Verifier:   verifier,
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Bucket, *localstore.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		return store, nil, err
	case "minio":
		store, err := miniostore.New(miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			Region:    cfg.AWSRegion,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		local := localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL, cfg.UploadSigningSecret)
		return local, local, nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config, applier *reminders.Applier) (queue.Client, error) {
	if strings.TrimSpace(cfg.ReminderQueueURL) == "" {
		// Without a queue the sweeper hands reminders straight to the applier.
		return queue.FuncClient(applier.ApplyReminder), nil
	}
	return queue.NewSQSClient(ctx, cfg.ReminderQueueURL, cfg.AWSRegion)
}

func buildExtractor(cfg config.Config, store object.Store) (extraction.Extractor, error) {
	switch cfg.Extractor {
	case "http":
		client, err := httpsvc.New(cfg.ExtractionURL, cfg.ExtractionAPIKey, store)
		if err != nil {
			return nil, err
		}
		return extraction.WithRetry(client), nil
	case "openai":
		client, err := openaiextract.New(cfg.OpenAIAPIKey, cfg.LLMModel, store, cfg.ExtractionWorkers)
		if err != nil {
			return nil, err
		}
		return extraction.WithRetry(client), nil
	default:
		return nil, nil
	}
}

func buildServices(ctx context.Context, app *App) error {
	var (
		companyRepo companies.Repo
		driverRepo  drivers.Repo
		docRepo     documents.Repo
		ledger      credits.Ledger
		sent        reminders.SentLog
		sessions    verification.SessionStore
	)

	if app.DB != nil {
		companyRepo = &companies.PGRepo{DB: app.DB}
		driverRepo = &drivers.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
		ledger = credits.NewPGLedger(app.DB)
		sent = reminders.NewPGSentLog(app.DB)
	} else {
		companyRepo = companies.NewMemoryRepo()
		driverRepo = drivers.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
		ledger = credits.NewMemoryLedger()
		sent = reminders.NewMemorySentLog()
	}
	if app.Redis != nil {
		if app.DB == nil {
			ledger = credits.NewRedisLedger(app.Redis)
		}
		sessions = verification.NewRedisStore(app.Redis)
	} else {
		sessions = verification.NewMemoryStore()
	}

	creditSvc := credits.NewService(ledger)
	companySvc := &companies.Service{
		Repo:               companyRepo,
		Credits:            creditSvc,
		DefaultDriverLimit: app.Config.DefaultDriverLimit,
		DefaultCredits:     app.Config.DefaultCredits,
	}
	docSvc := &documents.Service{
		Repo:      docRepo,
		Presigner: app.Store,
		Objects:   app.Store,
		Companies: companySvc,
		GrantTTL:  app.Config.UploadGrantTTL,
	}
	driverSvc := &drivers.Service{
		Repo:      driverRepo,
		Documents: docSvc,
		Companies: companySvc,
	}
	docSvc.Drivers = driverSvc

	extractor, err := buildExtractor(app.Config, app.Store)
	if err != nil {
		return err
	}
	orch := &extraction.Orchestrator{
		Documents: docSvc,
		Credits:   creditSvc,
		Extractor: extractor,
		Types:     companySvc,
	}
	onboarding := &verification.Workflow{
		Store:     sessions,
		Scanner:   orch,
		Credits:   creditSvc,
		Documents: docSvc,
		Drivers:   driverSvc,
	}

	applier := &reminders.Applier{Documents: docRepo}
	queueClient, err := buildQueue(ctx, app.Config, applier)
	if err != nil {
		return err
	}
	sweeper := &reminders.Sweeper{
		Documents: docRepo,
		Companies: companySvc,
		Sent:      sent,
		Queue:     queueClient,
	}

	app.Queue = queueClient
	app.Companies = companySvc
	app.Drivers = driverSvc
	app.Documents = docSvc
	app.Credits = creditSvc
	app.Orchestrator = orch
	app.Onboarding = onboarding
	app.Sweeper = sweeper
	app.Applier = applier

	creditHandler := credits.NewHandler(creditSvc)
	deps := server.RouterDeps{
		Config:   app.Config,
		Verifier: app.Verifier,
		Handlers: []server.RouteRegistrar{
			companies.NewHandler(companySvc),
			drivers.NewHandler(driverSvc),
			documents.NewHandler(docSvc),
			importer.NewHandler(driverSvc),
			extraction.NewHandler(orch),
			verification.NewHandler(onboarding),
			creditHandler,
		},
		Dev: []server.DevRouteRegistrar{creditHandler},
	}
	if app.LocalStore != nil {
		deps.LocalUploads = app.LocalStore
	}
	if app.DB != nil {
		deps.DB = app.DB
	}
	app.Router = server.NewRouter(deps)

	if app.Router == nil {
		return errors.New("failed to initialize router")
	}
	return nil
}
