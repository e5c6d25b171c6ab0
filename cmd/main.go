package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/celestiaorg/vidbatch/config"
	"github.com/celestiaorg/vidbatch/internal/cache"
	"github.com/celestiaorg/vidbatch/internal/db"
	"github.com/celestiaorg/vidbatch/internal/db/docstore"
	"github.com/celestiaorg/vidbatch/internal/db/repos"
	"github.com/celestiaorg/vidbatch/internal/enhance"
	"github.com/celestiaorg/vidbatch/internal/logger"
	"github.com/celestiaorg/vidbatch/internal/queue"
	"github.com/celestiaorg/vidbatch/internal/services"
	"github.com/celestiaorg/vidbatch/internal/tabular"
	"github.com/celestiaorg/vidbatch/internal/types"
	"github.com/celestiaorg/vidbatch/internal/video"
	"github.com/celestiaorg/vidbatch/pkg/api/v1/handlers"
	"github.com/celestiaorg/vidbatch/pkg/api/v1/routes"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// A missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.InitializeAndConfigure(logger.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer closeStores()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
	}
	opCache := cache.New(rdb)
	jobQueue := queue.NewRedisQueue(rdb, cfg.QueueName)

	videoClient, err := newVideoClient(cfg)
	if err != nil {
		logger.Fatalf("Failed to create video client: %v", err)
	}

	var suggester services.PromptSuggester
	if cfg.GeminiAPIKey != "" {
		gen, err := enhance.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Fatalf("Failed to create text model client: %v", err)
		}
		defer func() { _ = gen.Close() }()
		suggester = enhance.NewSuggester(gen)
	} else {
		logger.Warn("GEMINI_API_KEY is not set, prompt enhancement is disabled")
	}

	if err := os.MkdirAll(cfg.MediaRoot, 0o750); err != nil {
		logger.Fatalf("Failed to create media root %s: %v", cfg.MediaRoot, err)
	}

	// Services
	reader := tabular.NewReader()
	retry := services.NewRetryController(services.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		Delay:       cfg.RetryDelay,
		Backoff:     cfg.RetryBackoff,
	})
	jobService := services.NewVideoJobService(stores.Jobs, stores.Projects)
	dispatcher := services.NewDispatcher(stores, jobService, reader, videoClient, opCache, jobQueue, retry,
		services.DispatcherConfig{OperationTTL: cfg.OperationTTL})
	reconciler := services.NewReconciler(jobService, videoClient, opCache, services.ReconcilerConfig{
		StaleAfter:  cfg.OperationTTL,
		Parallelism: cfg.ReconcileParallel,
	})
	projectService := services.NewProjectService(stores, reader, suggester, cfg.MediaRoot)

	// Handlers
	projectHandler := handlers.NewProjectHandler(projectService, dispatcher)
	promptHandler := handlers.NewPromptHandler(projectService)
	jobHandler := handlers.NewJobHandler(jobService, reconciler)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		// the wait endpoint holds requests open up to handlers.MaxWait
		WriteTimeout: handlers.MaxWait + time.Minute,
	})
	app.Use(recover.New())
	app.Use(logger.APILogger())
	routes.RegisterRoutes(app, projectHandler, promptHandler, jobHandler)

	// Background workers
	wg := &sync.WaitGroup{}
	wg.Add(2)
	go services.LaunchWorker(ctx, wg, dispatcher, jobQueue, cfg.WorkerConcurrency)
	go services.LaunchReconciler(ctx, wg, reconciler, cfg.ReconcileInterval)

	if n, err := dispatcher.ResumePending(ctx); err != nil {
		logger.Errorf("Failed to resume pending jobs: %v", err)
	} else if n > 0 {
		logger.Infof("Re-enqueued %d pending jobs", n)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Listening on %s", cfg.Address)
	if err := app.Listen(cfg.Address); err != nil {
		logger.Errorf("Server stopped: %v", err)
		stop()
	}

	wg.Wait()
	logger.Info("Shutdown complete")
}

// openStores connects the configured backend and returns its stores and a closer
func openStores(ctx context.Context, cfg *config.Config) (services.Stores, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMongo:
		client, database, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return services.Stores{}, nil, err
		}
		closer := func() { disconnect(client) }
		if err := docstore.EnsureIndexes(ctx, database); err != nil {
			closer()
			return services.Stores{}, nil, err
		}
		return services.Stores{
			Projects:  docstore.NewProjectStore(database),
			DataFiles: docstore.NewDataFileStore(database),
			Templates: docstore.NewPromptTemplateStore(database),
			Jobs:      docstore.NewVideoJobStore(database),
		}, closer, nil
	default:
		sslEnabled := cfg.DBSSLEnabled
		gdb, err := db.New(db.Options{
			Host:        cfg.DBHost,
			User:        cfg.DBUser,
			Password:    cfg.DBPassword,
			DBName:      cfg.DBName,
			Port:        cfg.DBPort,
			SSLEnabled:  &sslEnabled,
			AutoMigrate: true,
		})
		if err != nil {
			return services.Stores{}, nil, err
		}
		closer := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return services.Stores{
			Projects:  repos.NewProjectRepository(gdb),
			DataFiles: repos.NewDataFileRepository(gdb),
			Templates: repos.NewPromptTemplateRepository(gdb),
			Jobs:      repos.NewVideoJobRepository(gdb),
		}, closer, nil
	}
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Warnf("Failed to disconnect from mongo: %v", err)
	}
}

// newVideoClient builds the configured provider behind the submission rate limit
func newVideoClient(cfg *config.Config) (video.Client, error) {
	var client video.Client
	switch cfg.VideoProvider {
	case config.VideoProviderMock:
		logger.Warn("Using the mock video provider, no real videos will be generated")
		client = video.NewMockClient(30 * time.Second)
	default:
		veo, err := video.NewVeoClient(video.VeoConfig{
			APIKey:  cfg.VeoAPIKey,
			BaseURL: cfg.VeoBaseURL,
			Model:   cfg.VeoModel,
		})
		if err != nil {
			return nil, err
		}
		client = veo
	}
	return video.NewRateLimited(client, cfg.VideoSubmitRate, cfg.VideoBurst), nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	slug := types.ServerErrorSlug
	switch code {
	case fiber.StatusNotFound:
		slug = types.NotFoundSlug
	case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge:
		slug = types.InvalidInputSlug
	}
	return c.Status(code).JSON(types.Failure(slug, err.Error()))
}
