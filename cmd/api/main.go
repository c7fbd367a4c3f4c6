package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/handler"
	apimiddleware "github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/middleware"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/api/router"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/adapter/repository"
	domainrepo "github.com/InbalMary/mistertoy-mongo-backend/internal/domain/repository"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/firebase"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/ratelimit"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/infrastructure/websocket"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/usecase"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/config"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]handler.Check)

	var toyRepo domainrepo.ToyRepository
	switch cfg.DatastoreType {
	case config.DatastoreMongo:
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer client.Disconnect(context.Background())

		mongoRepo := repository.NewMongoToyRepository(client, cfg.MongoDatabase)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to create toy indexes: %v", err)
		}
		checks["mongo"] = mongoRepo.Ping
		toyRepo = mongoRepo
		logger.Info("Using MongoDB database %s", cfg.MongoDatabase)
	case config.DatastoreFirestore:
		if cfg.FirebaseProject == "" {
			log.Fatalf("FIREBASE_PROJECT_ID is required for the firestore datastore")
		}
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, firebase.ClientOptions(cfg)...)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		toyRepo = repository.NewFirestoreToyRepository(firestoreClient)
		logger.Info("Using Firestore project %s", cfg.FirebaseProject)
	case config.DatastoreMemory:
		toyRepo = repository.NewMemoryToyRepository()
		logger.Info("Using in-memory datastore")
	default:
		log.Fatalf("Unknown DATASTORE_TYPE %q", cfg.DatastoreType)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		toyRepo = repository.NewCachedToyRepository(toyRepo, rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("Caching label queries in redis at %s", cfg.RedisAddr)
	}

	var verifier apimiddleware.TokenVerifier
	if cfg.FirebaseProject != "" {
		firebaseApp, err := firebase.NewApp(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)
	} else {
		logger.Warn("FIREBASE_PROJECT_ID not set, authenticated routes will refuse every request")
	}

	limiter := ratelimit.NewLimiter(ratelimit.DefaultRules)
	limiter.StartCleanup(ctx, 30*time.Minute)

	toyUseCase := usecase.NewToyUseCase(toyRepo, uuid.NewString)

	hub := websocket.NewHub(toyUseCase, cfg.WSSendBuffer)
	hub.SetLimiter(limiter)
	hub.Start(ctx)
	toyUseCase.SetNotifier(hub)

	handler.Setup(ctx, toyUseCase, hub, checks)

	e := echo.New()
	e.HideBanner = true
	e.Debug = cfg.IsDevelopment()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	router.Setup(e, apimiddleware.NewAuthMiddleware(verifier), limiter)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down server: %v", err)
	}
}
