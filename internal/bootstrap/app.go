package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ragvault/internal/ai"
	"ragvault/internal/app"
	"ragvault/internal/config"
	"ragvault/internal/events"
	"ragvault/internal/extract"
	"ragvault/internal/ingest"
	"ragvault/internal/model"
	mysqlClient "ragvault/internal/platform/mysql"
	"ragvault/internal/platform/qdrant"
	rabbitmqClient "ragvault/internal/platform/rabbitmq"
	redisClient "ragvault/internal/platform/redis"
	"ragvault/internal/repository"
	"ragvault/internal/vision"
	"ragvault/internal/worker"
)

// App holds every long-lived resource and service. Services are wired here
// rather than in the router because the queue worker shares them.
type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	AuthService       *app.AuthService
	CollectionService *app.CollectionService
	DocumentService   *app.DocumentService
	IngestService     *app.IngestService

	IngestWorker *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Collection{}, &model.Document{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	vectorStore := qdrant.New(cfg.Qdrant.BaseURL, cfg.Qdrant.APIKey)
	aiClient := ai.NewClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		VisionModel:    cfg.LLM.VisionModel,
	})

	var labeler extract.ImageLabeler
	if cfg.Vision.ModelPath != "" && cfg.Vision.LabelsPath != "" {
		labeler = vision.NewClassifier(cfg.Vision.ModelPath, cfg.Vision.LabelsPath, "", 5)
	}
	extractor := extract.New(aiClient, labeler)

	userRepo := repository.NewUserRepository(mysqlDB)
	collectionRepo := repository.NewCollectionRepository(mysqlDB)
	documentRepo := repository.NewDocumentRepository(mysqlDB)

	progress := events.NewPublisher(redisCli)
	jobPublisher := rabbitmqClient.NewJobPublisher(mqConn, cfg.RabbitMQ.IngestQueue)

	authService := app.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpiration)*time.Hour,
	)
	collectionService := app.NewCollectionService(collectionRepo, documentRepo, vectorStore, aiClient)
	documentService := app.NewDocumentService(documentRepo, collectionRepo, vectorStore, aiClient)
	ingestService := app.NewIngestService(
		collectionRepo,
		documentRepo,
		vectorStore,
		aiClient,
		extractor,
		jobPublisher,
		progress,
		ingest.Options{
			ChunkSize:          cfg.Ingest.ChunkSize,
			ChunkOverlap:       cfg.Ingest.ChunkOverlap,
			RecursiveThreshold: cfg.Ingest.RecursiveThreshold,
			BatchSize:          cfg.Ingest.BatchSize,
			BatchDelay:         time.Duration(cfg.Ingest.BatchDelayMs) * time.Millisecond,
		},
		cfg.Ingest.MaxUploadBytes,
	)

	ingestWorker := worker.NewIngestWorker(mqConn, ingestService, cfg.RabbitMQ.IngestQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:            cfg,
		MySQL:             mysqlDB,
		Redis:             redisCli,
		MQConn:            mqConn,
		AuthService:       authService,
		CollectionService: collectionService,
		DocumentService:   documentService,
		IngestService:     ingestService,
		IngestWorker:      ingestWorker,
		StartedAt:         time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
