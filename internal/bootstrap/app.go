package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ai-teacher/internal/ai"
	"ai-teacher/internal/cache"
	"ai-teacher/internal/config"
	"ai-teacher/internal/platform/logger"
	mysqlClient "ai-teacher/internal/platform/mysql"
	rabbitmqClient "ai-teacher/internal/platform/rabbitmq"
	redisClient "ai-teacher/internal/platform/redis"
	"ai-teacher/internal/repository"
	"ai-teacher/internal/session"
	"ai-teacher/internal/topic"
	"ai-teacher/internal/vectorstore"
	"ai-teacher/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	Sessions session.Store
	Topics   *topic.Registry
	Stores   *vectorstore.Manager

	Watsonx *ai.WatsonxClient
	OpenAI  *ai.OpenAIClient
	Speech  *ai.SpeechClient

	// Optional persistence. Each is nil when its backend is not configured.
	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	Turns        *repository.ChatTurnRepository
	Documents    *repository.DocumentRepository
	HistoryCache *cache.HistoryCache
	Publisher    *rabbitmqClient.TurnPublisher
	TurnWorker   *worker.TurnPersistWorker

	StartedAt time.Time

	stopSweeper context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	app := &App{
		Config:    cfg,
		Logger:    log,
		StartedAt: time.Now(),
	}
	if err := app.connect(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	if cfg.MySQL.Host != "" {
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return err
		}
		a.MySQL = db
		if err := mysqlClient.Migrate(db); err != nil {
			return err
		}
		a.Turns = repository.NewChatTurnRepository(db)
		a.Documents = repository.NewDocumentRepository(db)
	}

	if cfg.Redis.Addr != "" {
		client, err := redisClient.New(ctx, redisClient.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			ClientName: cfg.App.Name,
			PoolSize:   cfg.Redis.PoolSize,
		})
		if err != nil {
			return err
		}
		a.Redis = client
		a.HistoryCache = cache.NewHistoryCache(client, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second, 0)
	}

	sessionTTL := time.Duration(cfg.Session.TTLMinute) * time.Minute
	switch cfg.Session.Backend {
	case "redis":
		if a.Redis == nil {
			return fmt.Errorf("session backend redis needs redis.addr")
		}
		a.Sessions = session.NewRedisStore(a.Redis, sessionTTL, "")
	default:
		mem := session.NewMemoryStore(sessionTTL, a.Logger)
		sweepCtx, cancel := context.WithCancel(context.Background())
		a.stopSweeper = cancel
		mem.StartSweeper(sweepCtx, time.Duration(cfg.Session.SweepIntervalSeconds)*time.Second)
		a.Sessions = mem
	}

	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		a.MQConn = conn
		a.Publisher = rabbitmqClient.NewTurnPublisher(conn, cfg.RabbitMQ.TurnPersistQueue)
		if a.Turns != nil {
			a.TurnWorker = worker.NewTurnPersistWorker(conn, a.Turns, cfg.RabbitMQ.TurnPersistQueue, a.Logger)
			if err := a.TurnWorker.Start(ctx); err != nil {
				return fmt.Errorf("start turn worker failed: %w", err)
			}
		}
	}

	a.Topics = topic.NewRegistry(cfg.Storage.TopicsDir, a.Logger)
	if err := a.Topics.Refresh(); err != nil {
		return fmt.Errorf("load topics failed: %w", err)
	}

	openaiCfg := ai.OpenAIConfig{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		ChatModel:          cfg.OpenAI.ChatModel,
		Temperature:        cfg.OpenAI.Temperature,
		ImageModel:         cfg.OpenAI.ImageModel,
		ImageSize:          cfg.OpenAI.ImageSize,
		EmbeddingModel:     cfg.OpenAI.EmbeddingModel,
		EmbeddingDimension: cfg.OpenAI.EmbeddingDimension,
	}
	a.OpenAI = ai.NewOpenAIClient(openaiCfg)
	a.Stores = vectorstore.NewManager(ai.NewOpenAIEmbedder(openaiCfg), a.Logger)

	a.Watsonx = ai.NewWatsonxClient(ai.WatsonxConfig{
		URL:               cfg.Watsonx.URL,
		IAMURL:            cfg.Watsonx.IAMURL,
		APIKey:            cfg.Watsonx.APIKey,
		ProjectID:         cfg.Watsonx.ProjectID,
		ModelID:           cfg.Watsonx.ModelID,
		MaxNewTokens:      cfg.Watsonx.MaxNewTokens,
		RepetitionPenalty: cfg.Watsonx.RepetitionPenalty,
	})
	a.Speech = ai.NewSpeechClient(ai.SpeechConfig{
		Key:          cfg.Speech.Key,
		Region:       cfg.Speech.Region,
		Voice:        cfg.Speech.Voice,
		OutputFormat: cfg.Speech.OutputFormat,
	})

	a.Logger.Info("bootstrap complete",
		"session_backend", cfg.Session.Backend,
		"topics", len(a.Topics.Topics()),
		"mysql", a.MySQL != nil,
		"redis", a.Redis != nil,
		"rabbitmq", a.MQConn != nil,
	)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TurnWorker != nil {
		a.TurnWorker.Close()
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
