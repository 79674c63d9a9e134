package main

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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ViksyAsenov/poly-talk/internal/bus"
	"github.com/ViksyAsenov/poly-talk/internal/config"
	"github.com/ViksyAsenov/poly-talk/internal/handler"
	"github.com/ViksyAsenov/poly-talk/internal/health"
	"github.com/ViksyAsenov/poly-talk/internal/presence"
	"github.com/ViksyAsenov/poly-talk/internal/repository"
	"github.com/ViksyAsenov/poly-talk/internal/router"
	"github.com/ViksyAsenov/poly-talk/internal/service"
	"github.com/ViksyAsenov/poly-talk/internal/translate"
	"github.com/ViksyAsenov/poly-talk/internal/workerpool"
	"github.com/ViksyAsenov/poly-talk/internal/ws"
	"github.com/ViksyAsenov/poly-talk/pkg/jwt"
	"github.com/ViksyAsenov/poly-talk/pkg/snowflake"
)

func main() {
	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// 加载配置
	configPath := os.Getenv("CHAT_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接 NATS
	natsClient, err := bus.NewClient(cfg.NATS)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	logger.Info("Connected to NATS", "url", cfg.NATS.URL)

	// 连接 Redis
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()
	logger.Info("Connected to Redis", "host", cfg.Redis.Host)

	// 连接数据库
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

	// ID 生成器
	node, err := snowflake.NewNode(cfg.App.NodeID)
	if err != nil {
		logger.Error("Failed to create snowflake node", "error", err)
		os.Exit(1)
	}

	// 存储层
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	translationRepo := repository.NewTranslationRepository(db)
	languageRepo := repository.NewLanguageRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 翻译网关
	provider := translate.NewHTTPProvider(cfg.Translator)
	gateway := translate.NewGateway(translationRepo, languageRepo, provider)

	// 在线状态与投递
	manager := presence.NewManager()
	registry := presence.NewOnlineRegistry(redisClient)
	publisher := bus.NewEventPublisher(natsClient.Conn())

	// 业务层；presenceRouter 的参与者校验依赖会话服务，先用占位再回填
	var conversationService *service.ConversationService
	presenceRouter := presence.NewRouter(manager, registry, publisher, presence.ParticipantCheckerFunc(
		func(ctx context.Context, userID, conversationID int64) (bool, error) {
			return conversationService.IsParticipant(ctx, userID, conversationID)
		},
	))
	conversationService = service.NewConversationService(
		conversationRepo, messageRepo, userRepo, gateway, presenceRouter, node, logger)
	messageService := service.NewMessageService(
		conversationRepo, messageRepo, userRepo, gateway, presenceRouter, node, cfg.Chat.PageSize, logger)

	// 订阅推送事件，投递到本节点会话
	subscriber := bus.NewEventSubscriber(natsClient.Conn(), presenceRouter, bus.SubscriberConfig{
		WorkerCount: cfg.Chat.FanoutWorkers,
		BufferSize:  cfg.Chat.FanoutQueueSize,
	})
	if err := subscriber.Start(ctx); err != nil {
		logger.Error("Failed to start event subscriber", "error", err)
		os.Exit(1)
	}

	// WebSocket 接入
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessExpire)
	pool := workerpool.New(cfg.Chat.FanoutWorkers, cfg.Chat.FanoutQueueSize)
	wsGateway := ws.NewGateway(jwtService, presenceRouter, pool, cfg.CORS.AllowedOrigins, logger)

	// HTTP 路由
	conversationHandler := handler.NewConversationHandler(conversationService)
	messageHandler := handler.NewMessageHandler(messageService)
	engine := router.SetupRouter(cfg, jwtService, conversationHandler, messageHandler, wsGateway)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: engine,
	}
	go func() {
		logger.Info("Chat service started", "name", cfg.App.Name, "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 健康检查
	healthChecker := health.NewChecker(db, redisClient, natsClient.Conn())
	go startHealthServer(cfg.HTTP.HealthAddr, healthChecker, logger)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	cancel()
	subscriber.Stop()
	pool.Shutdown()
	logger.Info("Chat service stopped")
}

// startHealthServer 启动健康检查 HTTP 服务
func startHealthServer(addr string, checker *health.Checker, logger *slog.Logger) {
	if addr == "" {
		addr = ":8081"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.Live)
	mux.HandleFunc("/ready", checker.Ready)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	logger.Info("Health check server started", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Health check server failed", "error", err)
	}
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
