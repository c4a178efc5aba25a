package main

import (
	"context"
	"errors"
	"log"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/events"
	"marketplace/internal/pkg/middleware"
	"marketplace/internal/pkg/push"
	"marketplace/internal/pkg/registry"
	"marketplace/internal/pkg/worker"
	"marketplace/pkg/database"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/pkg/ratelimit"
	"marketplace/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	// 业务模块通过 init() 自注册
	_ "marketplace/internal/domain/admin"
	_ "marketplace/internal/domain/coupon"
	_ "marketplace/internal/domain/order"
	_ "marketplace/internal/domain/payment"
	_ "marketplace/internal/domain/shipping"
	_ "marketplace/internal/domain/user"
)

func main() {
	// 1. 配置与日志
	config.LoadConfig()
	cfg := &config.GlobalConfig

	if err := logger.InitLogger(cfg.App.Env, cfg.App.Debug); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	// 金额以 JSON 数字输出
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. 基础设施
	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		logger.Log.Fatal("init tracer failed", zap.Error(err))
	}

	db, err := database.InitDatabase(cfg.Database, cfg.App.Debug)
	if err != nil {
		logger.Log.Fatal("connect database failed", zap.Error(err))
	}

	rdb, err := database.InitRedis(cfg.Redis)
	if err != nil {
		logger.Log.Fatal("connect redis failed", zap.Error(err))
	}
	defer rdb.Close()

	collector := metrics.NewMetricsCollector()

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	default:
		mem := ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		mem.StartSweeper(ctx, cfg.RateLimit.Window)
		limiter = mem
	}

	// 3. 领域事件：Kafka 或日志，外加推送
	var sinks events.MultiSink
	var kafkaSink *events.KafkaSink
	if len(cfg.Events.Brokers) > 0 {
		kafkaSink = events.NewKafkaSink(cfg.Events.Brokers, cfg.Events.Topic)
		sinks = append(sinks, kafkaSink)
	} else {
		sinks = append(sinks, events.LogSink{Log: logger.Log})
	}
	if cfg.Push.AccessKeyID != "" {
		pushService, err := push.NewAliyunPushService(cfg.Push)
		if err != nil {
			logger.Log.Error("init push service failed, notifications disabled", zap.Error(err))
		} else {
			sinks = append(sinks, push.NewNotifier(pushService))
		}
	}
	pool := worker.NewWorkerPool(sinks, cfg.Events.Workers, cfg.Events.BufferSize, collector)
	pool.Start()

	// 4. 路由与模块
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware(collector))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	if err := registry.InitModules(&registry.ModuleContext{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Router:  r,
		Metrics: collector,
		Limiter: limiter,
		Events:  pool,
	}); err != nil {
		logger.Log.Fatal("init modules failed", zap.Error(err))
	}

	// 5. 启动与优雅退出
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server forced to shutdown", zap.Error(err))
	}

	// 先停止接收请求，再排空事件队列
	pool.Stop()
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			logger.Log.Warn("close kafka writer failed", zap.Error(err))
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Log.Warn("shutdown tracer failed", zap.Error(err))
	}
	cancel()

	logger.Log.Info("server exited")
}
