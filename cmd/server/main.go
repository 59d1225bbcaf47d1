package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/brydisanto/vibeoff/api"
	"github.com/brydisanto/vibeoff/internal/platform/config"
	"github.com/brydisanto/vibeoff/internal/platform/logging"
	"github.com/brydisanto/vibeoff/internal/platform/shutdown"
	"github.com/brydisanto/vibeoff/internal/platform/startup"
	"github.com/brydisanto/vibeoff/pkg/lifecycle"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// configFileEnv 可以指定配置文件的路径，为空时在默认位置查找 config.yaml
const configFileEnv = "VIBEOFF_CONFIG_FILE"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "服务器启动失败: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 加载配置
	cfg, err := config.LoadConfig(os.Getenv(configFileEnv))
	if err != nil {
		return err
	}

	// 2. 初始化日志
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// 3. 执行应用启动初始化流程
	ctx := context.Background()
	app, err := startup.InitializeApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("应用初始化失败，无法启动", zap.Error(err))
		return err
	}

	// 4. 阻塞式执行一次启动后健康检查
	logger.Info("正在执行启动后健康检查...")
	app.Health.PerformCheck(ctx)

	// 5. 创建生命周期管理器并启动后台服务
	gracefulManager := lifecycle.NewManager(logger)
	forcefulManager := lifecycle.NewManager(logger)

	healthHandle, err := gracefulManager.NewServiceHandle("health-checker")
	if err != nil {
		return err
	}
	go app.Health.Run(healthHandle)

	if app.Backup != nil {
		backupHandle, err := gracefulManager.NewServiceHandle("backup-scheduler")
		if err != nil {
			return err
		}
		go app.Backup.Run(backupHandle)
	}

	// 6. HTTP 服务
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(logging.GinLogger(logger), logging.GinRecovery(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r, app.Handler, app.RateLimiter, app.Health)

	// 前端静态文件，未匹配到API的请求交给文件服务器
	if cfg.Server.StaticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.Server.StaticDir))))
	}

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		logger.Info("服务器已准备就绪，开始监听", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 7. 阻塞直到收到停机信号并完成停机
	coordinator := shutdown.NewCoordinator(gracefulManager, forcefulManager, logger, app.Closers...)
	coordinator.ListenForSignalsAndShutdown(server)
	return nil
}
