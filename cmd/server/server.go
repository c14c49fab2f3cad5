package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"go.uber.org/zap"

	"github.com/better-rail/server/config"
	"github.com/better-rail/server/internal/cache"
	"github.com/better-rail/server/internal/handler"
	"github.com/better-rail/server/internal/rail"
	"github.com/better-rail/server/internal/ride"
	"github.com/better-rail/server/internal/router"
	"github.com/better-rail/server/pkg/logger"
	"github.com/better-rail/server/pkg/metrics"
	"github.com/better-rail/server/pkg/push"
	"github.com/better-rail/server/storage"
)

func main() {
	// 日志部分
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	defer storage.Close()

	// 初始化推送通道
	if err := push.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize push providers", zap.Error(err))
	}

	railClient := rail.NewClient()

	// 定时器队列承载所有行程的唤醒
	timers := ride.NewTimerQueue()
	go timers.Run(ctx)

	registry := ride.NewRegistry(ride.Deps{
		Timers:   timers,
		Provider: railClient,
		Store:    cache.Rides{},
		Dispatch: push.Send,
	}, logger.Logger)

	// 恢复重启前仍在进行的行程
	go registry.ScheduleExistingRides(ctx)

	// 指标端口独立于业务端口
	metrics.Serve(net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.MetricsPort))

	handler.Init(registry, railClient)

	logger.Logger.Info("Server starting",
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	h := server.Default(server.WithHostPorts(addr))

	router.Register(h)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	registry.Shutdown()

	logger.Logger.Info("Server shutting down gracefully")
}
