package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/better-rail/server/pkg/logger"
	"github.com/better-rail/server/storage/redis"
)

// Close 优雅关闭存储连接。调用前应先停掉所有调度器，
// 避免关闭后仍有水位线写入。
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	if err := redis.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close Redis connection", zap.Error(err))
	} else {
		logger.Logger.Info("Redis connection closed successfully")
	}
}
