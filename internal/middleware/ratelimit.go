package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/better-rail/server/config"
	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/errors"
	"github.com/better-rail/server/pkg/logger"
	"github.com/better-rail/server/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
}

// DefaultRateLimitConfig 默认限流配置，按客户端 IP 计数。
var DefaultRateLimitConfig = RateLimitConfig{
	Window:      60,
	MaxRequests: 120,
	KeyPrefix:   "rate:limit",
}

// RateLimiter 基于 redis zset 的滑动窗口限流器
type RateLimiter struct {
	config RateLimitConfig
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{config: config}
}

// clientIP 依次尝试 CDN 注入头，最后回退到连接地址。
func clientIP(c *app.RequestContext) string {
	if ip := string(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := string(c.GetHeader("X-Forwarded-For")); ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return ip
	}
	return c.ClientIP()
}

func (rl *RateLimiter) getKey(c *app.RequestContext) string {
	return redis.Key(rl.config.KeyPrefix, "ip:"+clientIP(c))
}

// Allow 检查是否允许请求，使用滑动窗口算法
func (rl *RateLimiter) Allow(ctx context.Context, c *app.RequestContext) (bool, int, error) {
	key := rl.getKey(c)
	now := time.Now()
	windowStart := now.Add(-time.Duration(rl.config.Window) * time.Second)

	client := redis.Client()
	pipe := client.Pipeline()

	// 先移除窗口开始时间之前的所有请求记录
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))

	pipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})

	zcardCmd := pipe.ZCard(ctx, key)

	pipe.Expire(ctx, key, time.Duration(rl.config.Window+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	return count <= rl.config.MaxRequests, count, nil
}

// RateLimitMiddleware 创建限流中间件。非生产环境直接放行，
// 本地联调不应依赖 redis 的限流状态。
func RateLimitMiddleware(limitConfig RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(limitConfig)

	return func(ctx context.Context, c *app.RequestContext) {
		if !config.Cfg.RateLimitEnabled || !config.Cfg.IsProduction() {
			c.Next(ctx)
			return
		}

		allowed, count, err := limiter.Allow(ctx, c)
		if err != nil {
			// redis 故障时放行，限流不该放大故障面
			logger.Logger.Error("Failed to check rate limit", zap.Error(err))
			c.Next(ctx)
			return
		}

		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(limitConfig.MaxRequests))
		remaining := limitConfig.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.AbortWithStatus(consts.StatusTooManyRequests)
			c.JSON(consts.StatusTooManyRequests,
				model.NewErrorResponse(errors.RateLimited.Code, errors.RateLimited.Message, nil))
			return
		}

		c.Next(ctx)
	}
}

// GeneralRateLimitMiddleware 通用限流中间件
func GeneralRateLimitMiddleware() app.HandlerFunc {
	cfg := DefaultRateLimitConfig
	if config.Cfg.RateLimitRPM > 0 {
		cfg.MaxRequests = config.Cfg.RateLimitRPM
	}
	return RateLimitMiddleware(cfg)
}
