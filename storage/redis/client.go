package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/better-rail/server/config"
)

var (
	client *redis.Client
	once   sync.Once
	err    error
)

func Init() error {
	once.Do(func() {
		cfg := config.Cfg

		client = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			MinIdleConns: 5,
			MaxRetries:   3,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err = client.Ping(ctx).Err(); err != nil {
			return
		}
	})

	return err
}

func Client() *redis.Client {
	if client == nil {
		panic("Redis client not init")
	}
	return client
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}

	return client.Close()
}

// Key 拼接带前缀的 redis key。前缀为空时不加前缀，
// 以兼容旧服务写入的 rides:<id> 存量数据。
func Key(parts ...string) string {
	var sb strings.Builder
	prefix := config.Cfg.RedisPrefix
	if prefix != "" {
		sb.WriteString(prefix)
		sb.WriteString(":")
	}

	for i, part := range parts {
		if part == "" {
			continue
		}
		if i > 0 {
			sb.WriteString(":")
		}
		sb.WriteString(part)
	}

	return sb.String()
}
