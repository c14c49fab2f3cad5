package push

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/better-rail/server/config"
	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/logger"
	"github.com/better-rail/server/pkg/metrics"
)

// Client 单个推送通道的客户端接口。
type Client interface {
	// Send 投递一条通知。失败返回 error，由上层折算成布尔结果；
	// 这里不做重试，投递是尽力而为的。
	Send(ctx context.Context, payload model.NotificationPayload, route *model.RouteItem) error
}

var (
	clients  map[model.Provider]Client
	pushOnce sync.Once
	pushErr  error
)

// Init 初始化推送客户端。
func Init() error {
	pushOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.PushProvider {
		case "live":
			apns, err := NewAPNSClient()
			if err != nil {
				pushErr = err
				return
			}
			fcm, err := NewFCMClient()
			if err != nil {
				pushErr = err
				return
			}
			clients = map[model.Provider]Client{
				model.ProviderIOS:     apns,
				model.ProviderAndroid: fcm,
			}
		case "mock":
			mock := NewMockClient()
			clients = map[model.Provider]Client{
				model.ProviderIOS:     mock,
				model.ProviderAndroid: mock,
			}
		default:
			pushErr = fmt.Errorf("unsupported push provider: %s", cfg.PushProvider)
		}

		if pushErr != nil {
			logger.Logger.Error("Failed to initialize push clients", zap.Error(pushErr))
			return
		}

		logger.Logger.Info("Push clients initialized successfully",
			zap.String("provider", cfg.PushProvider),
		)
	})

	return pushErr
}

// Send 按 provider 选择通道发出通知，结果折算为布尔值。
// 失败打日志并计数，绝不向上层抛错。签名与 ride.DispatchFunc 一致。
func Send(ctx context.Context, payload model.NotificationPayload, route *model.RouteItem, log *zap.Logger) bool {
	client, ok := clients[payload.Provider]
	if !ok {
		log.Error("Unknown push provider", zap.String("provider", string(payload.Provider)))
		return false
	}

	if err := client.Send(ctx, payload, route); err != nil {
		metrics.NotificationsFailed.WithLabelValues(string(payload.Provider)).Inc()
		log.Error("Notification send failed",
			zap.Error(err),
			zap.Int("notification_id", payload.ID),
			zap.String("status", string(payload.State.Status)),
		)
		return false
	}

	metrics.NotificationsSent.WithLabelValues(string(payload.Provider)).Inc()
	log.Info("Notification sent",
		zap.Int("notification_id", payload.ID),
		zap.String("status", string(payload.State.Status)),
		zap.Int("delay", payload.State.Delay),
		zap.Int("next_station_id", payload.State.NextStationID),
	)
	return true
}
