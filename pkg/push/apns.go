package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sideshow/apns2"
	apnstoken "github.com/sideshow/apns2/token"

	"github.com/better-rail/server/config"
	"github.com/better-rail/server/internal/model"
)

// Live Activity 更新在 135 秒后视为过期。
const staleAfter = 135 * time.Second

// APNSClient iOS 推送客户端，token 鉴权，负责 Live Activity 的
// update/end 事件推送。
type APNSClient struct {
	client *apns2.Client
	topic  string
}

func NewAPNSClient() (*APNSClient, error) {
	cfg := config.Cfg

	authKey, err := apnstoken.AuthKeyFromFile(cfg.APNsKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&apnstoken.Token{
		AuthKey: authKey,
		KeyID:   cfg.APNsKeyID,
		TeamID:  cfg.APNsTeamID,
	})
	if cfg.IsProduction() {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSClient{
		client: client,
		// Live Activity 推送的 topic 后缀是固定的
		topic: cfg.APNsTopic + ".push-type.liveactivity",
	}, nil
}

func (c *APNSClient) Send(ctx context.Context, payload model.NotificationPayload, route *model.RouteItem) error {
	now := time.Now()
	arrived := payload.State.Status == model.StatusArrived

	event := "update"
	if arrived {
		event = "end"
	}

	aps := map[string]interface{}{
		"timestamp":     now.Unix(),
		"event":         event,
		"content-state": payload.State,
		// 到站加晚点再留 3 分钟缓冲后自动收起
		"dismissal-date": route.ArrivalTime.
			Add(time.Duration(payload.State.Delay+3) * time.Minute).
			Unix(),
	}
	if !arrived {
		aps["stale-date"] = now.Add(staleAfter).Unix()
	}
	if payload.Alert != nil {
		aps["alert"] = map[string]string{
			"title": payload.Alert.Title,
			"body":  payload.Alert.Text,
		}
	}

	raw, err := json.Marshal(map[string]interface{}{"aps": aps})
	if err != nil {
		return err
	}

	priority := apns2.PriorityLow
	if payload.ShouldSendImmediately {
		priority = apns2.PriorityHigh
	}

	response, err := c.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: payload.Token,
		Topic:       c.topic,
		PushType:    apns2.PushTypeLiveActivity,
		Priority:    priority,
		Payload:     raw,
	})
	if err != nil {
		return err
	}
	if !response.Sent() {
		return fmt.Errorf("apns rejected notification: %s", response.Reason)
	}
	return nil
}
