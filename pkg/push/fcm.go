package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/better-rail/server/config"
	"github.com/better-rail/server/internal/model"
)

// Android 的数据消息 90 秒内送不到就没有意义了。
const fcmTTL = 90 * time.Second

// FCMClient Android 推送客户端，发 data 消息由客户端侧渲染。
type FCMClient struct {
	messaging *messaging.Client
}

func NewFCMClient() (*FCMClient, error) {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(config.Cfg.FCMCredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init fcm messaging: %w", err)
	}

	return &FCMClient{messaging: client}, nil
}

func (c *FCMClient) Send(ctx context.Context, payload model.NotificationPayload, route *model.RouteItem) error {
	data := map[string]string{
		"type":          "live-ride",
		"status":        string(payload.State.Status),
		"delay":         strconv.Itoa(payload.State.Delay),
		"nextStationId": strconv.Itoa(payload.State.NextStationID),
	}

	if payload.Alert != nil {
		notifee, err := json.Marshal(map[string]string{
			"title": payload.Alert.Title,
			"body":  payload.Alert.Text,
		})
		if err != nil {
			return err
		}
		data["notifee"] = string(notifee)
	}

	ttl := fcmTTL
	_, err := c.messaging.Send(ctx, &messaging.Message{
		Token: payload.Token,
		Data:  data,
		Android: &messaging.AndroidConfig{
			TTL:      &ttl,
			Priority: "high",
		},
	})
	return err
}
