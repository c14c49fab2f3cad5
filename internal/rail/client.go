package rail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/better-rail/server/config"
	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/logger"
	"github.com/better-rail/server/pkg/metrics"
)

// Client 以色列铁路 API 客户端。超时、重试与代理都在这里配置，
// 上层只看到 RouteItem。
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient() *Client {
	cfg := config.Cfg

	http := resty.New().
		SetBaseURL(cfg.RailAPIURL).
		SetTimeout(time.Duration(cfg.RailAPITimeout) * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Ocp-Apim-Subscription-Key", cfg.RailAPIKey).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	if cfg.RailProxyURL != "" {
		http.SetProxy(cfg.RailProxyURL)
	}

	return &Client{
		http:   http,
		logger: logger.Logger,
	}
}

// GetRoutes 查询给定起讫站和日期的全部可选行程。
func (c *Client) GetRoutes(ctx context.Context, originID, destinationID int, date string) ([]model.RouteItem, error) {
	var response timetableResponse

	metrics.RailRequests.Inc()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fromStation":  strconv.Itoa(originID),
			"toStation":    strconv.Itoa(destinationID),
			"date":         date,
			"scheduleType": "1",
		}).
		SetResult(&response).
		Get("/timetable/searchTrainLuzForDateTime")

	if err != nil {
		metrics.RailErrors.Inc()
		return nil, fmt.Errorf("rail api request failed: %w", err)
	}
	if resp.IsError() {
		metrics.RailErrors.Inc()
		return nil, fmt.Errorf("rail api returned status %d", resp.StatusCode())
	}

	routes, err := response.toRoutes()
	if err != nil {
		metrics.RailErrors.Inc()
		return nil, fmt.Errorf("rail api response invalid: %w", err)
	}

	c.logger.Debug("Rail routes fetched",
		zap.Int("origin_id", originID),
		zap.Int("destination_id", destinationID),
		zap.String("date", date),
		zap.Int("count", len(routes)),
	)
	return routes, nil
}

// Raw 把任意请求原样转发给铁路 API，供代理端点使用。
func (c *Client) Raw(ctx context.Context, method, path, query string, body []byte) (int, []byte, error) {
	request := c.http.R().SetContext(ctx)
	if query != "" {
		request.SetQueryString(query)
	}
	if len(body) > 0 {
		request.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := request.Execute(method, path)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode(), resp.Body(), nil
}
