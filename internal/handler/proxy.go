package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/errors"
	"github.com/better-rail/server/pkg/logger"
)

// ProxyRail 将请求透传到铁路 API，客户端不需要持有订阅 key。
// 上游返回什么状态码就转发什么状态码。
func ProxyRail(ctx context.Context, c *app.RequestContext) {
	path := c.Param("path")
	query := string(c.Request.QueryString())
	method := string(c.Method())

	var body []byte
	if method != consts.MethodGet {
		body = c.Request.Body()
	}

	status, data, err := railClient.Raw(ctx, method, path, query, body)
	if err != nil {
		logger.Logger.Error("Rail proxy request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		c.JSON(consts.StatusBadGateway, model.NewErrorResponse(errors.RailUpstream.Code, errors.RailUpstream.Message, nil))
		return
	}

	c.Data(status, "application/json; charset=utf-8", data)
}
