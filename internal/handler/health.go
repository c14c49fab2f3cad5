package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// IsAlive 存活探针。
func IsAlive(ctx context.Context, c *app.RequestContext) {
	c.String(consts.StatusOK, "App is ready! 🚂")
}
