package middleware

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/better-rail/server/config"
	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/logger"
)

// RecoverMiddleware 捕获 handler panic，记录日志并返回统一错误响应。
// 调度 goroutine 内的 panic 不经过这里，由各自的 recover 兜底。
func RecoverMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}) {
	stack := callerStack()

	logger.Logger.Error("[PANIC RECOVERED]",
		zap.String("panic", fmt.Sprintf("%v", err)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.ByteString("stack", stack),
	)

	var details model.ErrorDetail
	if !config.Cfg.IsProduction() {
		details = model.ErrorDetail{
			"panic": fmt.Sprintf("%v", err),
			"stack": string(stack),
		}
	}

	c.JSON(consts.StatusInternalServerError,
		model.NewErrorResponse("INTERNAL_SERVER_ERROR", "Internal server error", details))
}

// callerStack 返回当前 goroutine 的简化调用栈。
func callerStack() []byte {
	var buf bytes.Buffer

	// 跳过 runtime 与 recover 相关帧
	for i := 3; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil || strings.Contains(file, "/runtime/") {
			continue
		}
		buf.WriteString(fmt.Sprintf("  %s:%d\n    %s\n", file, line, fn.Name()))
	}

	return buf.Bytes()
}
