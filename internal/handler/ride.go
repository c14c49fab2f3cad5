package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/better-rail/server/internal/cache"
	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/errors"
	"github.com/better-rail/server/pkg/logger"
)

// CreateRide 注册一次行程并启动通知调度。
// 行程先落 redis 再调度，进程重启后可以从存储恢复。
func CreateRide(ctx context.Context, c *app.RequestContext) {
	var req model.RideRequest
	if err := c.Bind(&req); err != nil {
		c.JSON(consts.StatusBadRequest, model.NewErrorResponse(errors.InvalidPayload.Code, errors.InvalidPayload.Message, model.ErrorDetail{"error": err.Error()}))
		return
	}

	if req.Token == "" || len(req.Trains) == 0 {
		c.JSON(consts.StatusBadRequest, model.NewErrorResponse(errors.InvalidPayload.Code, "token and trains are required", nil))
		return
	}
	if req.Provider != model.ProviderIOS && req.Provider != model.ProviderAndroid {
		c.JSON(consts.StatusBadRequest, model.NewErrorResponse(errors.InvalidPayload.Code, "provider must be ios or android", nil))
		return
	}

	ride := model.BuildRide(&req)

	if !cache.AddRide(ctx, ride) {
		c.JSON(consts.StatusInternalServerError, model.RideResponse{Success: false})
		return
	}

	ok, rideID := registry.StartRideNotifications(ctx, ride, false)
	if !ok {
		// 调度失败的行程不留残留记录
		cache.DeleteRide(ctx, ride.RideID)
		c.JSON(consts.StatusInternalServerError, model.RideResponse{Success: false})
		return
	}

	c.JSON(consts.StatusOK, model.RideResponse{Success: true, RideID: rideID})
}

// rideTokenRequest 换 token 请求体。
type rideTokenRequest struct {
	RideID string `json:"rideId"`
	Token  string `json:"token"`
}

// UpdateRideToken 替换行程后续通知的推送 token。
func UpdateRideToken(ctx context.Context, c *app.RequestContext) {
	var req rideTokenRequest
	if err := c.Bind(&req); err != nil {
		c.JSON(consts.StatusBadRequest, model.NewErrorResponse(errors.InvalidPayload.Code, errors.InvalidPayload.Message, model.ErrorDetail{"error": err.Error()}))
		return
	}
	if req.RideID == "" || req.Token == "" {
		c.JSON(consts.StatusBadRequest, model.NewErrorResponse(errors.InvalidPayload.Code, "rideId and token are required", nil))
		return
	}

	if !registry.UpdateRideToken(ctx, req.RideID, req.Token) {
		c.JSON(consts.StatusInternalServerError, model.RideResponse{Success: false})
		return
	}

	c.JSON(consts.StatusOK, model.RideResponse{Success: true})
}

// rideEndRequest 结束行程请求体。
type rideEndRequest struct {
	RideID string `json:"rideId"`
}

// EndRide 停止行程调度并删除持久化记录。重复结束同样返回成功。
func EndRide(ctx context.Context, c *app.RequestContext) {
	var req rideEndRequest
	if err := c.Bind(&req); err != nil {
		c.JSON(consts.StatusBadRequest, model.NewErrorResponse(errors.InvalidPayload.Code, errors.InvalidPayload.Message, model.ErrorDetail{"error": err.Error()}))
		return
	}
	if req.RideID == "" {
		c.JSON(consts.StatusBadRequest, model.NewErrorResponse(errors.InvalidPayload.Code, "rideId is required", nil))
		return
	}

	if !registry.EndRideNotifications(ctx, req.RideID) {
		logger.Logger.Error("Failed to end ride", zap.String("ride_id", req.RideID))
		c.JSON(consts.StatusInternalServerError, model.RideResponse{Success: false})
		return
	}

	c.JSON(consts.StatusOK, model.RideResponse{Success: true})
}
