package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/better-rail/server/internal/handler"
	"github.com/better-rail/server/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())

	h.GET("/isAlive", handler.IsAlive)

	v1 := h.Group("/api/v1")
	v1.Use(middleware.GeneralRateLimitMiddleware())

	// 行程调度路由
	ride := v1.Group("/ride")
	{
		ride.POST("", handler.CreateRide)
		ride.PATCH("/updateToken", handler.UpdateRideToken)
		ride.DELETE("", handler.EndRide)
	}

	// 铁路 API 透传路由
	rail := v1.Group("/rail")
	{
		rail.GET("/*path", handler.ProxyRail)
		rail.POST("/*path", handler.ProxyRail)
	}
}
