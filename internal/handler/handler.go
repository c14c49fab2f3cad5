package handler

import (
	"github.com/better-rail/server/internal/rail"
	"github.com/better-rail/server/internal/ride"
)

var (
	registry   *ride.Registry
	railClient *rail.Client
)

// Init 注入 handler 依赖。必须在 router.Register 之前调用。
func Init(r *ride.Registry, rc *rail.Client) {
	registry = r
	railClient = rc
}
