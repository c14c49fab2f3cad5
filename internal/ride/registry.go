package ride

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/metrics"
)

// 启动恢复时每批并发启动的行程数，限住对铁路 API 和推送通道的瞬时压力。
const recoveryBatchSize = 8

// Registry 进程内的在线调度器归属表，按 rideId 保证至多一个活跃调度器。
// 显式对象而非包级全局，API 层按引用持有，便于单独测试。
type Registry struct {
	mu         sync.Mutex
	schedulers map[string]*Scheduler

	deps   Deps
	logger *zap.Logger
}

func NewRegistry(deps Deps, logger *zap.Logger) *Registry {
	return &Registry{
		schedulers: make(map[string]*Scheduler),
		deps:       deps,
		logger:     logger,
	}
}

// StartRideNotifications 为行程创建并启动调度器。同一 rideId 已有
// 调度器时先停掉旧的（后写者胜）。NotInTime 是正常负向结果，不打错误日志。
func (r *Registry) StartRideNotifications(ctx context.Context, ride *model.Ride, isExisting bool) (bool, string) {
	rideLogger := r.logger.With(
		zap.String("ride_id", ride.RideID),
		zap.String("token", ride.Token),
	)

	scheduler, result := NewScheduler(ctx, ride, isExisting, r.deps, rideLogger)
	switch result {
	case CreateNotInTime:
		return false, ride.RideID
	case CreateFailed:
		rideLogger.Error("Failed to create ride scheduler")
		return false, ride.RideID
	}

	scheduler.onTerminal = r.removeTerminal

	r.mu.Lock()
	if existing := r.schedulers[ride.RideID]; existing != nil {
		existing.Stop()
	}
	r.schedulers[ride.RideID] = scheduler
	count := len(r.schedulers)
	r.mu.Unlock()

	scheduler.Start()
	metrics.ActiveSchedulers.Set(float64(count))
	if isExisting {
		metrics.RidesRecovered.Inc()
		rideLogger.Info("Ride rescheduled", zap.Strings("trains", ride.Trains))
	} else {
		metrics.RidesStarted.Inc()
		rideLogger.Info("Ride scheduled", zap.Strings("trains", ride.Trains))
	}

	return true, ride.RideID
}

// UpdateRideToken 把新的推送 token 交给在线调度器。没有调度器时
// 顺手删掉无主的存量记录（自愈），并返回失败。
func (r *Registry) UpdateRideToken(ctx context.Context, rideID, token string) bool {
	r.mu.Lock()
	scheduler := r.schedulers[rideID]
	r.mu.Unlock()

	if scheduler == nil {
		r.deps.Store.DeleteRide(ctx, rideID)
		r.logger.Error("No scheduler for token update, orphan record removed",
			zap.String("ride_id", rideID),
			zap.String("token", token),
		)
		return false
	}

	if !scheduler.UpdateToken(ctx, token) {
		r.logger.Error("Failed to update ride token",
			zap.String("ride_id", rideID),
			zap.String("token", token),
		)
		return false
	}

	scheduler.logger.Info("Ride token updated")
	return true
}

// EndRideNotifications 行程取消：停掉调度器、摘表、删除记录。
// 没有在线调度器时仅做存量记录清理。
func (r *Registry) EndRideNotifications(ctx context.Context, rideID string) bool {
	r.mu.Lock()
	scheduler := r.schedulers[rideID]
	delete(r.schedulers, rideID)
	count := len(r.schedulers)
	r.mu.Unlock()

	if scheduler == nil {
		return r.deps.Store.DeleteRide(ctx, rideID)
	}

	scheduler.Stop()
	ok := r.deps.Store.DeleteRide(ctx, rideID)

	metrics.ActiveSchedulers.Set(float64(count))
	metrics.RidesEnded.Inc()
	scheduler.logger.Info("Ride cancelled")
	return ok
}

// ScheduleExistingRides 启动恢复：读出所有持久化行程，按固定批次
// 并发重启调度器，整批完成后再启动下一批。
func (r *Registry) ScheduleExistingRides(ctx context.Context) {
	rides := r.deps.Store.GetAllRides(ctx)
	if rides == nil {
		return
	}

	successful := 0
	failed := 0

	for start := 0; start < len(rides); start += recoveryBatchSize {
		end := start + recoveryBatchSize
		if end > len(rides) {
			end = len(rides)
		}
		batch := rides[start:end]

		results := make([]bool, len(batch))
		var wg sync.WaitGroup
		for i, batchRide := range batch {
			wg.Add(1)
			go func(i int, batchRide *model.Ride) {
				defer wg.Done()
				ok, _ := r.StartRideNotifications(ctx, batchRide, true)
				results[i] = ok
			}(i, batchRide)
		}
		wg.Wait()

		for _, ok := range results {
			if ok {
				successful++
			} else {
				failed++
			}
		}
	}

	r.logger.Info("Existing rides scheduled",
		zap.Int("count", len(rides)),
		zap.Int("successful", successful),
		zap.Int("failed", failed),
	)
}

// Shutdown 停掉所有在线调度器，不动持久化记录。
func (r *Registry) Shutdown() {
	r.mu.Lock()
	schedulers := make([]*Scheduler, 0, len(r.schedulers))
	for _, scheduler := range r.schedulers {
		schedulers = append(schedulers, scheduler)
	}
	r.schedulers = make(map[string]*Scheduler)
	r.mu.Unlock()

	for _, scheduler := range schedulers {
		scheduler.Stop()
	}
	metrics.ActiveSchedulers.Set(0)

	r.logger.Info("All ride schedulers stopped", zap.Int("count", len(schedulers)))
}

// removeTerminal 调度器到站自停后的摘表回调。只在映射仍指向该实例时
// 删除，防止后写者胜之后旧实例误摘新实例。
func (r *Registry) removeTerminal(rideID string, s *Scheduler) {
	r.mu.Lock()
	if r.schedulers[rideID] == s {
		delete(r.schedulers, rideID)
	}
	count := len(r.schedulers)
	r.mu.Unlock()

	metrics.ActiveSchedulers.Set(float64(count))
	metrics.RidesEnded.Inc()
}
