package ride

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/errors"
	"github.com/better-rail/server/pkg/metrics"
)

// RouteProvider 实时铁路数据协作方。没有精确匹配的行程时
// 返回 errors.RouteNotFound。
type RouteProvider interface {
	RouteForRide(ctx context.Context, ride *model.Ride) (*model.RouteItem, error)
}

// RideStore 行程记录存储协作方。写失败以 false 表达，由调用方决定重试。
type RideStore interface {
	GetAllRides(ctx context.Context) []*model.Ride
	UpdateLastNotificationID(ctx context.Context, rideID string, notificationID int) bool
	UpdateToken(ctx context.Context, rideID, token string) bool
	DeleteRide(ctx context.Context, rideID string) bool
}

// DispatchFunc 把一条通知交给推送通道，返回是否成功。不重试。
type DispatchFunc func(ctx context.Context, payload model.NotificationPayload, route *model.RouteItem, logger *zap.Logger) bool

// Deps 调度器及注册表共享的协作方。
type Deps struct {
	Timers   *TimerQueue
	Provider RouteProvider
	Store    RideStore
	Dispatch DispatchFunc
}

// CreateResult 调度器创建的三种显式结果。
type CreateResult int

const (
	CreateOK CreateResult = iota
	// CreateNotInTime 行程已经结束或没有匹配路线，属于良性结果
	CreateNotInTime
	CreateFailed
)

type schedulerState int

const (
	stateInitializing schedulerState = iota
	stateArmed
	stateFiring
	stateStopped
)

// 一次唤醒内允许的刷新+投递总时长。
const fireTimeout = 45 * time.Second

// Scheduler 单个行程的通知状态机。同一时刻最多挂起一个投递唤醒，
// 另有一个按分钟对齐到 RideUpdateSecond 的晚点刷新节拍。
type Scheduler struct {
	mu      sync.Mutex
	state   schedulerState
	ride    *model.Ride
	route   *model.RouteItem
	pending []model.NotificationPayload

	wakeup      *Wakeup
	refreshTick *Wakeup

	isExisting bool
	deps       Deps
	onTerminal func(rideID string, s *Scheduler)
	logger     *zap.Logger
}

// NewScheduler 解析实时路线并构建初始时间线。isExisting 的行程用
// 水位线过滤（恢复路径），新行程按当前时刻过滤。没有剩余通知时
// 返回 CreateNotInTime，调用方不应按错误处理。
func NewScheduler(ctx context.Context, ride *model.Ride, isExisting bool, deps Deps, logger *zap.Logger) (*Scheduler, CreateResult) {
	route, err := deps.Provider.RouteForRide(ctx, ride)
	if err != nil {
		if err == errors.RouteNotFound {
			logger.Info("No live route matches ride trains")
			return nil, CreateNotInTime
		}
		logger.Error("Failed to resolve ride route", zap.Error(err))
		return nil, CreateFailed
	}

	watermark := NoWatermark
	if isExisting {
		watermark = ride.LastNotificationID
	}

	pending := BuildNotifications(route, ride, true, watermark)
	if len(pending) == 0 {
		logger.Info("Ride has no upcoming notifications")
		return nil, CreateNotInTime
	}

	return &Scheduler{
		state:      stateInitializing,
		ride:       ride,
		route:      route,
		pending:    pending,
		isExisting: isExisting,
		deps:       deps,
		logger:     logger,
	}, CreateOK
}

// Start 武装第一个唤醒。新建行程同时立即推送一条未编号的
// waitForTrain 通知，让客户端的 Live Activity 先行启动。
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state != stateInitializing {
		s.mu.Unlock()
		return
	}
	s.state = stateArmed
	s.armLocked()
	s.armRefreshLocked()
	isExisting := s.isExisting
	route := s.route
	payload := BuildRideStartPayload(route, s.ride)
	s.mu.Unlock()

	s.logger.Info("Ride scheduler started")

	if !isExisting {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
			defer cancel()
			s.deps.Dispatch(ctx, payload, route, s.logger)
		}()
	}
}

// Stop 取消所有挂起唤醒并进入终态。幂等，重复调用都返回 true。
// 不负责删除持久化记录。
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if s.state == stateStopped {
		s.mu.Unlock()
		return true
	}
	s.state = stateStopped
	s.cancelTimersLocked()
	s.mu.Unlock()

	s.logger.Info("Ride scheduler stopped")
	return true
}

// UpdateToken 换推送 token。Stopped 之外的任何状态都允许；
// 持久化失败返回 false，调度器继续运行，调用方可重试。
func (s *Scheduler) UpdateToken(ctx context.Context, token string) bool {
	s.mu.Lock()
	if s.state == stateStopped {
		s.mu.Unlock()
		return false
	}
	s.ride.Token = token
	for i := range s.pending {
		s.pending[i].Token = token
	}
	rideID := s.ride.RideID
	s.mu.Unlock()

	return s.deps.Store.UpdateToken(ctx, rideID, token)
}

// armLocked 重新武装投递唤醒，先撤销旧的，保证单飞。
// 唤醒时刻取剩余条目生效时刻的最小值。调用方需持有 s.mu。
func (s *Scheduler) armLocked() {
	if s.wakeup != nil {
		s.deps.Timers.Cancel(s.wakeup)
		s.wakeup = nil
	}
	if len(s.pending) == 0 {
		return
	}

	at := s.pending[0].EffectiveTime()
	for _, notification := range s.pending[1:] {
		if effective := notification.EffectiveTime(); effective.Before(at) {
			at = effective
		}
	}

	s.wakeup = s.deps.Timers.Schedule(at, func() {
		go s.fire()
	})
}

// armRefreshLocked 挂下一次晚点刷新，对齐到行程自己的秒位。
func (s *Scheduler) armRefreshLocked() {
	if s.refreshTick != nil {
		s.deps.Timers.Cancel(s.refreshTick)
	}

	now := time.Now()
	at := now.Truncate(time.Minute).Add(time.Duration(RideUpdateSecond(s.ride.RideID)) * time.Second)
	if !at.After(now) {
		at = at.Add(time.Minute)
	}

	s.refreshTick = s.deps.Timers.Schedule(at, func() {
		go s.refreshDelays()
	})
}

func (s *Scheduler) cancelTimersLocked() {
	if s.wakeup != nil {
		s.deps.Timers.Cancel(s.wakeup)
		s.wakeup = nil
	}
	if s.refreshTick != nil {
		s.deps.Timers.Cancel(s.refreshTick)
		s.refreshTick = nil
	}
}

// fire 投递唤醒：刷新路线、重建时间线、把「当前应达到的最远状态」
// 发出去、推进水位线，然后重新武装或在到站后自行收尾。
// Stop 之后（或期间）到来的唤醒观察到 Stopped 直接放弃。
func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.state != stateArmed {
		s.mu.Unlock()
		return
	}
	s.state = stateFiring
	s.wakeup = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	s.refreshRoute(ctx)

	s.mu.Lock()
	if s.state != stateFiring {
		s.mu.Unlock()
		return
	}
	route := s.route
	watermark := s.ride.LastNotificationID

	// 数据变形后的重锚定：新时间线比水位线短说明行程已缩水
	if watermark > 0 {
		if _, ok := UpdatedLastNotification(route, s.ride, watermark); !ok {
			s.mu.Unlock()
			s.logger.Info("Timeline shrank below watermark, finishing ride")
			s.finish(ctx)
			return
		}
	}

	s.pending = BuildNotifications(route, s.ride, true, watermark)
	pending := s.pending
	s.mu.Unlock()

	due, ok := NotificationToSend(pending, time.Now())
	if !ok {
		// 晚点增加把条目推回了未来，等下一次
		s.rearm()
		return
	}

	if s.stopped() {
		return
	}

	start := time.Now()
	sent := s.deps.Dispatch(ctx, due, route, s.logger)
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	if !sent {
		// 单次推送失败不冻结状态机，水位线照常推进
		s.logger.Warn("Notification dispatch failed, continuing",
			zap.Int("notification_id", due.ID),
			zap.String("status", string(due.State.Status)),
		)
	}

	s.mu.Lock()
	if s.state != stateFiring {
		s.mu.Unlock()
		return
	}
	s.ride.LastNotificationID = due.ID
	rideID := s.ride.RideID
	s.mu.Unlock()

	if !s.deps.Store.UpdateLastNotificationID(ctx, rideID, due.ID) {
		s.logger.Warn("Failed to persist notification watermark", zap.Int("notification_id", due.ID))
	}

	if due.State.Status == model.StatusArrived {
		s.finish(ctx)
		return
	}
	s.rearm()
}

// rearm Firing → Armed，剔除水位线以下的条目后重新武装。
// 没有剩余条目时视同行程结束。
func (s *Scheduler) rearm() {
	s.mu.Lock()
	if s.state != stateFiring {
		s.mu.Unlock()
		return
	}

	remaining := s.pending[:0]
	for _, notification := range s.pending {
		if notification.ID > s.ride.LastNotificationID {
			remaining = append(remaining, notification)
		}
	}
	s.pending = remaining

	if len(s.pending) == 0 {
		s.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
		defer cancel()
		s.logger.Info("No notifications left, finishing ride")
		s.finish(ctx)
		return
	}

	s.state = stateArmed
	s.armLocked()
	s.mu.Unlock()
}

// finish 到站或时间线耗尽后的自我收尾：停止、删除记录、通知注册表摘除。
func (s *Scheduler) finish(ctx context.Context) {
	s.mu.Lock()
	if s.state == stateStopped {
		s.mu.Unlock()
		return
	}
	s.state = stateStopped
	s.cancelTimersLocked()
	rideID := s.ride.RideID
	s.mu.Unlock()

	s.deps.Store.DeleteRide(ctx, rideID)
	s.logger.Info("Ride finished, scheduler stopped")

	if s.onTerminal != nil {
		s.onTerminal(rideID, s)
	}
}

// refreshRoute 取一次实时路线，失败时沿用旧数据继续。
func (s *Scheduler) refreshRoute(ctx context.Context) {
	s.mu.Lock()
	rideCopy := *s.ride
	s.mu.Unlock()

	route, err := s.deps.Provider.RouteForRide(ctx, &rideCopy)
	if err != nil {
		if err == errors.RouteNotFound {
			s.logger.Info("Live route no longer matches, keeping previous data")
		} else {
			s.logger.Warn("Failed to refresh ride route", zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	if s.state != stateStopped {
		s.route = route
	}
	s.mu.Unlock()
}

// refreshDelays 分钟级晚点刷新。只在 Armed 状态下重建时间线并
// 按新的生效时刻重新武装；Firing 期间跳过这一拍。
func (s *Scheduler) refreshDelays() {
	s.mu.Lock()
	if s.state == stateStopped {
		s.mu.Unlock()
		return
	}
	s.armRefreshLocked()
	if s.state != stateArmed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.refreshRoute(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateArmed {
		return
	}
	s.pending = BuildNotifications(s.route, s.ride, true, s.ride.LastNotificationID)
	s.armLocked()
}

func (s *Scheduler) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateStopped
}
