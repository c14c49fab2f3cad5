package ride

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegistryStartAndEnd(t *testing.T) {
	route := twoLegRoute(time.Now().Add(2*time.Hour), 0, 0)
	deps, _, store, _ := newTestDeps(route)
	registry := NewRegistry(deps, zap.NewNop())

	ride := testRide()
	ok, rideID := registry.StartRideNotifications(context.Background(), ride, true)
	if !ok {
		t.Fatal("expected ride to be scheduled")
	}
	if rideID != ride.RideID {
		t.Errorf("returned rideID = %q, want %q", rideID, ride.RideID)
	}

	registry.mu.Lock()
	scheduler := registry.schedulers[ride.RideID]
	registry.mu.Unlock()
	if scheduler == nil {
		t.Fatal("scheduler missing from registry")
	}

	if !registry.EndRideNotifications(context.Background(), ride.RideID) {
		t.Error("expected end to succeed")
	}
	if !scheduler.stopped() {
		t.Error("scheduler should be stopped after end")
	}
	if deleted := store.deletedRides(); len(deleted) != 1 || deleted[0] != ride.RideID {
		t.Errorf("deleted rides = %v, want [%s]", deleted, ride.RideID)
	}

	registry.mu.Lock()
	remaining := len(registry.schedulers)
	registry.mu.Unlock()
	if remaining != 0 {
		t.Errorf("registry still holds %d schedulers", remaining)
	}
}

func TestRegistryLastWriterWins(t *testing.T) {
	route := twoLegRoute(time.Now().Add(2*time.Hour), 0, 0)
	deps, _, _, _ := newTestDeps(route)
	registry := NewRegistry(deps, zap.NewNop())

	ride := testRide()
	if ok, _ := registry.StartRideNotifications(context.Background(), ride, true); !ok {
		t.Fatal("first start failed")
	}
	registry.mu.Lock()
	first := registry.schedulers[ride.RideID]
	registry.mu.Unlock()

	if ok, _ := registry.StartRideNotifications(context.Background(), ride, true); !ok {
		t.Fatal("second start failed")
	}
	registry.mu.Lock()
	second := registry.schedulers[ride.RideID]
	count := len(registry.schedulers)
	registry.mu.Unlock()

	if count != 1 {
		t.Errorf("registry holds %d schedulers for one ride", count)
	}
	if first == second {
		t.Error("second start should install a fresh scheduler")
	}
	if !first.stopped() {
		t.Error("superseded scheduler should be stopped")
	}
	if second.stopped() {
		t.Error("current scheduler should still be live")
	}

	registry.Shutdown()
}

func TestRegistryNotInTimeIsSilentFailure(t *testing.T) {
	route := twoLegRoute(time.Now().Add(-3*time.Hour), 0, 0)
	deps, _, _, _ := newTestDeps(route)
	registry := NewRegistry(deps, zap.NewNop())

	ok, _ := registry.StartRideNotifications(context.Background(), testRide(), false)
	if ok {
		t.Error("a ride already in the past should not be scheduled")
	}

	registry.mu.Lock()
	count := len(registry.schedulers)
	registry.mu.Unlock()
	if count != 0 {
		t.Errorf("registry holds %d schedulers, want 0", count)
	}
}

func TestRegistryUpdateTokenCleansOrphan(t *testing.T) {
	route := twoLegRoute(time.Now().Add(2*time.Hour), 0, 0)
	deps, _, store, _ := newTestDeps(route)
	registry := NewRegistry(deps, zap.NewNop())

	if registry.UpdateRideToken(context.Background(), "ghost-ride", "token-2") {
		t.Error("token update without a live scheduler should fail")
	}
	if deleted := store.deletedRides(); len(deleted) != 1 || deleted[0] != "ghost-ride" {
		t.Errorf("orphan record not cleaned up, deleted = %v", deleted)
	}
}

func TestRegistryUpdateToken(t *testing.T) {
	route := twoLegRoute(time.Now().Add(2*time.Hour), 0, 0)
	deps, _, store, _ := newTestDeps(route)
	registry := NewRegistry(deps, zap.NewNop())

	ride := testRide()
	if ok, _ := registry.StartRideNotifications(context.Background(), ride, true); !ok {
		t.Fatal("start failed")
	}

	if !registry.UpdateRideToken(context.Background(), ride.RideID, "token-2") {
		t.Fatal("token update should succeed")
	}
	store.mu.Lock()
	persisted := store.tokens[ride.RideID]
	store.mu.Unlock()
	if persisted != "token-2" {
		t.Errorf("persisted token = %q, want token-2", persisted)
	}

	registry.Shutdown()
}

func TestRegistryEndWithoutScheduler(t *testing.T) {
	route := twoLegRoute(time.Now().Add(2*time.Hour), 0, 0)
	deps, _, store, _ := newTestDeps(route)
	registry := NewRegistry(deps, zap.NewNop())

	if !registry.EndRideNotifications(context.Background(), "ghost-ride") {
		t.Error("ending an unknown ride should still clean the record")
	}
	if deleted := store.deletedRides(); len(deleted) != 1 || deleted[0] != "ghost-ride" {
		t.Errorf("deleted rides = %v, want [ghost-ride]", deleted)
	}
}

func TestRegistryScheduleExistingRides(t *testing.T) {
	route := twoLegRoute(time.Now().Add(2*time.Hour), 0, 0)
	deps, _, store, _ := newTestDeps(route)

	// 超过一个恢复批次的行程数
	for i := 0; i < recoveryBatchSize+3; i++ {
		ride := testRide()
		ride.RideID = fmt.Sprintf("ride-%d", i)
		store.rides = append(store.rides, ride)
	}

	registry := NewRegistry(deps, zap.NewNop())
	registry.ScheduleExistingRides(context.Background())

	registry.mu.Lock()
	count := len(registry.schedulers)
	registry.mu.Unlock()
	if count != recoveryBatchSize+3 {
		t.Errorf("recovered %d schedulers, want %d", count, recoveryBatchSize+3)
	}

	registry.Shutdown()

	registry.mu.Lock()
	count = len(registry.schedulers)
	registry.mu.Unlock()
	if count != 0 {
		t.Errorf("registry holds %d schedulers after shutdown", count)
	}

	if deleted := store.deletedRides(); len(deleted) != 0 {
		t.Errorf("shutdown must not delete persisted rides, deleted = %v", deleted)
	}
}
