package cache

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/logger"
	"github.com/better-rail/server/storage/redis"
)

// 每个行程存成一个 hash，key 形如 rides:<rideId>，
// 字段值统一 JSON 编码，rideId 本身只存在于 key 中。
const ridePrefix = "rides"

func rideKey(rideID string) string {
	return redis.Key(ridePrefix, rideID)
}

// AddRide 持久化新行程。
func AddRide(ctx context.Context, ride *model.Ride) bool {
	fields, err := rideToHash(ride)
	if err != nil {
		logger.Logger.Error("Failed to serialize ride", zap.Error(err), zap.String("ride_id", ride.RideID))
		return false
	}

	if err := redis.Client().HSet(ctx, rideKey(ride.RideID), fields).Err(); err != nil {
		logger.Logger.Error("Failed to add ride", zap.Error(err), zap.String("ride_id", ride.RideID), zap.String("token", ride.Token))
		return false
	}

	logger.Logger.Info("Ride added", zap.String("ride_id", ride.RideID), zap.String("token", ride.Token))
	return true
}

// GetRide 读取并反序列化行程，不存在或解析失败时返回 nil。
func GetRide(ctx context.Context, rideID string, shouldLog bool) *model.Ride {
	result, err := redis.Client().HGetAll(ctx, rideKey(rideID)).Result()
	if err != nil || len(result) == 0 {
		if shouldLog {
			logger.Logger.Error("Failed to get ride", zap.Error(err), zap.String("ride_id", rideID))
		}
		return nil
	}

	ride, err := rideFromHash(rideID, result)
	if err != nil {
		if shouldLog {
			logger.Logger.Error("Failed to parse ride", zap.Error(err), zap.String("ride_id", rideID))
		}
		return nil
	}

	if shouldLog {
		logger.Logger.Info("Ride fetched", zap.String("ride_id", rideID))
	}
	return ride
}

// HasRide 行程是否存在。
func HasRide(ctx context.Context, rideID string) bool {
	result, err := redis.Client().Exists(ctx, rideKey(rideID)).Result()
	if err != nil {
		return false
	}
	return result > 0
}

// DeleteRide 删除行程记录。记录本来就不存在时视为成功。
func DeleteRide(ctx context.Context, rideID string) bool {
	deleted, err := redis.Client().Del(ctx, rideKey(rideID)).Result()
	if err != nil || deleted == 0 {
		if !HasRide(ctx, rideID) {
			return true
		}
		logger.Logger.Error("Failed to delete ride", zap.Error(err), zap.String("ride_id", rideID))
		return false
	}

	logger.Logger.Info("Ride deleted", zap.String("ride_id", rideID))
	return true
}

// UpdateLastNotificationID 推进水位线。先检查记录仍然存在，
// 避免为已取消的行程重建出残缺 hash。
func UpdateLastNotificationID(ctx context.Context, rideID string, notificationID int) bool {
	if !HasRide(ctx, rideID) {
		return false
	}

	if err := redis.Client().HSet(ctx, rideKey(rideID), "lastNotificationId", notificationID).Err(); err != nil {
		logger.Logger.Error("Failed to update last notification id",
			zap.Error(err),
			zap.String("ride_id", rideID),
			zap.Int("notification_id", notificationID),
		)
		return false
	}

	if notificationID != 0 {
		logger.Logger.Info("Last notification id updated",
			zap.String("ride_id", rideID),
			zap.Int("notification_id", notificationID),
		)
	}
	return true
}

// UpdateToken 更新行程的推送 token。
func UpdateToken(ctx context.Context, rideID, token string) bool {
	encoded, err := json.Marshal(token)
	if err != nil {
		return false
	}

	if err := redis.Client().HSet(ctx, rideKey(rideID), "token", string(encoded)).Err(); err != nil {
		logger.Logger.Error("Failed to update ride token", zap.Error(err), zap.String("ride_id", rideID), zap.String("token", token))
		return false
	}

	logger.Logger.Info("Ride token updated", zap.String("ride_id", rideID), zap.String("token", token))
	return true
}

// GetAllRides 列出所有持久化行程，启动恢复时调用。失败返回 nil。
func GetAllRides(ctx context.Context) []*model.Ride {
	pattern := redis.Key(ridePrefix, "*")
	keys, err := redis.Client().Keys(ctx, pattern).Result()
	if err != nil {
		logger.Logger.Error("Failed to list ride keys", zap.Error(err))
		return nil
	}

	rides := make([]*model.Ride, 0, len(keys))
	for _, key := range keys {
		parts := strings.Split(key, ":")
		rideID := parts[len(parts)-1]
		if ride := GetRide(ctx, rideID, false); ride != nil {
			rides = append(rides, ride)
		}
	}

	logger.Logger.Info("Rides listed", zap.Int("count", len(rides)))
	return rides
}

// rideToHash 将行程打平成 hash 字段，每个值单独 JSON 编码。
func rideToHash(ride *model.Ride) (map[string]string, error) {
	raw, err := json.Marshal(ride)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "rideId")

	flat := make(map[string]string, len(fields))
	for key, value := range fields {
		flat[key] = string(value)
	}
	return flat, nil
}

// rideFromHash 由 hash 字段还原行程，rideId 取自 key。
func rideFromHash(rideID string, fields map[string]string) (*model.Ride, error) {
	merged := make(map[string]json.RawMessage, len(fields))
	for key, value := range fields {
		merged[key] = json.RawMessage(value)
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}

	ride := &model.Ride{}
	if err := json.Unmarshal(raw, ride); err != nil {
		return nil, err
	}
	ride.RideID = rideID
	return ride, nil
}

// Rides 以方法集形式暴露上面的操作，便于调度层按接口注入。
type Rides struct{}

func (Rides) GetRide(ctx context.Context, rideID string) *model.Ride {
	return GetRide(ctx, rideID, true)
}

func (Rides) GetAllRides(ctx context.Context) []*model.Ride {
	return GetAllRides(ctx)
}

func (Rides) UpdateLastNotificationID(ctx context.Context, rideID string, notificationID int) bool {
	return UpdateLastNotificationID(ctx, rideID, notificationID)
}

func (Rides) UpdateToken(ctx context.Context, rideID, token string) bool {
	return UpdateToken(ctx, rideID, token)
}

func (Rides) DeleteRide(ctx context.Context, rideID string) bool {
	return DeleteRide(ctx, rideID)
}
