package ride

import (
	"sort"
	"strconv"
	"time"

	"github.com/better-rail/server/internal/locales"
	"github.com/better-rail/server/internal/model"
)

// NoWatermark 传给 BuildNotifications 表示没有已投递水位线，
// 此时按「计划时刻+实时晚点」过滤过期条目。
const NoWatermark = -1

// legPosition 列车段在行程中的位置，通知状态由它查表得出。
type legPosition int

const (
	legOnly legPosition = iota // 单段行程，既是首段也是末段
	legFirst
	legMiddle
	legLast
)

func positionOf(index, count int) legPosition {
	switch {
	case count == 1:
		return legOnly
	case index == 0:
		return legFirst
	case index == count-1:
		return legLast
	default:
		return legMiddle
	}
}

// 上车通知的状态：首段等车，其余都处于换乘。
func getOnStatus(pos legPosition) model.Status {
	if pos == legOnly || pos == legFirst {
		return model.StatusWaitForTrain
	}
	return model.StatusInExchange
}

// 到站瞬间的状态：末段到达终点，其余进入换乘。
func arrivalStatus(pos legPosition) model.Status {
	if pos == legOnly || pos == legLast {
		return model.StatusArrived
	}
	return model.StatusInExchange
}

func isLastLeg(pos legPosition) bool {
	return pos == legOnly || pos == legLast
}

// BuildGetOnNotifications 每段列车发车前 1 分钟的上车提醒。
func BuildGetOnNotifications(route *model.RouteItem, ride *model.Ride) []model.NotificationPayload {
	notifications := make([]model.NotificationPayload, 0, len(route.Trains))

	for i, train := range route.Trains {
		pos := positionOf(i, len(route.Trains))
		notifications = append(notifications, model.NotificationPayload{
			Token:                 ride.Token,
			Provider:              ride.Provider,
			ShouldSendImmediately: true,
			Time:                  train.DepartureTime.Add(-1 * time.Minute),
			State: model.NotificationState{
				Delay:         train.Delay,
				Status:        getOnStatus(pos),
				NextStationID: train.OriginStationID,
			},
			Alert: &model.NotificationAlert{
				Title: locales.Translate("getOn.title", ride.Locale, nil),
				Text: locales.Translate("getOn.description", ride.Locale, map[string]string{
					"lastStop": train.LastStop,
					"platform": strconv.Itoa(train.OriginPlatform),
				}),
			},
		})
	}

	return notifications
}

// BuildNextStationNotifications 每个中途停靠站一条 inTransit 通知，
// 上一站（或发车站）过后 1 分钟发出。终点前的最后一条只有在距到站
// 还有至少 3 分钟时才加，短途段让位给下车序列。
func BuildNextStationNotifications(route *model.RouteItem, ride *model.Ride) []model.NotificationPayload {
	var notifications []model.NotificationPayload

	for _, train := range route.Trains {
		for i, stop := range train.StopStations {
			previous := train.DepartureTime
			if i > 0 {
				previous = train.StopStations[i-1].DepartureTime
			}

			notifications = append(notifications, model.NotificationPayload{
				Token:                 ride.Token,
				Provider:              ride.Provider,
				ShouldSendImmediately: true,
				Time:                  previous.Add(1 * time.Minute),
				State: model.NotificationState{
					Delay:         train.Delay,
					Status:        model.StatusInTransit,
					NextStationID: stop.StationID,
				},
			})
		}

		lastDeparture := train.DepartureTime
		if len(train.StopStations) > 0 {
			lastDeparture = train.StopStations[len(train.StopStations)-1].DepartureTime
		}
		approachTime := lastDeparture.Add(1 * time.Minute)

		if approachTime.Before(train.ArrivalTime.Add(-3 * time.Minute)) {
			notifications = append(notifications, model.NotificationPayload{
				Token:                 ride.Token,
				Provider:              ride.Provider,
				ShouldSendImmediately: true,
				Time:                  approachTime,
				State: model.NotificationState{
					Delay:         train.Delay,
					Status:        model.StatusInTransit,
					NextStationID: train.DestinationStationID,
				},
			})
		}
	}

	return notifications
}

// BuildGetOffNotifications 每段列车的下车微序列：
// 到站前 3 分钟准备下车、前 1 分钟下车提醒、到站瞬间状态切换，
// 非末段再补一条带下一段晚点的换乘脉冲。
func BuildGetOffNotifications(route *model.RouteItem, ride *model.Ride) []model.NotificationPayload {
	var notifications []model.NotificationPayload

	for i, train := range route.Trains {
		pos := positionOf(i, len(route.Trains))

		getOffText := ExchangePrompt(route.Trains, i, ride.Locale)
		if isLastLeg(pos) {
			getOffText = locales.Translate("getOff.description", ride.Locale, map[string]string{
				"station": train.DestinationStationName,
			})
		}

		notifications = append(notifications,
			model.NotificationPayload{
				Token:                 ride.Token,
				Provider:              ride.Provider,
				ShouldSendImmediately: false,
				Time:                  train.ArrivalTime.Add(-3 * time.Minute),
				State: model.NotificationState{
					Delay:         train.Delay,
					Status:        model.StatusInTransit,
					NextStationID: train.DestinationStationID,
				},
				Alert: &model.NotificationAlert{
					Title: locales.Translate("prepareToGetOff.title", ride.Locale, nil),
					Text: locales.Translate("prepareToGetOff.description", ride.Locale, map[string]string{
						"station": train.DestinationStationName,
					}),
				},
			},
			model.NotificationPayload{
				Token:                 ride.Token,
				Provider:              ride.Provider,
				ShouldSendImmediately: true,
				Time:                  train.ArrivalTime.Add(-1 * time.Minute),
				State: model.NotificationState{
					Delay:         train.Delay,
					Status:        model.StatusGetOff,
					NextStationID: train.DestinationStationID,
				},
				Alert: &model.NotificationAlert{
					Title: locales.Translate("getOff.title", ride.Locale, nil),
					Text:  getOffText,
				},
			},
			model.NotificationPayload{
				Token:                 ride.Token,
				Provider:              ride.Provider,
				ShouldSendImmediately: true,
				Time:                  train.ArrivalTime,
				State: model.NotificationState{
					Delay:         train.Delay,
					Status:        arrivalStatus(pos),
					NextStationID: train.DestinationStationID,
				},
			},
		)

		if !isLastLeg(pos) {
			// 换乘等待的晚点估计以下一段列车为准
			notifications = append(notifications, model.NotificationPayload{
				Token:                 ride.Token,
				Provider:              ride.Provider,
				ShouldSendImmediately: true,
				Time:                  train.ArrivalTime.Add(1 * time.Minute),
				State: model.NotificationState{
					Delay:         route.Trains[i+1].Delay,
					Status:        model.StatusInExchange,
					NextStationID: train.DestinationStationID,
				},
			})
		}
	}

	return notifications
}

// BuildNotifications 构建该行程的规范时间线：三类通知合并后按计划时刻
// 稳定升序排序并重新编号为 1..N。filterPast 为 false 返回完整时间线；
// 否则 lastNotificationID >= 0 时保留 id 大于水位线的条目（恢复路径），
// 传 NoWatermark 时按「计划时刻+实时晚点」晚于当前时刻过滤。
func BuildNotifications(route *model.RouteItem, ride *model.Ride, filterPast bool, lastNotificationID int) []model.NotificationPayload {
	var notifications []model.NotificationPayload
	notifications = append(notifications, BuildGetOnNotifications(route, ride)...)
	notifications = append(notifications, BuildNextStationNotifications(route, ride)...)
	notifications = append(notifications, BuildGetOffNotifications(route, ride)...)

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].Time.Before(notifications[j].Time)
	})
	for i := range notifications {
		notifications[i].ID = i + 1
	}

	if !filterPast {
		return notifications
	}

	now := time.Now()
	filtered := notifications[:0]
	for _, notification := range notifications {
		if lastNotificationID >= 0 {
			if notification.ID > lastNotificationID {
				filtered = append(filtered, notification)
			}
		} else if notification.EffectiveTime().After(now) {
			filtered = append(filtered, notification)
		}
	}
	return filtered
}

// UpdatedLastNotification 路线或晚点数据变化后重建完整时间线，
// 返回水位线 id 对应的新条目；新时间线比水位线短时返回 false。
func UpdatedLastNotification(route *model.RouteItem, ride *model.Ride, lastNotificationID int) (model.NotificationPayload, bool) {
	notifications := BuildNotifications(route, ride, false, NoWatermark)
	for _, notification := range notifications {
		if notification.ID == lastNotificationID {
			return notification, true
		}
	}
	return model.NotificationPayload{}, false
}

// NotificationToSend 在生效时刻不晚于 asOf 的条目中取计划时刻最晚的那个，
// 即「当前应达到的最远状态」。错过若干条目后（重启、长时间卡顿）靠它
// 一步跳到正确状态，而不是逐条补发。
func NotificationToSend(notifications []model.NotificationPayload, asOf time.Time) (model.NotificationPayload, bool) {
	due := make([]model.NotificationPayload, 0, len(notifications))
	for _, notification := range notifications {
		if !notification.EffectiveTime().After(asOf) {
			due = append(due, notification)
		}
	}
	if len(due) == 0 {
		return model.NotificationPayload{}, false
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Time.Before(due[j].Time)
	})
	return due[len(due)-1], true
}

// BuildRideStartPayload 行程创建时立即推送的一条未编号通知，
// 让 Live Activity 在第一条时间线条目之前就启动。
func BuildRideStartPayload(route *model.RouteItem, ride *model.Ride) model.NotificationPayload {
	train := route.Trains[0]

	return model.NotificationPayload{
		ID:                    0,
		Token:                 ride.Token,
		Provider:              ride.Provider,
		ShouldSendImmediately: false,
		Time:                  train.DepartureTime.Add(-2 * time.Minute),
		State: model.NotificationState{
			Delay:         train.Delay,
			Status:        model.StatusWaitForTrain,
			NextStationID: train.OriginStationID,
		},
	}
}

// RideUpdateSecond 由 rideId 哈希出 0..59 的固定秒数，
// 周期性刷新对齐到各自的秒位，把铁路 API 的压力摊开。
func RideUpdateSecond(rideID string) int {
	hash := 0
	for _, c := range []byte(rideID) {
		hash += int(c)
	}
	return hash % 60
}
