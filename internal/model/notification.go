package model

import "time"

// Status 行程通知状态机的枚举。随时间线推进：
// waitForTrain → inTransit* → inExchange → inTransit* → … → getOff → arrived。
// 每条时间线恰有一个 waitForTrain（首段上车）和一个 arrived（末段到站）。
type Status string

const (
	StatusWaitForTrain Status = "waitForTrain"
	StatusInTransit    Status = "inTransit"
	StatusInExchange   Status = "inExchange"
	StatusGetOff       Status = "getOff"
	StatusArrived      Status = "arrived"
)

// NotificationState 推送内容里的状态快照。
type NotificationState struct {
	Status        Status `json:"status"`
	Delay         int    `json:"delay"`
	NextStationID int    `json:"nextStationId"`
}

// NotificationAlert 可选的人读提醒文案。
type NotificationAlert struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// NotificationPayload 时间线上的一条通知。
// ID 为按计划时刻稳定升序排序后的 1..N 位置，重建时间线后必须重新编号。
type NotificationPayload struct {
	ID                    int                `json:"id"`
	Token                 string             `json:"token"`
	Provider              Provider           `json:"provider"`
	Time                  time.Time          `json:"time"`
	ShouldSendImmediately bool               `json:"shouldSendImmediately"`
	State                 NotificationState  `json:"state"`
	Alert                 *NotificationAlert `json:"alert,omitempty"`
}

// EffectiveTime 计划时刻加上实时晚点后的实际生效时刻。
func (n *NotificationPayload) EffectiveTime() time.Time {
	return n.Time.Add(time.Duration(n.State.Delay) * time.Minute)
}
