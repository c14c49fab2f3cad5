package model

import "github.com/google/uuid"

// Provider 推送通道。
type Provider string

const (
	ProviderIOS     Provider = "ios"
	ProviderAndroid Provider = "android"
)

// Ride 一次多段行程的通知订阅。rideId 之外的字段以 redis hash 形式持久化，
// lastNotificationId 是已投递水位线，0 表示尚未投递任何时间线条目。
type Ride struct {
	RideID             string   `json:"rideId"`
	Token              string   `json:"token"`
	Provider           Provider `json:"provider"`
	Locale             string   `json:"locale"`
	DepartureDate      string   `json:"departureDate"`
	OriginID           int      `json:"originId"`
	DestinationID      int      `json:"destinationId"`
	Trains             []string `json:"trains"`
	LastNotificationID int      `json:"lastNotificationId"`
}

// RideRequest 创建行程时客户端提交的字段。
type RideRequest struct {
	Token         string   `json:"token"`
	Provider      Provider `json:"provider"`
	Locale        string   `json:"locale"`
	DepartureDate string   `json:"departureDate"`
	OriginID      int      `json:"originId"`
	DestinationID int      `json:"destinationId"`
	Trains        []string `json:"trains"`
}

// BuildRide 由请求生成带新 rideId、零水位线的 Ride。
func BuildRide(req *RideRequest) *Ride {
	return &Ride{
		RideID:             uuid.NewString(),
		Token:              req.Token,
		Provider:           req.Provider,
		Locale:             req.Locale,
		DepartureDate:      req.DepartureDate,
		OriginID:           req.OriginID,
		DestinationID:      req.DestinationID,
		Trains:             req.Trains,
		LastNotificationID: 0,
	}
}
