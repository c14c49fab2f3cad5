package model

import "time"

// StopStation 列车的一个中途停靠站。
type StopStation struct {
	StationID     int       `json:"stationId"`
	StationName   string    `json:"stationName"`
	DepartureTime time.Time `json:"departureTime"`
	Platform      int       `json:"platform"`
}

// RouteTrain 行程中的一段列车。Delay 为实时晚点分钟数，随每次刷新变化。
type RouteTrain struct {
	TrainNumber            string        `json:"trainNumber"`
	OriginStationID        int           `json:"originStationId"`
	OriginStationName      string        `json:"originStationName"`
	DestinationStationID   int           `json:"destinationStationId"`
	DestinationStationName string        `json:"destinationStationName"`
	OriginPlatform         int           `json:"originPlatform"`
	DestPlatform           int           `json:"destPlatform"`
	LastStop               string        `json:"lastStop"`
	DepartureTime          time.Time     `json:"departureTime"`
	ArrivalTime            time.Time     `json:"arrivalTime"`
	Delay                  int           `json:"delay"`
	StopStations           []StopStation `json:"stopStations"`
}

// RouteItem 与某个 Ride 的列车序列精确对应的实时行程。
type RouteItem struct {
	DepartureTime time.Time    `json:"departureTime"`
	ArrivalTime   time.Time    `json:"arrivalTime"`
	Trains        []RouteTrain `json:"trains"`
}

// TrainNumbers 返回行程内列车号的有序列表，用于与 Ride.Trains 严格比对。
func (r *RouteItem) TrainNumbers() []string {
	numbers := make([]string, len(r.Trains))
	for i, train := range r.Trains {
		numbers[i] = train.TrainNumber
	}
	return numbers
}
