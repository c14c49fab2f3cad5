package rail

import (
	"context"
	"strconv"
	"time"

	"github.com/better-rail/server/internal/model"
	"github.com/better-rail/server/pkg/errors"
)

// 铁路 API 的时间串不带时区，按以色列本地时间解释。
const apiTimeLayout = "2006-01-02T15:04:05"

var israelTZ = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		return time.UTC
	}
	return loc
}()

type timetableResponse struct {
	Result timetableResult `json:"result"`
}

type timetableResult struct {
	Travels []apiTravel `json:"travels"`
}

type apiTravel struct {
	DepartureTime string     `json:"departureTime"`
	ArrivalTime   string     `json:"arrivalTime"`
	Trains        []apiTrain `json:"trains"`
}

type apiTrain struct {
	TrainNumber        int               `json:"trainNumber"`
	OrignStation       int               `json:"orignStation"` // API 原始拼写如此
	DestinationStation int               `json:"destinationStation"`
	OriginPlatform     int               `json:"originPlatform"`
	DestPlatform       int               `json:"destPlatform"`
	DepartureTime      string            `json:"departureTime"`
	ArrivalTime        string            `json:"arrivalTime"`
	LastStop           int               `json:"lastStop"`
	StopStations       []apiStop         `json:"stopStations"`
	TrainPosition      *apiTrainPosition `json:"trainPosition"`
}

type apiStop struct {
	StationID     int    `json:"stationId"`
	DepartureTime string `json:"departureTime"`
	Platform      int    `json:"platform"`
}

type apiTrainPosition struct {
	CalcDiffMinutes int `json:"calcDiffMinutes"`
}

func parseAPITime(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(apiTimeLayout, value, israelTZ); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func (r *timetableResponse) toRoutes() ([]model.RouteItem, error) {
	routes := make([]model.RouteItem, 0, len(r.Result.Travels))

	for _, travel := range r.Result.Travels {
		departure, err := parseAPITime(travel.DepartureTime)
		if err != nil {
			return nil, err
		}
		arrival, err := parseAPITime(travel.ArrivalTime)
		if err != nil {
			return nil, err
		}

		trains := make([]model.RouteTrain, 0, len(travel.Trains))
		for _, train := range travel.Trains {
			mapped, err := train.toRouteTrain()
			if err != nil {
				return nil, err
			}
			trains = append(trains, mapped)
		}

		routes = append(routes, model.RouteItem{
			DepartureTime: departure,
			ArrivalTime:   arrival,
			Trains:        trains,
		})
	}

	return routes, nil
}

func (t *apiTrain) toRouteTrain() (model.RouteTrain, error) {
	departure, err := parseAPITime(t.DepartureTime)
	if err != nil {
		return model.RouteTrain{}, err
	}
	arrival, err := parseAPITime(t.ArrivalTime)
	if err != nil {
		return model.RouteTrain{}, err
	}

	stops := make([]model.StopStation, 0, len(t.StopStations))
	for _, stop := range t.StopStations {
		stopDeparture, err := parseAPITime(stop.DepartureTime)
		if err != nil {
			return model.RouteTrain{}, err
		}
		stops = append(stops, model.StopStation{
			StationID:     stop.StationID,
			StationName:   StationName(stop.StationID),
			DepartureTime: stopDeparture,
			Platform:      stop.Platform,
		})
	}

	delay := 0
	if t.TrainPosition != nil {
		delay = t.TrainPosition.CalcDiffMinutes
	}
	if delay < 0 {
		delay = 0
	}

	return model.RouteTrain{
		TrainNumber:            strconv.Itoa(t.TrainNumber),
		OriginStationID:        t.OrignStation,
		OriginStationName:      StationName(t.OrignStation),
		DestinationStationID:   t.DestinationStation,
		DestinationStationName: StationName(t.DestinationStation),
		OriginPlatform:         t.OriginPlatform,
		DestPlatform:           t.DestPlatform,
		LastStop:               StationName(t.LastStop),
		DepartureTime:          departure,
		ArrivalTime:            arrival,
		Delay:                  delay,
		StopStations:           stops,
	}, nil
}

// SelectedRoute 在可选行程里找到与 Ride 列车序列完全一致的那条。
// 顺序敏感的严格相等，部分匹配或乱序都算没有匹配。
func SelectedRoute(routes []model.RouteItem, ride *model.Ride) (*model.RouteItem, bool) {
	for i := range routes {
		if equalTrains(routes[i].TrainNumbers(), ride.Trains) {
			return &routes[i], true
		}
	}
	return nil, false
}

func equalTrains(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RouteForRide 取该行程当前的实时路线，没有精确匹配时返回 RouteNotFound。
func (c *Client) RouteForRide(ctx context.Context, ride *model.Ride) (*model.RouteItem, error) {
	routes, err := c.GetRoutes(ctx, ride.OriginID, ride.DestinationID, ride.DepartureDate)
	if err != nil {
		return nil, err
	}

	route, ok := SelectedRoute(routes, ride)
	if !ok {
		return nil, errors.RouteNotFound
	}
	return route, nil
}
