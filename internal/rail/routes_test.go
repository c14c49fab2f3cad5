package rail

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/better-rail/server/internal/model"
)

const sampleTimetable = `{
	"result": {
		"travels": [
			{
				"departureTime": "2024-04-07T09:00:00",
				"arrivalTime": "2024-04-07T09:30:00",
				"trains": [
					{
						"trainNumber": 100,
						"orignStation": 3600,
						"destinationStation": 3700,
						"originPlatform": 1,
						"destPlatform": 6,
						"departureTime": "2024-04-07T09:00:00",
						"arrivalTime": "2024-04-07T09:30:00",
						"lastStop": 2100,
						"stopStations": [
							{"stationId": 3500, "departureTime": "2024-04-07T09:15:00", "platform": 2}
						],
						"trainPosition": {"calcDiffMinutes": 4}
					}
				]
			},
			{
				"departureTime": "2024-04-07T10:00:00",
				"arrivalTime": "2024-04-07T10:30:00",
				"trains": [
					{
						"trainNumber": 200,
						"orignStation": 3600,
						"destinationStation": 3700,
						"originPlatform": 1,
						"destPlatform": 6,
						"departureTime": "2024-04-07T10:00:00",
						"arrivalTime": "2024-04-07T10:30:00",
						"lastStop": 2100,
						"stopStations": [],
						"trainPosition": {"calcDiffMinutes": -2}
					}
				]
			}
		]
	}
}`

func parseSample(t *testing.T) []model.RouteItem {
	t.Helper()

	var response timetableResponse
	if err := json.Unmarshal([]byte(sampleTimetable), &response); err != nil {
		t.Fatalf("failed to unmarshal sample payload: %v", err)
	}
	routes, err := response.toRoutes()
	if err != nil {
		t.Fatalf("toRoutes failed: %v", err)
	}
	return routes
}

func TestToRoutes(t *testing.T) {
	routes := parseSample(t)

	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}

	train := routes[0].Trains[0]
	if train.TrainNumber != "100" {
		t.Errorf("train number = %q, want string \"100\"", train.TrainNumber)
	}
	if train.Delay != 4 {
		t.Errorf("delay = %d, want 4", train.Delay)
	}
	if train.OriginPlatform != 1 || train.DestPlatform != 6 {
		t.Errorf("platforms = %d/%d, want 1/6", train.OriginPlatform, train.DestPlatform)
	}
	if len(train.StopStations) != 1 || train.StopStations[0].StationID != 3500 {
		t.Errorf("unexpected stop stations: %+v", train.StopStations)
	}

	// 负的 calcDiffMinutes（提前）按 0 处理
	if routes[1].Trains[0].Delay != 0 {
		t.Errorf("early train delay = %d, want clamped 0", routes[1].Trains[0].Delay)
	}
}

func TestParseAPITime(t *testing.T) {
	parsed, err := parseAPITime("2024-04-07T09:00:00")
	if err != nil {
		t.Fatalf("parseAPITime failed: %v", err)
	}
	if parsed.Hour() != 9 || parsed.Minute() != 0 {
		t.Errorf("parsed %v, want 09:00 local time", parsed)
	}
	if parsed.Location() == time.UTC {
		t.Error("bare timestamps should be interpreted in Israel's timezone")
	}

	// RFC3339 回退
	if _, err := parseAPITime("2024-04-07T09:00:00+03:00"); err != nil {
		t.Errorf("RFC3339 fallback failed: %v", err)
	}

	if _, err := parseAPITime("definitely not a time"); err == nil {
		t.Error("expected an error for garbage input")
	}
}

func TestSelectedRoute(t *testing.T) {
	routes := parseSample(t)

	ride := &model.Ride{Trains: []string{"100"}}
	route, ok := SelectedRoute(routes, ride)
	if !ok {
		t.Fatal("expected an exact match for train 100")
	}
	if route.Trains[0].TrainNumber != "100" {
		t.Errorf("matched train %q, want 100", route.Trains[0].TrainNumber)
	}

	// 部分匹配和乱序都不算匹配
	for _, trains := range [][]string{
		{"100", "200"},
		{"300"},
		{},
	} {
		ride := &model.Ride{Trains: trains}
		if _, ok := SelectedRoute(routes, ride); ok {
			t.Errorf("trains %v should not match any route", trains)
		}
	}
}
