package ride

import (
	"testing"
	"time"

	"github.com/better-rail/server/internal/model"
)

func exchangeTrains(arrival, departure time.Time, prevDelay, nextDelay, prevPlatform, nextPlatform int) []model.RouteTrain {
	return []model.RouteTrain{
		{
			TrainNumber:  "100",
			DestPlatform: prevPlatform,
			ArrivalTime:  arrival,
			Delay:        prevDelay,
		},
		{
			TrainNumber:    "200",
			OriginPlatform: nextPlatform,
			DepartureTime:  departure,
			Delay:          nextDelay,
		},
	}
}

func TestExchangePromptUnsafeChange(t *testing.T) {
	arrival := time.Date(2024, 4, 7, 9, 30, 0, 0, time.UTC)
	// 计划空隙 3 分钟，晚点 2 分钟把实际空隙压到 1 分钟
	departure := arrival.Add(3 * time.Minute)
	trains := exchangeTrains(arrival, departure, 2, 0, 6, 4)

	got := ExchangePrompt(trains, 0, "en")
	want := "This change isn't guaranteed. Change to Platform 4. Wait 1 minute for your next train."
	if got != want {
		t.Errorf("unexpected prompt:\n got:  %q\n want: %q", got, want)
	}
}

func TestExchangePromptSafeChange(t *testing.T) {
	arrival := time.Date(2024, 4, 7, 9, 30, 0, 0, time.UTC)
	departure := arrival.Add(10 * time.Minute)
	trains := exchangeTrains(arrival, departure, 2, 0, 6, 4)

	got := ExchangePrompt(trains, 0, "en")
	want := "Change to Platform 4. Wait 8 minutes for your next train."
	if got != want {
		t.Errorf("unexpected prompt:\n got:  %q\n want: %q", got, want)
	}
}

func TestExchangePromptStayOnPlatform(t *testing.T) {
	arrival := time.Date(2024, 4, 7, 9, 30, 0, 0, time.UTC)
	departure := arrival.Add(5 * time.Minute)
	trains := exchangeTrains(arrival, departure, 0, 0, 4, 4)

	got := ExchangePrompt(trains, 0, "en")
	want := "Stay on Platform 4. Wait 5 minutes for your next train."
	if got != want {
		t.Errorf("unexpected prompt:\n got:  %q\n want: %q", got, want)
	}
}

func TestExchangePromptDelayGrowsSlack(t *testing.T) {
	arrival := time.Date(2024, 4, 7, 9, 30, 0, 0, time.UTC)
	// 下一段晚点反而把空隙拉大
	departure := arrival.Add(2 * time.Minute)
	trains := exchangeTrains(arrival, departure, 0, 5, 6, 4)

	got := ExchangePrompt(trains, 0, "en")
	want := "Change to Platform 4. Wait 7 minutes for your next train."
	if got != want {
		t.Errorf("unexpected prompt:\n got:  %q\n want: %q", got, want)
	}
}

func TestExchangePromptSlackNeverNegative(t *testing.T) {
	arrival := time.Date(2024, 4, 7, 9, 30, 0, 0, time.UTC)
	// 衔接已经错过，空隙按 0 处理
	departure := arrival.Add(-4 * time.Minute)
	trains := exchangeTrains(arrival, departure, 0, 0, 6, 4)

	got := ExchangePrompt(trains, 0, "en")
	want := "This change isn't guaranteed. Change to Platform 4. Wait 0 minutes for your next train."
	if got != want {
		t.Errorf("unexpected prompt:\n got:  %q\n want: %q", got, want)
	}
}
