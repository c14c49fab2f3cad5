package ride

import (
	"testing"
	"time"

	"github.com/better-rail/server/internal/model"
)

// twoLegRoute 特拉维夫方向的两段行程：30 分钟的首段、6 分钟换乘空隙、
// 24 分钟的末段。站台 6 → 4，首段途中停靠一站。
func twoLegRoute(base time.Time, firstDelay, secondDelay int) *model.RouteItem {
	return &model.RouteItem{
		DepartureTime: base,
		ArrivalTime:   base.Add(60 * time.Minute),
		Trains: []model.RouteTrain{
			{
				TrainNumber:            "100",
				OriginStationID:        3600,
				OriginStationName:      "Tel Aviv - University",
				DestinationStationID:   3700,
				DestinationStationName: "Tel Aviv - Savidor Center",
				OriginPlatform:         1,
				DestPlatform:           6,
				LastStop:               "Binyamina",
				DepartureTime:          base,
				ArrivalTime:            base.Add(30 * time.Minute),
				Delay:                  firstDelay,
				StopStations: []model.StopStation{
					{StationID: 3500, StationName: "Herzliya", DepartureTime: base.Add(15 * time.Minute), Platform: 2},
				},
			},
			{
				TrainNumber:            "200",
				OriginStationID:        3700,
				OriginStationName:      "Tel Aviv - Savidor Center",
				DestinationStationID:   6300,
				DestinationStationName: "Beit Yehoshua",
				OriginPlatform:         4,
				DestPlatform:           3,
				LastStop:               "Haifa - Hof HaCarmel",
				DepartureTime:          base.Add(36 * time.Minute),
				ArrivalTime:            base.Add(60 * time.Minute),
				Delay:                  secondDelay,
			},
		},
	}
}

func testRide() *model.Ride {
	return &model.Ride{
		RideID:   "ride-1",
		Token:    "token-1",
		Provider: model.ProviderIOS,
		Locale:   "en",
		Trains:   []string{"100", "200"},
	}
}

func TestBuildNotificationsTimeline(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	route := twoLegRoute(base, 0, 0)
	ride := testRide()

	notifications := BuildNotifications(route, ride, false, NoWatermark)

	if len(notifications) != 12 {
		t.Fatalf("expected 12 notifications, got %d", len(notifications))
	}

	for i, notification := range notifications {
		if notification.ID != i+1 {
			t.Errorf("notification %d: expected dense id %d, got %d", i, i+1, notification.ID)
		}
		if i > 0 && notification.Time.Before(notifications[i-1].Time) {
			t.Errorf("notification %d at %v is earlier than its predecessor", i, notification.Time)
		}
		if notification.Token != ride.Token {
			t.Errorf("notification %d carries token %q", i, notification.Token)
		}
	}

	first := notifications[0]
	if first.State.Status != model.StatusWaitForTrain {
		t.Errorf("first notification status = %q, want waitForTrain", first.State.Status)
	}
	if !first.Time.Equal(base.Add(-1 * time.Minute)) {
		t.Errorf("first notification at %v, want one minute before departure", first.Time)
	}
	if first.Alert == nil || first.Alert.Text != "Take the train from Platform 1 to Binyamina." {
		t.Errorf("unexpected get-on alert: %+v", first.Alert)
	}

	last := notifications[len(notifications)-1]
	if last.State.Status != model.StatusArrived {
		t.Errorf("last notification status = %q, want arrived", last.State.Status)
	}
	if !last.Time.Equal(base.Add(60 * time.Minute)) {
		t.Errorf("last notification at %v, want final arrival instant", last.Time)
	}
}

func TestBuildNotificationsSingleLeg(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	route := twoLegRoute(base, 0, 0)
	route.Trains = route.Trains[:1]
	route.ArrivalTime = route.Trains[0].ArrivalTime
	ride := testRide()
	ride.Trains = ride.Trains[:1]

	notifications := BuildNotifications(route, ride, false, NoWatermark)

	counts := make(map[model.Status]int)
	for _, notification := range notifications {
		counts[notification.State.Status]++
	}

	if counts[model.StatusWaitForTrain] != 1 {
		t.Errorf("waitForTrain count = %d, want exactly 1", counts[model.StatusWaitForTrain])
	}
	if counts[model.StatusArrived] != 1 {
		t.Errorf("arrived count = %d, want exactly 1", counts[model.StatusArrived])
	}
	if counts[model.StatusInExchange] != 0 {
		t.Errorf("single-leg ride has %d inExchange entries", counts[model.StatusInExchange])
	}

	// 末段的下车文案不是换乘提示
	for _, notification := range notifications {
		if notification.State.Status == model.StatusGetOff {
			want := "The train arrives at Tel Aviv - Savidor Center. Get ready to exit!"
			if notification.Alert == nil || notification.Alert.Text != want {
				t.Errorf("final getOff alert = %+v, want %q", notification.Alert, want)
			}
		}
	}
}

func TestBuildNotificationsExchangeSequence(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	route := twoLegRoute(base, 0, 3)
	ride := testRide()

	notifications := BuildNotifications(route, ride, false, NoWatermark)

	// 首段的下车提醒带换乘文案
	var getOff *model.NotificationPayload
	for i := range notifications {
		if notifications[i].State.Status == model.StatusGetOff {
			getOff = &notifications[i]
			break
		}
	}
	if getOff == nil {
		t.Fatal("no getOff notification in timeline")
	}
	want := "Change to Platform 4. Wait 9 minutes for your next train."
	if getOff.Alert == nil || getOff.Alert.Text != want {
		t.Errorf("getOff alert = %+v, want text %q", getOff.Alert, want)
	}

	// 到站后的换乘脉冲带下一段的晚点
	var pulse *model.NotificationPayload
	for i := range notifications {
		n := notifications[i]
		if n.State.Status == model.StatusInExchange && n.Time.Equal(base.Add(31*time.Minute)) {
			pulse = &notifications[i]
			break
		}
	}
	if pulse == nil {
		t.Fatal("no exchange pulse after first-leg arrival")
	}
	if pulse.State.Delay != 3 {
		t.Errorf("exchange pulse delay = %d, want next leg's delay 3", pulse.State.Delay)
	}

	// 第二段的上车提醒处于换乘状态
	var secondGetOn *model.NotificationPayload
	for i := range notifications {
		n := notifications[i]
		if n.Time.Equal(base.Add(35*time.Minute)) && n.Alert != nil && n.Alert.Title == "Hop on board!" {
			secondGetOn = &notifications[i]
			break
		}
	}
	if secondGetOn == nil {
		t.Fatal("no get-on notification for second leg")
	}
	if secondGetOn.State.Status != model.StatusInExchange {
		t.Errorf("second get-on status = %q, want inExchange", secondGetOn.State.Status)
	}
}

func TestBuildNotificationsWatermarkFilter(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	route := twoLegRoute(base, 0, 0)
	ride := testRide()

	notifications := BuildNotifications(route, ride, true, 5)

	if len(notifications) != 7 {
		t.Fatalf("expected 7 notifications above watermark 5, got %d", len(notifications))
	}
	for _, notification := range notifications {
		if notification.ID <= 5 {
			t.Errorf("notification %d should have been filtered by watermark", notification.ID)
		}
	}
}

func TestBuildNotificationsFilterByEffectiveTime(t *testing.T) {
	base := time.Now().Add(-20 * time.Minute)
	route := twoLegRoute(base, 0, 0)
	ride := testRide()

	notifications := BuildNotifications(route, ride, true, NoWatermark)

	// base+27m 之前的条目已过期，剩 prepare 起的 9 条
	if len(notifications) != 9 {
		t.Fatalf("expected 9 future notifications, got %d", len(notifications))
	}
	if notifications[0].ID != 4 {
		t.Errorf("first future notification id = %d, want 4", notifications[0].ID)
	}

	// 首段晚点 25 分钟把已过期的条目推回未来
	delayed := BuildNotifications(twoLegRoute(base, 25, 0), ride, true, NoWatermark)
	if len(delayed) != 12 {
		t.Fatalf("expected delay to keep all 12 notifications, got %d", len(delayed))
	}
}

func TestNotificationIDsStableUnderRebuild(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	ride := testRide()

	plain := BuildNotifications(twoLegRoute(base, 0, 0), ride, false, NoWatermark)
	delayed := BuildNotifications(twoLegRoute(base, 2, 4), ride, false, NoWatermark)

	if len(plain) != len(delayed) {
		t.Fatalf("rebuild changed timeline length: %d vs %d", len(plain), len(delayed))
	}
	for i := range plain {
		if plain[i].State.Status != delayed[i].State.Status {
			t.Errorf("entry %d changed status across rebuild: %q vs %q",
				i, plain[i].State.Status, delayed[i].State.Status)
		}
	}
}

func TestUpdatedLastNotification(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	route := twoLegRoute(base, 0, 0)
	ride := testRide()

	notification, ok := UpdatedLastNotification(route, ride, 5)
	if !ok {
		t.Fatal("expected watermark 5 to resolve")
	}
	if notification.ID != 5 {
		t.Errorf("resolved id = %d, want 5", notification.ID)
	}

	if _, ok := UpdatedLastNotification(route, ride, 13); ok {
		t.Error("watermark beyond timeline length should not resolve")
	}
}

func TestNotificationToSend(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	route := twoLegRoute(base, 0, 0)
	ride := testRide()

	notifications := BuildNotifications(route, ride, false, NoWatermark)

	// 错过若干条目后只取最远的那条
	due, ok := NotificationToSend(notifications, base.Add(30*time.Minute))
	if !ok {
		t.Fatal("expected a due notification")
	}
	if due.ID != 6 {
		t.Errorf("due id = %d, want 6 (first-leg arrival)", due.ID)
	}
	if due.State.Status != model.StatusInExchange {
		t.Errorf("due status = %q, want inExchange", due.State.Status)
	}

	if _, ok := NotificationToSend(notifications, base.Add(-2*time.Hour)); ok {
		t.Error("nothing should be due before the ride starts")
	}
}

func TestNotificationToSendHonorsDelay(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	route := twoLegRoute(base, 10, 0)
	ride := testRide()

	notifications := BuildNotifications(route, ride, false, NoWatermark)

	// 首段晚点 10 分钟，计划 base-1m 的上车提醒要到 base+9m 才生效
	if _, ok := NotificationToSend(notifications, base.Add(5*time.Minute)); ok {
		t.Error("delayed notifications should not be due yet")
	}

	due, ok := NotificationToSend(notifications, base.Add(9*time.Minute))
	if !ok {
		t.Fatal("expected the delayed get-on notification to be due")
	}
	if due.ID != 1 {
		t.Errorf("due id = %d, want 1", due.ID)
	}
}

func TestBuildRideStartPayload(t *testing.T) {
	base := time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)
	route := twoLegRoute(base, 2, 0)
	ride := testRide()

	payload := BuildRideStartPayload(route, ride)

	if payload.ID != 0 {
		t.Errorf("ride-start payload id = %d, want 0", payload.ID)
	}
	if !payload.Time.Equal(base.Add(-2 * time.Minute)) {
		t.Errorf("ride-start payload at %v, want two minutes before departure", payload.Time)
	}
	if payload.State.Status != model.StatusWaitForTrain {
		t.Errorf("ride-start status = %q, want waitForTrain", payload.State.Status)
	}
	if payload.State.Delay != 2 {
		t.Errorf("ride-start delay = %d, want first leg's delay", payload.State.Delay)
	}
}

func TestRideUpdateSecond(t *testing.T) {
	if got := RideUpdateSecond("abc"); got != 54 {
		t.Errorf("RideUpdateSecond(abc) = %d, want 54", got)
	}

	for _, id := range []string{"", "ride-1", "00000000-0000-0000-0000-000000000000"} {
		got := RideUpdateSecond(id)
		if got < 0 || got > 59 {
			t.Errorf("RideUpdateSecond(%q) = %d, out of range", id, got)
		}
		if got != RideUpdateSecond(id) {
			t.Errorf("RideUpdateSecond(%q) is not deterministic", id)
		}
	}
}
