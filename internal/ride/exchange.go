package ride

import (
	"strconv"
	"strings"
	"time"

	"github.com/better-rail/server/internal/locales"
	"github.com/better-rail/server/internal/model"
)

// 换乘空隙低于 3 分钟视为没有保障。
const safeExchangeMinutes = 3

// ExchangePrompt 刚下车一段与下一段之间的换乘文案。
// 以两段的「计划时刻+实时晚点」计算空隙，空隙不足时加一句警告，
// 然后说明站台去留，最后给出本地化的等待时长。空隙永不为负。
func ExchangePrompt(trains []model.RouteTrain, gotOffIndex int, locale string) string {
	previous := trains[gotOffIndex]
	next := trains[gotOffIndex+1]

	arrival := previous.ArrivalTime.Add(time.Duration(previous.Delay) * time.Minute)
	departure := next.DepartureTime.Add(time.Duration(next.Delay) * time.Minute)

	slackMinutes := 0
	if departure.After(arrival) {
		slackMinutes = int(departure.Sub(arrival) / time.Minute)
	}

	var texts []string
	if slackMinutes < safeExchangeMinutes {
		texts = append(texts, locales.Translate("exchange.unsafeChange", locale, nil))
	}

	platformKey := "exchange.changePlatform"
	if previous.DestPlatform == next.OriginPlatform {
		platformKey = "exchange.stayOnPlatform"
	}
	texts = append(texts, locales.Translate(platformKey, locale, map[string]string{
		"platform": strconv.Itoa(next.OriginPlatform),
	}))

	texts = append(texts, locales.Translate("exchange.waitTime", locale, map[string]string{
		"waitTime": locales.LocalizedDuration(slackMinutes, locale),
	}))

	return strings.Join(texts, " ")
}
