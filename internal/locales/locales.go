package locales

import (
	"fmt"
	"strings"
)

// 客户端支持的语言。未知 locale 一律回退到英文。
const (
	English = "en"
	Hebrew  = "he"
	Russian = "ru"
)

var catalogs = map[string]map[string]string{
	English: {
		"getOn.title":                  "Hop on board!",
		"getOn.description":            "Take the train from Platform {{platform}} to {{lastStop}}.",
		"prepareToGetOff.title":        "Prepare to exit the train",
		"prepareToGetOff.description":  "The train arriving soon at {{station}}.",
		"getOff.title":                 "Time to get off!",
		"getOff.description":           "The train arrives at {{station}}. Get ready to exit!",
		"exchange.unsafeChange":        "This change isn't guaranteed.",
		"exchange.stayOnPlatform":      "Stay on Platform {{platform}}.",
		"exchange.changePlatform":      "Change to Platform {{platform}}.",
		"exchange.waitTime":            "Wait {{waitTime}} for your next train.",
	},
	Hebrew: {
		"getOn.title":                  "עלו לרכבת!",
		"getOn.description":            "עלו לרכבת ברציף {{platform}} לכיוון {{lastStop}}.",
		"prepareToGetOff.title":        "התכוננו לרדת",
		"prepareToGetOff.description":  "הרכבת מגיעה בקרוב אל {{station}}.",
		"getOff.title":                 "הגיע הזמן לרדת!",
		"getOff.description":           "הרכבת מגיעה אל {{station}}. התכוננו לרדת!",
		"exchange.unsafeChange":        "המעבר אינו מובטח.",
		"exchange.stayOnPlatform":      "הישארו ברציף {{platform}}.",
		"exchange.changePlatform":      "עברו לרציף {{platform}}.",
		"exchange.waitTime":            "המתינו {{waitTime}} לרכבת הבאה.",
	},
	Russian: {
		"getOn.title":                  "Пора садиться!",
		"getOn.description":            "Садитесь на поезд с платформы {{platform}} до {{lastStop}}.",
		"prepareToGetOff.title":        "Приготовьтесь к выходу",
		"prepareToGetOff.description":  "Поезд скоро прибудет на станцию {{station}}.",
		"getOff.title":                 "Пора выходить!",
		"getOff.description":           "Поезд прибывает на станцию {{station}}. Приготовьтесь к выходу!",
		"exchange.unsafeChange":        "Пересадка не гарантирована.",
		"exchange.stayOnPlatform":      "Оставайтесь на платформе {{platform}}.",
		"exchange.changePlatform":      "Перейдите на платформу {{platform}}.",
		"exchange.waitTime":            "Подождите {{waitTime}} до следующего поезда.",
	},
}

// Translate 按 locale 查找文案并替换 {{name}} 占位符。
// 缺失的 key 先回退英文，再退化为 key 本身。
func Translate(key, locale string, args map[string]string) string {
	catalog, ok := catalogs[locale]
	if !ok {
		catalog = catalogs[English]
	}

	text, ok := catalog[key]
	if !ok {
		if text, ok = catalogs[English][key]; !ok {
			return key
		}
	}

	for name, value := range args {
		text = strings.ReplaceAll(text, "{{"+name+"}}", value)
	}
	return text
}

// LocalizedDuration 把分钟数转成人读的等待时长。
func LocalizedDuration(minutes int, locale string) string {
	if minutes < 0 {
		minutes = 0
	}

	switch locale {
	case Hebrew:
		if minutes == 1 {
			return "דקה אחת"
		}
		return fmt.Sprintf("%d דקות", minutes)
	case Russian:
		return fmt.Sprintf("%d %s", minutes, russianMinutes(minutes))
	default:
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
}

// 俄语分钟数词形：1 минута / 2-4 минуты / 其余 минут，11-14 例外。
func russianMinutes(n int) string {
	n = n % 100
	if n >= 11 && n <= 14 {
		return "минут"
	}
	switch n % 10 {
	case 1:
		return "минуту"
	case 2, 3, 4:
		return "минуты"
	default:
		return "минут"
	}
}
