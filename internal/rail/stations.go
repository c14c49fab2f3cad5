package rail

import "strconv"

// 车站 id → 英文站名。铁路 API 的应答只带 id，
// 文案里的站名从这里解析。
var stationNames = map[int]string{
	1220: "Ashkelon",
	1300: "Beer Sheva - Center",
	1400: "Beer Sheva - North/University",
	2100: "Haifa - Hof HaCarmel",
	2200: "Haifa - Bat Galim",
	2300: "Haifa - Center HaShmona",
	3100: "Nahariya",
	3300: "Akko",
	3600: "Kiryat Motzkin",
	3700: "Tel Aviv - Savidor Center",
	4100: "Tel Aviv - University",
	4600: "Tel Aviv - HaShalom",
	4680: "Ashdod - Ad Halom",
	4900: "Tel Aviv - HaHagana",
	5000: "Herzliya",
	5010: "Netanya",
	5300: "Binyamina",
	5410: "Caesarea - Pardes Hana",
	6300: "Jerusalem - Malha",
	6500: "Jerusalem - Yitzhak Navon",
	6700: "Ben Gurion Airport",
	7000: "Kfar Sava - Nordau",
	7300: "Rosh HaAyin - North",
	8550: "Lod",
	8600: "Ramla",
	8700: "Rehovot",
	8800: "Rishon LeTsiyon - Moshe Dayan",
	9000: "Rishon LeTsiyon - HaRishonim",
	9100: "Lod - Ganey Aviv",
	9200: "Beit Yehoshua",
	9600: "Sderot",
	9650: "Netivot",
	9700: "Ofakim",
	9800: "Modiin - Center",
}

// StationName 解析站名，未知 id 返回 "Station <id>"。
func StationName(stationID int) string {
	if name, ok := stationNames[stationID]; ok {
		return name
	}
	return "Station " + strconv.Itoa(stationID)
}
