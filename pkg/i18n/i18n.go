// Package i18n holds the user-facing strings of the front-end in every
// display language we support.
package i18n

import (
	"fmt"
	"strings"
)

// Lang is a display language code.
type Lang string

const (
	Thai    Lang = "th"
	English Lang = "en"
)

// Parse returns the Lang for the given code, ignoring case and region
// suffixes ("en-US" is English).
func Parse(code string) (Lang, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	switch Lang(code) {
	case Thai:
		return Thai, nil
	case English:
		return English, nil
	default:
		return "", fmt.Errorf("unsupported language: %q", code)
	}
}

// Messages is the catalog for a single language.
type Messages struct {
	// generic per-operation failures, used when the backend gives no reason
	LoadFailed     string
	SaveFailed     string
	SimulateFailed string
	BuyFailed      string
	ShopFailed     string

	Saved       string
	Bought      string
	InFlight    string
	BuyDisabled string
	// Superseded is shown when a newer action of the same kind already
	// replaced the response
	Superseded string
	// InvalidInput takes the validation detail
	InvalidInput string
	// FeedbackThanks is shown after feedback was stored
	FeedbackThanks string

	TariffNonTOU string
	TariffTOU    string
	// RecommendEqual takes the recommended tariff name
	RecommendEqual string
	// RecommendCheaper takes the cheaper tariff name and the monthly saving
	RecommendCheaper string

	Labels Labels
}

// Labels are the static captions used by the templates.
type Labels struct {
	Title          string
	Points         string
	Day            string
	Level          string
	Tariff         string
	KWhTotal       string
	Cost           string
	PointsEarned   string
	TOUSplit       string
	SolarUsed      string
	EV             string
	MonthlyKWh     string
	MonthlyCost    string
	Estimate       string
	BillCompare    string
	Warnings       string
	Insights       string
	ByDevice       string
	ByRoom         string
	PerDay         string
	PerMonth       string
	House          string
	SavedBadge     string
	UnsavedBadge   string
	NoRooms        string
	Profile        string
	Appliances     string
	Enabled        string
	Save           string
	Simulate       string
	Shop           string
	Buy            string
	Inventory      string
	Furniture      string
	Avatar         string
	Feedback       string
	Rating         string
	Reason         string
	Comment        string
	Send           string
	Visitors       string
	NoResult       string
	Residents      string
	PlayerType     string
	HouseType      string
	HouseSize      string
	SolarMode      string
	SolarKW        string
	EVEnabled      string
	EVBattery      string
	EVCharger      string
	EVFrom         string
	EVTo           string
	EVStart        string
	Watts          string
	Hours          string
	StartHour      string
	EndHour        string
	SetTemp        string
	BTU            string
	Inverter       string
	LightMode      string
	KWhPerDay      string
	RecommendLabel string
	ModeGame       string
	ModeReal       string
	RoomBedroom    string
	RoomBathroom   string
	RoomLiving     string
	RoomKitchen    string
	RoomWork       string
	RoomParking    string
}

var catalogs = map[Lang]Messages{
	English: {
		LoadFailed:       "Could not load your house",
		SaveFailed:       "Could not save your settings",
		SimulateFailed:   "Could not simulate the day",
		BuyFailed:        "Could not buy this item",
		ShopFailed:       "Could not load the shop",
		Saved:            "Saved",
		Bought:           "Purchased",
		InFlight:         "Still working on your previous request, please wait",
		BuyDisabled:      "The shop is not available in this mode",
		Superseded:       "A newer request already updated the page",
		InvalidInput:     "Invalid input: %s",
		FeedbackThanks:   "Thanks for your feedback",
		TariffNonTOU:     "Normal rate",
		TariffTOU:        "TOU",
		RecommendEqual:   "Both tariffs cost roughly the same per month, recommend: %s",
		RecommendCheaper: "%s is cheaper, saving about %s THB per month",
		Labels: Labels{
			Title:          "Energy Life",
			Points:         "Points",
			Day:            "Day",
			Level:          "Level",
			Tariff:         "Meter",
			KWhTotal:       "Total kWh",
			Cost:           "Cost (THB)",
			PointsEarned:   "Points earned",
			TOUSplit:       "TOU On/Off (kWh)",
			SolarUsed:      "Solar self-use (kWh)",
			EV:             "EV (kWh)",
			MonthlyKWh:     "kWh per month",
			MonthlyCost:    "Cost per month (THB)",
			Estimate:       "estimate",
			BillCompare:    "Monthly bill",
			Warnings:       "Warnings",
			Insights:       "Insights",
			ByDevice:       "By appliance",
			ByRoom:         "By room",
			PerDay:         "kWh/day",
			PerMonth:       "kWh/month",
			House:          "House structure",
			SavedBadge:     "saved",
			UnsavedBadge:   "unsaved",
			NoRooms:        "No rooms yet",
			Profile:        "Profile",
			Appliances:     "Appliances",
			Enabled:        "On",
			Save:           "Save",
			Simulate:       "Simulate one day",
			Shop:           "Shop",
			Buy:            "Buy",
			Inventory:      "Inventory",
			Furniture:      "Furniture",
			Avatar:         "Avatar",
			Feedback:       "Feedback",
			Rating:         "Rating",
			Reason:         "Reason",
			Comment:        "Comment",
			Send:           "Send",
			Visitors:       "Visitors",
			NoResult:       "Press simulate to see today's usage",
			Residents:      "Residents",
			PlayerType:     "Player type",
			HouseType:      "House type",
			HouseSize:      "House size",
			SolarMode:      "Solar mode",
			SolarKW:        "Solar (kW)",
			EVEnabled:      "EV charging",
			EVBattery:      "Battery (kWh)",
			EVCharger:      "Charger (kW)",
			EVFrom:         "From SOC (%)",
			EVTo:           "To SOC (%)",
			EVStart:        "Start hour",
			Watts:          "Watts",
			Hours:          "Hours/day",
			StartHour:      "Start",
			EndHour:        "End",
			SetTemp:        "Set temp (°C)",
			BTU:            "BTU",
			Inverter:       "Inverter",
			LightMode:      "Bulb",
			KWhPerDay:      "kWh/day",
			RecommendLabel: "Recommend",
			ModeGame:       "Game",
			ModeReal:       "Real house",
			RoomBedroom:    "Bedroom",
			RoomBathroom:   "Bathroom",
			RoomLiving:     "Living room",
			RoomKitchen:    "Kitchen",
			RoomWork:       "Work room",
			RoomParking:    "Parking",
		},
	},
	Thai: {
		LoadFailed:       "โหลดข้อมูลบ้านไม่สำเร็จ",
		SaveFailed:       "บันทึกไม่สำเร็จ",
		SimulateFailed:   "จำลองการใช้ไฟไม่สำเร็จ",
		BuyFailed:        "ซื้อไอเท็มไม่สำเร็จ",
		ShopFailed:       "โหลดร้านค้าไม่สำเร็จ",
		Saved:            "บันทึกเรียบร้อย",
		Bought:           "ซื้อเรียบร้อย",
		InFlight:         "กำลังทำรายการก่อนหน้า กรุณารอสักครู่",
		BuyDisabled:      "โหมดนี้ไม่มีร้านค้า",
		Superseded:       "หน้านี้ถูกอัปเดตโดยคำขอที่ใหม่กว่าแล้ว",
		InvalidInput:     "ข้อมูลไม่ถูกต้อง: %s",
		FeedbackThanks:   "ขอบคุณสำหรับความคิดเห็น",
		TariffNonTOU:     "อัตราปกติ",
		TariffTOU:        "TOU",
		RecommendEqual:   "ค่าไฟทั้งสองแบบใกล้เคียงกัน แนะนำ: %s",
		RecommendCheaper: "%s ถูกกว่า ประหยัดประมาณ %s บาท/เดือน",
		Labels: Labels{
			Title:          "Energy Life",
			Points:         "คะแนน",
			Day:            "วันที่",
			Level:          "เลเวล",
			Tariff:         "มิเตอร์",
			KWhTotal:       "⚡ kWh รวม",
			Cost:           "💰 ค่าไฟ (฿)",
			PointsEarned:   "⭐ คะแนนที่ได้",
			TOUSplit:       "TOU On/Off (kWh)",
			SolarUsed:      "☀️ Solar ใช้เอง (kWh)",
			EV:             "🚗 EV (kWh)",
			MonthlyKWh:     "kWh ต่อเดือน",
			MonthlyCost:    "ค่าไฟต่อเดือน (฿)",
			Estimate:       "ประมาณการ",
			BillCompare:    "เปรียบเทียบบิลรายเดือน",
			Warnings:       "คำเตือน",
			Insights:       "ข้อแนะนำ",
			ByDevice:       "แยกตามอุปกรณ์",
			ByRoom:         "แยกตามห้อง",
			PerDay:         "kWh/วัน",
			PerMonth:       "kWh/เดือน",
			House:          "โครงสร้างบ้าน",
			SavedBadge:     "บันทึกแล้ว",
			UnsavedBadge:   "ยังไม่บันทึก",
			NoRooms:        "ยังไม่มีห้อง",
			Profile:        "โปรไฟล์",
			Appliances:     "เครื่องใช้ไฟฟ้า",
			Enabled:        "เปิด",
			Save:           "บันทึก",
			Simulate:       "จำลอง 1 วัน",
			Shop:           "ร้านค้า",
			Buy:            "ซื้อ",
			Inventory:      "ของที่มี",
			Furniture:      "เฟอร์นิเจอร์",
			Avatar:         "Avatar",
			Feedback:       "ความคิดเห็น",
			Rating:         "คะแนน",
			Reason:         "เหตุผล",
			Comment:        "ความเห็นเพิ่มเติม",
			Send:           "ส่ง",
			Visitors:       "ผู้เข้าชม",
			NoResult:       "กดจำลองเพื่อดูการใช้ไฟวันนี้",
			Residents:      "จำนวนผู้อยู่อาศัย",
			PlayerType:     "ประเภทผู้เล่น",
			HouseType:      "ประเภทบ้าน",
			HouseSize:      "ขนาดบ้าน",
			SolarMode:      "โหมดโซลาร์",
			SolarKW:        "โซลาร์ (kW)",
			EVEnabled:      "ชาร์จ EV",
			EVBattery:      "แบตเตอรี่ (kWh)",
			EVCharger:      "เครื่องชาร์จ (kW)",
			EVFrom:         "จาก SOC (%)",
			EVTo:           "ถึง SOC (%)",
			EVStart:        "เริ่มชาร์จ (ชม.)",
			Watts:          "วัตต์",
			Hours:          "ชั่วโมง/วัน",
			StartHour:      "เริ่ม",
			EndHour:        "สิ้นสุด",
			SetTemp:        "อุณหภูมิ (°C)",
			BTU:            "BTU",
			Inverter:       "อินเวอร์เตอร์",
			LightMode:      "หลอดไฟ",
			KWhPerDay:      "kWh/วัน",
			RecommendLabel: "แนะนำ",
			ModeGame:       "โหมดเกม",
			ModeReal:       "บ้านจริง",
			RoomBedroom:    "ห้องนอน",
			RoomBathroom:   "ห้องน้ำ",
			RoomLiving:     "ห้องนั่งเล่น",
			RoomKitchen:    "ห้องครัว",
			RoomWork:       "ห้องทำงาน",
			RoomParking:    "ที่จอดรถ",
		},
	},
}

// For returns the catalog for the language, falling back to Thai which is
// the language the game was written in.
func For(lang Lang) Messages {
	if m, ok := catalogs[lang]; ok {
		return m
	}
	return catalogs[Thai]
}

// RoomTypeName returns the caption of a house room type, or "" if unknown.
func (m Messages) RoomTypeName(typ string) string {
	switch typ {
	case "bedroom":
		return m.Labels.RoomBedroom
	case "bathroom":
		return m.Labels.RoomBathroom
	case "living":
		return m.Labels.RoomLiving
	case "kitchen":
		return m.Labels.RoomKitchen
	case "work":
		return m.Labels.RoomWork
	case "parking":
		return m.Labels.RoomParking
	default:
		return ""
	}
}

// TariffName returns the display name of a tariff mode key.
func (m Messages) TariffName(mode string) string {
	switch mode {
	case "tou":
		return m.TariffTOU
	case "non_tou", "":
		return m.TariffNonTOU
	default:
		return mode
	}
}
