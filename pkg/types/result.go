package types

import "encoding/json"

// DaysPerMonth is the multiplier used whenever a monthly figure has to be
// derived from a daily one.
const DaysPerMonth = 30

// SimulateDayResponse is the body of POST /api/simulate_day. Result is kept
// raw because the backend has shipped several shapes of it over time.
type SimulateDayResponse struct {
	Points     int             `json:"points"`
	HouseLevel int             `json:"house_level"`
	DayCounter int             `json:"day_counter"`
	Result     json.RawMessage `json:"result"`
}

// BuyResponse is the body of POST /api/buy.
type BuyResponse struct {
	Points     int       `json:"points"`
	HouseLevel int       `json:"house_level"`
	Inventory  Inventory `json:"inventory"`
}

// BillSchema identifies which billing comparison shape a result carried.
type BillSchema string

const (
	// BillSchemaLegacy is bill_non_tou.total / bill_tou.total / bill_recommend
	BillSchemaLegacy BillSchema = "legacy"
	// BillSchemaCompare is compare.non_tou_month / compare.tou_month / ...
	BillSchemaCompare BillSchema = "compare"
)

// BillCompare is the estimated monthly bill under each tariff.
type BillCompare struct {
	Schema        BillSchema `json:"schema"`
	NonTouMonth   float64    `json:"nonTouMonth"`
	TouMonth      float64    `json:"touMonth"`
	Recommend     string     `json:"recommend"`
	RecommendText string     `json:"recommendText"`
	DiffMonth     float64    `json:"diffMonth"`
}

// MonthFor returns the monthly bill of the given tariff mode.
func (b BillCompare) MonthFor(tariff string) float64 {
	if tariff == TariffTOU {
		return b.TouMonth
	}
	return b.NonTouMonth
}

// RoomResult is the usage of a single room.
type RoomResult struct {
	KWhDay     float64 `json:"kwhDay"`
	KWhMonth   float64 `json:"kwhMonth"`
	EVKWhDay   float64 `json:"evKwhDay"`
	EVKWhMonth float64 `json:"evKwhMonth"`
}

// Source says where a derived figure came from.
type Source string

const (
	SourceNone           Source = ""
	SourceExplicit       Source = "explicit"
	SourceRooms          Source = "rooms"
	SourceRoomsBreakdown Source = "rooms_breakdown"
	SourceCompare        Source = "compare"
	SourceScaled         Source = "scaled"
)

// Estimated returns true if the figure was not given by the backend directly.
func (s Source) Estimated() bool {
	return s != SourceExplicit && s != SourceNone
}

// MonthlyEstimate is the monthly kWh and cost for the selected tariff.
type MonthlyEstimate struct {
	KWh        float64 `json:"kwh"`
	KWhSource  Source  `json:"kwhSource"`
	Cost       float64 `json:"cost"`
	CostSource Source  `json:"costSource"`
	Tariff     string  `json:"tariff"`
}

// SimulationResult is the canonical form of one simulated day no matter
// which shape the backend used.
type SimulationResult struct {
	KWhTotal     float64            `json:"kwh_total"`
	KWhNet       float64            `json:"kwh_net"`
	CostTHB      float64            `json:"cost_thb"`
	KWhOn        float64            `json:"kwh_on"`
	KWhOff       float64            `json:"kwh_off"`
	KWhSolarUsed float64            `json:"kwh_solar_used"`
	KWhEV        float64            `json:"kwh_ev"`
	SolarKW      float64            `json:"solar_kw"`
	PointsEarned int                `json:"points_earned"`
	Breakdown    map[string]float64 `json:"breakdown"`
	Warnings     []string           `json:"warnings"`
	Insights     []string           `json:"insights"`

	RoomsBreakdown map[string]RoomResult `json:"roomsBreakdown,omitempty"`
	BillCompare    *BillCompare          `json:"billCompare,omitempty"`
	Monthly        MonthlyEstimate       `json:"monthly"`
}

// HouseRoom is a room of the player's house structure.
type HouseRoom struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}
