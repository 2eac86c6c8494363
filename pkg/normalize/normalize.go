// Package normalize converts the simulation results the backend has produced
// over time into a single types.SimulationResult.
//
// Two billing comparison shapes coexist. The legacy one carries
// bill_non_tou.total, bill_tou.total, bill_recommend and bill_recommend_text.
// The newer one carries compare.non_tou_month, compare.tou_month,
// compare.recommend and compare.diff_month. If both totals of the legacy shape
// are present it wins, even when compare.* is present as well.
package normalize

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/types"
)

// Options affect the parts of the result that depend on the viewer.
type Options struct {
	// Lang is the language of synthesized recommendation text.
	Lang i18n.Lang
	// SelectedTariff is the tariff currently chosen in the form. The monthly
	// cost estimate is shown for this tariff.
	SelectedTariff string
}

// equalThreshold is the monthly difference below which both tariffs are
// considered to cost the same.
const equalThreshold = 0.01

var (
	monthKWhKeys     = []string{"kwh_month_total", "kwh_month", "month_kwh_total"}
	monthCostKeys    = []string{"cost_month_thb", "cost_thb_month", "cost_month"}
	roomMonthKeys    = []string{"kwh_month_total", "kwh_total_month", "month_kwh_total"}
	roomEVMonthKeys  = []string{"kwh_ev_month", "ev_kwh_month", "kwh_month_ev"}
	evBreakdownField = "ev_charger"
)

// Result normalizes a raw JSON result. A body that isn't a JSON object
// normalizes like an empty one.
func Result(raw json.RawMessage, opts Options) types.SimulationResult {
	var m map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			m = nil
		}
	}
	return ResultMap(m, opts)
}

// ResultMap normalizes an already decoded result. m is only read.
func ResultMap(m map[string]any, opts Options) types.SimulationResult {
	tariff := opts.SelectedTariff
	if tariff == "" {
		tariff = types.TariffNonTOU
	}

	res := types.SimulationResult{
		KWhTotal:     numOr(m["kwh_total"]),
		KWhNet:       numOr(m["kwh_net"]),
		CostTHB:      numOr(m["cost_thb"]),
		KWhOn:        numOr(m["kwh_on"]),
		KWhOff:       numOr(m["kwh_off"]),
		KWhSolarUsed: numOr(m["kwh_solar_used"]),
		KWhEV:        numOr(m["kwh_ev"]),
		SolarKW:      numOr(m["solar_kw"]),
		PointsEarned: int(math.Round(numOr(m["points_earned"]))),
		Breakdown:    breakdown(m["breakdown"]),
		Warnings:     texts(m["warnings"]),
		Insights:     texts(m["insights"]),
	}
	if _, ok := num(m["kwh_net"]); !ok {
		res.KWhNet = res.KWhTotal
	}

	msgs := i18n.For(opts.Lang)
	res.BillCompare = billCompare(m, msgs)
	res.RoomsBreakdown = rooms(m)
	res.Monthly = monthly(m, res, tariff)
	return res
}

func breakdown(v any) map[string]float64 {
	o := obj(v)
	if len(o) == 0 {
		return nil
	}
	out := make(map[string]float64, len(o))
	for k, raw := range o {
		if f, ok := num(raw); ok {
			out[k] = f
		}
	}
	return out
}

func billCompare(m map[string]any, msgs i18n.Messages) *types.BillCompare {
	nonTou, okA1 := num(path(m, "bill_non_tou", "total"))
	tou, okA2 := num(path(m, "bill_tou", "total"))
	if okA1 && okA2 {
		bc := &types.BillCompare{
			Schema:        types.BillSchemaLegacy,
			NonTouMonth:   nonTou,
			TouMonth:      tou,
			Recommend:     str(m["bill_recommend"]),
			RecommendText: str(m["bill_recommend_text"]),
			DiffMonth:     nonTou - tou,
		}
		if bc.RecommendText == "" {
			bc.Recommend, bc.RecommendText = recommend(nonTou, tou, bc.Recommend, msgs)
		}
		return bc
	}

	cmp := obj(m["compare"])
	nonTou, okB1 := num(cmp["non_tou_month"])
	tou, okB2 := num(cmp["tou_month"])
	if !okB1 || !okB2 {
		return nil
	}
	bc := &types.BillCompare{
		Schema:      types.BillSchemaCompare,
		NonTouMonth: nonTou,
		TouMonth:    tou,
		DiffMonth:   nonTou - tou,
	}
	if d, ok := num(cmp["diff_month"]); ok {
		bc.DiffMonth = d
	}
	bc.Recommend, bc.RecommendText = recommend(nonTou, tou, str(cmp["recommend"]), msgs)
	return bc
}

// recommend builds the recommendation text. diff > 0 means TOU is cheaper.
// When the tariffs cost about the same the backend's pick is kept.
func recommend(nonTou, tou float64, pick string, msgs i18n.Messages) (string, string) {
	diff := nonTou - tou
	if math.Abs(diff) < equalThreshold {
		if pick == "" {
			pick = types.TariffNonTOU
		}
		return pick, fmt.Sprintf(msgs.RecommendEqual, msgs.TariffName(pick))
	}
	cheaper := types.TariffNonTOU
	if diff > 0 {
		cheaper = types.TariffTOU
	}
	if pick == "" {
		pick = cheaper
	}
	saving := fmt.Sprintf("%.0f", math.Round(math.Abs(diff)))
	return pick, fmt.Sprintf(msgs.RecommendCheaper, msgs.TariffName(cheaper), saving)
}

// monthOr returns v if it is a finite number, otherwise day scaled to a month.
func monthOr(v any, day float64) float64 {
	if f, ok := num(v); ok {
		return f
	}
	return day * types.DaysPerMonth
}

func rooms(m map[string]any) map[string]types.RoomResult {
	if out := flatRooms(m); len(out) > 0 {
		return out
	}
	if out := breakdownRooms(obj(m["rooms_breakdown"])); len(out) > 0 {
		return out
	}
	return nil
}

// flatRooms reads the kwh_*_by_room maps.
func flatRooms(m map[string]any) map[string]types.RoomResult {
	day := obj(m["kwh_by_room"])
	month := obj(m["kwh_month_by_room"])
	evDay := obj(m["kwh_ev_by_room"])
	evMonth := obj(m["kwh_ev_month_by_room"])
	if len(day) == 0 && len(month) == 0 {
		return nil
	}

	out := make(map[string]types.RoomResult)
	for _, src := range []map[string]any{day, month, evDay, evMonth} {
		for id := range src {
			if _, ok := out[id]; ok {
				continue
			}
			d := numOr(day[id])
			ev := numOr(evDay[id])
			out[id] = types.RoomResult{
				KWhDay:     d,
				KWhMonth:   monthOr(month[id], d),
				EVKWhDay:   ev,
				EVKWhMonth: monthOr(evMonth[id], ev),
			}
		}
	}
	return out
}

// breakdownRooms reads rooms_breakdown entries.
func breakdownRooms(rb map[string]any) map[string]types.RoomResult {
	out := make(map[string]types.RoomResult, len(rb))
	for id, raw := range rb {
		room := obj(raw)
		if room == nil {
			continue
		}
		d := numOr(room["kwh_total"])
		ev := numOr(path(room, "breakdown", evBreakdownField))

		r := types.RoomResult{KWhDay: d, EVKWhDay: ev}
		if f, ok := firstNum(room, roomMonthKeys...); ok {
			r.KWhMonth = f
		} else {
			r.KWhMonth = d * types.DaysPerMonth
		}
		if f, ok := firstNum(room, roomEVMonthKeys...); ok {
			r.EVKWhMonth = f
		} else {
			r.EVKWhMonth = ev * types.DaysPerMonth
		}
		out[id] = r
	}
	return out
}

// monthly picks the most authoritative monthly kWh and cost available.
func monthly(m map[string]any, res types.SimulationResult, tariff string) types.MonthlyEstimate {
	est := types.MonthlyEstimate{Tariff: tariff}

	if f, ok := firstNum(m, monthKWhKeys...); ok {
		est.KWh, est.KWhSource = f, types.SourceExplicit
	} else if sum, ok := sumNums(obj(m["kwh_month_by_room"])); ok {
		est.KWh, est.KWhSource = sum, types.SourceRooms
	} else if rb := breakdownRooms(obj(m["rooms_breakdown"])); len(rb) > 0 {
		var sum float64
		for _, id := range slices.Sorted(maps.Keys(rb)) {
			sum += rb[id].KWhMonth
		}
		est.KWh, est.KWhSource = sum, types.SourceRoomsBreakdown
	} else {
		est.KWh, est.KWhSource = res.KWhTotal*types.DaysPerMonth, types.SourceScaled
	}

	if f, ok := firstNum(m, monthCostKeys...); ok {
		est.Cost, est.CostSource = f, types.SourceExplicit
	} else if res.BillCompare != nil {
		est.Cost, est.CostSource = res.BillCompare.MonthFor(tariff), types.SourceCompare
	} else {
		est.Cost, est.CostSource = res.CostTHB*types.DaysPerMonth, types.SourceScaled
	}
	return est
}

// sumNums adds up every finite number in m in key order, so the same input
// always gives the same float. It returns false if there were none.
func sumNums(m map[string]any) (float64, bool) {
	var sum float64
	var found bool
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if f, ok := num(m[k]); ok {
			sum += f
			found = true
		}
	}
	return sum, found
}
