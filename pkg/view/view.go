// Package view projects the player's snapshot and the last simulation result
// into a page model. Build does no I/O and never modifies its input; the
// resulting Page is plain data that is rendered to HTML by a Renderer or
// served as JSON as is.
package view

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/normalize"
	"github.com/energylife/energylife/pkg/types"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-off notification shown above the page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Input is everything a page is built from.
type Input struct {
	Lang     i18n.Lang
	Mode     string
	Snapshot types.Snapshot
	// Unsaved is true when the snapshot carries local edits that the backend
	// hasn't stored yet.
	Unsaved  bool
	Result   *types.SimulationResult
	Shop     []types.ShopItem
	Flash    *Flash
	Visitors int
	Seq      uint64
}

// Page is the declarative view tree of the whole page. Sections without
// backing data are nil.
type Page struct {
	Lang     string      `json:"lang"`
	Mode     string      `json:"mode"`
	Seq      uint64      `json:"seq"`
	Labels   i18n.Labels `json:"-"`
	Header   Header      `json:"header"`
	Form     Form        `json:"form"`
	Result   *Result     `json:"result,omitempty"`
	House    *House      `json:"house,omitempty"`
	Shop     *Shop       `json:"shop,omitempty"`
	Flash    *Flash      `json:"flash,omitempty"`
	Visitors int         `json:"visitors,omitempty"`
}

// Header is the top bar.
type Header struct {
	Game       bool   `json:"game"`
	ModeLabel  string `json:"modeLabel"`
	Points     int    `json:"points"`
	Day        int    `json:"day"`
	Level      int    `json:"level"`
	LevelName  string `json:"levelName"`
	LevelBadge string `json:"levelBadge"`
	Tariff     string `json:"tariff"`
}

// Result is the rendering of one simulated day.
type Result struct {
	Summary  Summary   `json:"summary"`
	Warnings []string  `json:"warnings,omitempty"`
	Insights []string  `json:"insights,omitempty"`
	Devices  []Row     `json:"devices,omitempty"`
	Rooms    []RoomRow `json:"rooms,omitempty"`
}

// Summary holds the headline numbers, already formatted.
type Summary struct {
	KWhTotal     string  `json:"kwhTotal"`
	Cost         string  `json:"cost"`
	PointsEarned int     `json:"pointsEarned,omitempty"`
	TOU          *Split  `json:"tou,omitempty"`
	SolarUsed    string  `json:"solarUsed,omitempty"`
	EV           string  `json:"ev,omitempty"`
	Monthly      Monthly `json:"monthly"`
	Bill         *Bill   `json:"bill,omitempty"`
}

// Split is the on-peak / off-peak usage.
type Split struct {
	On  string `json:"on"`
	Off string `json:"off"`
}

// Monthly is the monthly estimate for the selected tariff.
type Monthly struct {
	KWh          string `json:"kwh"`
	KWhEstimate  bool   `json:"kwhEstimate"`
	Cost         string `json:"cost"`
	CostEstimate bool   `json:"costEstimate"`
	Tariff       string `json:"tariff"`
}

// Bill is the monthly bill comparison line.
type Bill struct {
	NonTouLabel string `json:"nonTouLabel"`
	NonTou      string `json:"nonTou"`
	TouLabel    string `json:"touLabel"`
	Tou         string `json:"tou"`
	Diff        string `json:"diff"`
	Recommend   string `json:"recommend"`
	Text        string `json:"text"`
}

// Row is a labelled share of the day's usage.
type Row struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Icon    string `json:"icon,omitempty"`
	KWh     string `json:"kwh"`
	Percent int    `json:"percent"`
}

// RoomRow is a room's share of the day's usage.
type RoomRow struct {
	ID         string `json:"id"`
	KWhDay     string `json:"kwhDay"`
	KWhMonth   string `json:"kwhMonth"`
	Percent    int    `json:"percent"`
	EV         bool   `json:"ev"`
	EVKWhDay   string `json:"evKwhDay,omitempty"`
	EVKWhMonth string `json:"evKwhMonth,omitempty"`
}

// House is the house structure summary.
type House struct {
	Rooms       []HouseRoom `json:"rooms"`
	Saved       bool        `json:"saved"`
	Badge       string      `json:"badge"`
	Synthesized bool        `json:"synthesized"`
}

// HouseRoom is one room of the house structure.
type HouseRoom struct {
	ID    string `json:"id"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}

// Shop lists the items for sale and the player's inventory.
type Shop struct {
	Points    int        `json:"points"`
	Items     []ShopItem `json:"items"`
	Furniture []string   `json:"furniture,omitempty"`
	Avatar    []string   `json:"avatar,omitempty"`
}

// ShopItem is an item for sale.
type ShopItem struct {
	types.ShopItem
	Affordable bool `json:"affordable"`
	Owned      bool `json:"owned"`
}

var roomIcons = map[string]string{
	normalize.RoomBedroom:  "🛏️",
	normalize.RoomBathroom: "🛁",
	normalize.RoomLiving:   "🛋️",
	normalize.RoomKitchen:  "🍳",
	normalize.RoomWork:     "💻",
	normalize.RoomParking:  "🚗",
}

// FormatKWh formats energy with two decimals.
func FormatKWh(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FormatTHB formats money as whole baht.
func FormatTHB(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

// Percent returns part as a whole percentage of total, 0 when total is 0.
func Percent(part, total float64) int {
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return int(math.Round(part / total * 100))
}

// Build projects the input into a Page.
func Build(in Input) Page {
	msgs := i18n.For(in.Lang)
	game := in.Mode != types.ModeReal
	mode := types.ModeGame
	if !game {
		mode = types.ModeReal
	}

	p := Page{
		Lang:     string(in.Lang),
		Mode:     mode,
		Seq:      in.Seq,
		Labels:   msgs.Labels,
		Header:   header(in.Snapshot, msgs, game),
		Form:     buildForm(in.Snapshot, msgs),
		House:    house(in.Snapshot, in.Unsaved, msgs),
		Flash:    in.Flash,
		Visitors: in.Visitors,
	}
	if in.Result != nil {
		p.Result = result(*in.Result, msgs, game)
	}
	if game {
		p.Shop = shop(in.Snapshot, in.Shop)
	}
	return p
}

func header(s types.Snapshot, msgs i18n.Messages, game bool) Header {
	lvl := types.LevelForPoints(s.Points)
	if s.HouseLevel > 0 {
		lvl = types.LookupLevel(s.HouseLevel)
	}
	h := Header{
		Game:       game,
		ModeLabel:  msgs.Labels.ModeReal,
		Points:     s.Points,
		Day:        s.State.DayCounter,
		Level:      lvl.Level,
		LevelName:  lvl.Name,
		LevelBadge: lvl.Badge,
		Tariff:     msgs.TariffName(s.State.TariffMode),
	}
	if game {
		h.ModeLabel = msgs.Labels.ModeGame
	}
	return h
}

func result(r types.SimulationResult, msgs i18n.Messages, game bool) *Result {
	out := &Result{
		Summary: Summary{
			KWhTotal: FormatKWh(r.KWhTotal),
			Cost:     FormatTHB(r.CostTHB),
			Monthly: Monthly{
				KWh:          FormatKWh(r.Monthly.KWh),
				KWhEstimate:  r.Monthly.KWhSource.Estimated(),
				Cost:         FormatTHB(r.Monthly.Cost),
				CostEstimate: r.Monthly.CostSource.Estimated(),
				Tariff:       msgs.TariffName(r.Monthly.Tariff),
			},
		},
		Warnings: slices.Clone(r.Warnings),
		Insights: slices.Clone(r.Insights),
		Devices:  devices(r.Breakdown),
		Rooms:    rooms(r.RoomsBreakdown),
	}
	if game && r.PointsEarned != 0 {
		out.Summary.PointsEarned = r.PointsEarned
	}
	if r.KWhOn > 0 || r.KWhOff > 0 {
		out.Summary.TOU = &Split{On: FormatKWh(r.KWhOn), Off: FormatKWh(r.KWhOff)}
	}
	if r.KWhSolarUsed > 0 {
		out.Summary.SolarUsed = FormatKWh(r.KWhSolarUsed)
	}
	if r.KWhEV > 0 {
		out.Summary.EV = FormatKWh(r.KWhEV)
	}
	if bc := r.BillCompare; bc != nil {
		out.Summary.Bill = &Bill{
			NonTouLabel: msgs.TariffNonTOU,
			NonTou:      FormatTHB(bc.NonTouMonth),
			TouLabel:    msgs.TariffTOU,
			Tou:         FormatTHB(bc.TouMonth),
			Diff:        FormatTHB(bc.DiffMonth),
			Recommend:   msgs.TariffName(bc.Recommend),
			Text:        bc.RecommendText,
		}
	}
	return out
}

func devices(breakdown map[string]float64) []Row {
	if len(breakdown) == 0 {
		return nil
	}
	keys := sortedByValue(breakdown)
	var total float64
	for _, k := range keys {
		total += breakdown[k]
	}
	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		row := Row{
			Key:     k,
			Name:    k,
			KWh:     FormatKWh(breakdown[k]),
			Percent: Percent(breakdown[k], total),
		}
		if a, ok := types.LookupAppliance(k); ok {
			row.Name = a.Name
			row.Icon = a.Icon
		}
		rows = append(rows, row)
	}
	return rows
}

// sortedByValue returns the keys by value descending, ties by key.
func sortedByValue(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(m[b], m[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return keys
}

func rooms(rb map[string]types.RoomResult) []RoomRow {
	if len(rb) == 0 {
		return nil
	}
	day := make(map[string]float64, len(rb))
	var total float64
	for id, r := range rb {
		day[id] = r.KWhDay
	}
	ids := sortedByValue(day)
	for _, id := range ids {
		total += day[id]
	}

	rows := make([]RoomRow, 0, len(ids))
	for _, id := range ids {
		r := rb[id]
		row := RoomRow{
			ID:       id,
			KWhDay:   FormatKWh(r.KWhDay),
			KWhMonth: FormatKWh(r.KWhMonth),
			Percent:  Percent(r.KWhDay, total),
		}
		if r.EVKWhDay > 0 {
			row.EV = true
			row.EVKWhDay = FormatKWh(r.EVKWhDay)
			row.EVKWhMonth = FormatKWh(r.EVKWhMonth)
		}
		rows = append(rows, row)
	}
	return rows
}

func house(s types.Snapshot, unsaved bool, msgs i18n.Messages) *House {
	list, synthesized := normalize.HouseRooms(s.State.Raw)
	if len(list) == 0 {
		return nil
	}
	h := &House{
		Rooms:       make([]HouseRoom, 0, len(list)),
		Saved:       !unsaved,
		Badge:       msgs.Labels.SavedBadge,
		Synthesized: synthesized,
	}
	if unsaved {
		h.Badge = msgs.Labels.UnsavedBadge
	}
	perType := map[string]int{}
	for _, r := range list {
		perType[r.Type]++
		label := r.Name
		if label == "" {
			if name := msgs.RoomTypeName(r.Type); name != "" {
				label = name + " " + strconv.Itoa(perType[r.Type])
			} else {
				label = r.ID
			}
		}
		h.Rooms = append(h.Rooms, HouseRoom{
			ID:    r.ID,
			Type:  r.Type,
			Label: label,
			Icon:  roomIcons[r.Type],
		})
	}
	return h
}

func shop(s types.Snapshot, items []types.ShopItem) *Shop {
	if items == nil {
		items = types.DefaultShopItems
	}
	inv := s.State.Inventory
	out := &Shop{
		Points:    s.Points,
		Items:     make([]ShopItem, 0, len(items)),
		Furniture: itemNames(items, inv.Furniture),
		Avatar:    itemNames(items, inv.Avatar),
	}
	for _, it := range items {
		out.Items = append(out.Items, ShopItem{
			ShopItem:   it,
			Affordable: s.Points >= it.Cost,
			Owned:      slices.Contains(inv.Furniture, it.Key) || slices.Contains(inv.Avatar, it.Key),
		})
	}
	return out
}

func itemNames(items []types.ShopItem, keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if it, ok := types.LookupShopItem(items, k); ok {
			out = append(out, it.Icon+" "+it.Name)
		} else {
			out = append(out, k)
		}
	}
	return out
}
