package view

import (
	"slices"
	"sort"
	"strconv"

	"github.com/energylife/energylife/pkg/form"
	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/types"
)

// Option is a choice of a select control.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Form holds the current values of the settings form.
type Form struct {
	PlayerType []Option `json:"playerType"`
	HouseType  []Option `json:"houseType"`
	HouseSize  []Option `json:"houseSize"`
	Residents  int      `json:"residents"`
	Tariff     []Option `json:"tariff"`
	SolarMode  []Option `json:"solarMode"`
	SolarKW    string   `json:"solarKW"`
	EVEnabled  bool     `json:"evEnabled"`
	EV         EVForm   `json:"ev"`
	Appliances []Card   `json:"appliances"`
}

// EVForm holds the EV charging controls.
type EVForm struct {
	BatteryKWh      string `json:"batteryKWh"`
	ChargerKW       string `json:"chargerKW"`
	SOCFrom         string `json:"socFrom"`
	SOCTo           string `json:"socTo"`
	ChargeStartHour int    `json:"chargeStartHour"`
}

// Card is an appliance card. Only the fields of its Kind are rendered.
type Card struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Icon      string   `json:"icon,omitempty"`
	Kind      string   `json:"kind"`
	Enabled   bool     `json:"enabled"`
	BTU       string   `json:"btu,omitempty"`
	SetTemp   string   `json:"setTemp,omitempty"`
	Hours     string   `json:"hours,omitempty"`
	StartHour string   `json:"startHour,omitempty"`
	EndHour   string   `json:"endHour,omitempty"`
	Inverter  bool     `json:"inverter,omitempty"`
	Mode      []Option `json:"mode,omitempty"`
	Watts     string   `json:"watts,omitempty"`
	KWhPerDay string   `json:"kwhPerDay,omitempty"`
	HasWatts  bool     `json:"hasWatts,omitempty"`
	HasHours  bool     `json:"hasHours,omitempty"`
}

// Field returns the form field name of one of the card's settings.
func (c Card) Field(name string) string {
	return form.Field(c.Key, name)
}

var (
	playerTypes = []string{"kid", "adult", "family"}
	houseTypes  = []string{"condo", "single_1", "single_2"}
	houseSizes  = []string{"small", "medium", "large"}
	solarModes  = []string{"manual", "advisor"}
	lightModes  = []string{"LED", "CFL", "Incandescent"}
)

// options lists values with the current one selected. A current value that
// isn't one of values is kept as an extra choice so saving doesn't lose it.
func options(values []string, current string, label func(string) string) []Option {
	if current != "" && !slices.Contains(values, current) {
		values = append(slices.Clone(values), current)
	}
	out := make([]Option, 0, len(values))
	for _, v := range values {
		l := v
		if label != nil {
			l = label(v)
		}
		out = append(out, Option{Value: v, Label: l, Selected: v == current})
	}
	return out
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fptr(v *float64) string {
	if v == nil {
		return ""
	}
	return fnum(*v)
}

func iptr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func buildForm(s types.Snapshot, msgs i18n.Messages) Form {
	st := s.State
	return Form{
		PlayerType: options(playerTypes, s.Profile.PlayerType, nil),
		HouseType:  options(houseTypes, s.Profile.HouseType, nil),
		HouseSize:  options(houseSizes, s.Profile.HouseSize, nil),
		Residents:  s.Profile.Residents,
		Tariff:     options([]string{types.TariffNonTOU, types.TariffTOU}, st.TariffMode, msgs.TariffName),
		SolarMode:  options(solarModes, st.SolarMode, nil),
		SolarKW:    fnum(st.SolarKW),
		EVEnabled:  st.EVEnabled,
		EV: EVForm{
			BatteryKWh:      fnum(st.EV.BatteryKWh),
			ChargerKW:       fnum(st.EV.ChargerKW),
			SOCFrom:         fnum(st.EV.SOCFrom),
			SOCTo:           fnum(st.EV.SOCTo),
			ChargeStartHour: st.EV.ChargeStartHour,
		},
		Appliances: cards(st.Appliances),
	}
}

// cards lists the catalog appliances first, then any other appliance the
// state has, sorted by key.
func cards(apps map[string]types.ApplianceConfig) []Card {
	var out []Card
	for _, a := range types.Appliances {
		cfg, ok := apps[a.Key]
		if !ok {
			cfg = a.Defaults
		}
		out = append(out, card(a.Key, a.Name, a.Icon, cfg))
	}
	var extra []string
	for k := range apps {
		if _, ok := types.LookupAppliance(k); !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, card(k, k, "", apps[k]))
	}
	return out
}

func card(key, name, icon string, cfg types.ApplianceConfig) Card {
	c := Card{
		Key:     key,
		Name:    name,
		Icon:    icon,
		Kind:    types.ApplianceKind(key),
		Enabled: cfg.IsEnabled(),
	}
	switch c.Kind {
	case types.ApplianceAC:
		c.BTU = fptr(cfg.BTU)
		c.SetTemp = fptr(cfg.SetTemp)
		c.Hours = fptr(cfg.Hours)
		c.StartHour = iptr(cfg.StartHour)
		c.EndHour = iptr(cfg.EndHour)
		c.Inverter = cfg.Inverter != nil && *cfg.Inverter
	case types.ApplianceLights:
		mode := form.DefaultLightMode
		if cfg.Mode != nil {
			mode = *cfg.Mode
		}
		c.Mode = options(lightModes, mode, nil)
		c.Watts = fptr(cfg.Watts)
		c.Hours = fptr(cfg.Hours)
	case types.ApplianceFridge:
		c.KWhPerDay = fptr(cfg.KWhPerDay)
	default:
		c.HasWatts = cfg.Watts != nil
		c.HasHours = cfg.Hours != nil
		c.Watts = fptr(cfg.Watts)
		c.Hours = fptr(cfg.Hours)
	}
	return c
}
