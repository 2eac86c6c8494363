// Package form turns a posted settings form into a types.Payload.
//
// A page may render only part of the full form, so every control is
// optional: a missing control leaves its field nil and the backend keeps its
// current value. A control that is present but empty or unparseable falls
// back to a fixed default instead.
package form

import (
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/energylife/energylife/pkg/types"
)

// Fallbacks for present but empty controls.
const (
	DefaultResidents     = 3
	DefaultSolarKW       = 0.0
	DefaultTariffMode    = types.TariffNonTOU
	DefaultSolarMode     = "manual"
	DefaultACBTU         = 12000.0
	DefaultACSetTemp     = 26.0
	DefaultLightMode     = "LED"
	DefaultEVBatteryKWh  = 60.0
	DefaultEVChargerKW   = 7.4
	DefaultEVSOCFrom     = 30.0
	DefaultEVSOCTo       = 80.0
	DefaultEVChargeStart = 22
)

// ApplianceMarker is the repeated field listing the appliance cards that were
// rendered into the form.
const ApplianceMarker = "appliance"

// Field returns the form field name of an appliance setting.
func Field(key, name string) string {
	return key + "." + name
}

type reader url.Values

func (r reader) last(name string) (string, bool) {
	vals, ok := r[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return strings.TrimSpace(vals[len(vals)-1]), true
}

func (r reader) float(name string, def float64) *float64 {
	s, ok := r.last(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v = def
	}
	return &v
}

func (r reader) int(name string, def int) *int {
	s, ok := r.last(name)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// "7.0" from number inputs with a step
		f, ferr := strconv.ParseFloat(s, 64)
		// NaN fails both comparisons
		if ferr != nil || !(f > math.MinInt32 && f < math.MaxInt32) {
			v = def
		} else {
			v = int(f)
		}
	}
	return &v
}

// checkbox reads a hidden "false" input followed by the checkbox itself.
// Values other than the usual truthy strings are false.
func (r reader) checkbox(name string) *bool {
	s, ok := r.last(name)
	if !ok {
		return nil
	}
	var v bool
	switch strings.ToLower(s) {
	case "true", "on", "1", "yes":
		v = true
	}
	return &v
}

func (r reader) str(name, def string) *string {
	s, ok := r.last(name)
	if !ok {
		return nil
	}
	if s == "" {
		if def == "" {
			return nil
		}
		s = def
	}
	return &s
}

// Keys returns the appliance keys listed in the form, in order and without
// duplicates.
func Keys(v url.Values) []string {
	var keys []string
	for _, k := range v[ApplianceMarker] {
		k = strings.TrimSpace(k)
		if k == "" || slices.Contains(keys, k) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// Collect builds the payload from the posted form values.
func Collect(v url.Values) types.Payload {
	r := reader(v)
	var p types.Payload

	p.Profile = types.ProfilePatch{
		DisplayName: r.str("display_name", ""),
		PlayerType:  r.str("player_type", ""),
		HouseType:   r.str("house_type", ""),
		HouseSize:   r.str("house_size", ""),
		Residents:   r.int("residents", DefaultResidents),
	}

	p.State = types.StatePatch{
		TariffMode: r.str("tariff_mode", DefaultTariffMode),
		SolarMode:  r.str("solar_mode", DefaultSolarMode),
		SolarKW:    r.float("solar_kw", DefaultSolarKW),
		EVEnabled:  r.checkbox("ev_enabled"),
	}

	if keys := Keys(v); len(keys) > 0 {
		p.State.Appliances = make(map[string]types.ApplianceConfig, len(keys))
		for _, key := range keys {
			p.State.Appliances[key] = r.appliance(key)
		}
	}

	ev := types.EvPatch{
		BatteryKWh:      r.float("ev_batt", DefaultEVBatteryKWh),
		ChargerKW:       r.float("ev_charger", DefaultEVChargerKW),
		SOCFrom:         r.float("ev_from", DefaultEVSOCFrom),
		SOCTo:           r.float("ev_to", DefaultEVSOCTo),
		ChargeStartHour: r.int("ev_start", DefaultEVChargeStart),
	}
	if ev != (types.EvPatch{}) {
		p.State.EV = &ev
	}
	return p
}

func (r reader) appliance(key string) types.ApplianceConfig {
	// a card without the control leaves the flag alone
	ap := types.ApplianceConfig{Enabled: r.checkbox(Field(key, "enabled"))}

	switch types.ApplianceKind(key) {
	case types.ApplianceAC:
		ap.BTU = r.float(Field(key, "btu"), DefaultACBTU)
		ap.SetTemp = r.float(Field(key, "set_temp"), DefaultACSetTemp)
		ap.Hours = r.float(Field(key, "hours"), 0)
		ap.StartHour = r.int(Field(key, "start_hour"), 0)
		ap.EndHour = r.int(Field(key, "end_hour"), 0)
		ap.Inverter = r.checkbox(Field(key, "inverter"))
	case types.ApplianceLights:
		ap.Mode = r.str(Field(key, "mode"), DefaultLightMode)
		ap.Watts = r.float(Field(key, "watts"), 0)
		ap.Hours = r.float(Field(key, "hours"), 0)
	case types.ApplianceFridge:
		ap.KWhPerDay = r.float(Field(key, "kwh_per_day"), 0)
	default:
		ap.Watts = r.float(Field(key, "watts"), 0)
		ap.Hours = r.float(Field(key, "hours"), 0)
	}
	return ap
}
