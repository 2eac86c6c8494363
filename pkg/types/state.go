package types

import (
	"encoding/json"
	"maps"
)

// Tariff modes understood by the simulator backend.
const (
	TariffNonTOU = "non_tou"
	TariffTOU    = "tou"
)

// Front-end modes. The shop and points only exist in game mode.
const (
	ModeGame = "game"
	ModeReal = "real"
)

// Appliance kinds. The key of an appliance decides which fields it carries.
const (
	ApplianceAC      = "ac"
	ApplianceLights  = "lights"
	ApplianceFridge  = "fridge"
	ApplianceGeneric = "generic"
)

// ApplianceKind returns the variant of appliance config for the given key.
// Unknown keys are generic watts/hours appliances.
func ApplianceKind(key string) string {
	switch key {
	case ApplianceAC, ApplianceLights, ApplianceFridge:
		return key
	default:
		return ApplianceGeneric
	}
}

// Profile describes the player and their house.
type Profile struct {
	DisplayName string `json:"display_name,omitempty"`
	PlayerType  string `json:"player_type"`
	HouseType   string `json:"house_type"`
	HouseSize   string `json:"house_size"`
	Residents   int    `json:"residents"`
}

// ApplianceConfig holds the settings of a single appliance. Only the fields
// relevant to the appliance's kind are set:
//
//	ac:      BTU, SetTemp, Hours, StartHour, EndHour, Inverter
//	lights:  Mode, Watts, Hours
//	fridge:  KWhPerDay
//	generic: Watts, Hours (either may be missing)
type ApplianceConfig struct {
	Enabled   *bool    `json:"enabled,omitempty"`
	BTU       *float64 `json:"btu,omitempty"`
	SetTemp   *float64 `json:"set_temp,omitempty"`
	Hours     *float64 `json:"hours,omitempty"`
	StartHour *int     `json:"start_hour,omitempty"`
	EndHour   *int     `json:"end_hour,omitempty"`
	Inverter  *bool    `json:"inverter,omitempty"`
	Mode      *string  `json:"mode,omitempty"`
	Watts     *float64 `json:"watts,omitempty"`
	KWhPerDay *float64 `json:"kwh_per_day,omitempty"`
}

// IsEnabled reports whether the appliance is switched on. A missing flag
// counts as off.
func (c ApplianceConfig) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// merge overwrites every field of c that is set in patch.
func (c ApplianceConfig) merge(patch ApplianceConfig) ApplianceConfig {
	if patch.Enabled != nil {
		c.Enabled = patch.Enabled
	}
	if patch.BTU != nil {
		c.BTU = patch.BTU
	}
	if patch.SetTemp != nil {
		c.SetTemp = patch.SetTemp
	}
	if patch.Hours != nil {
		c.Hours = patch.Hours
	}
	if patch.StartHour != nil {
		c.StartHour = patch.StartHour
	}
	if patch.EndHour != nil {
		c.EndHour = patch.EndHour
	}
	if patch.Inverter != nil {
		c.Inverter = patch.Inverter
	}
	if patch.Mode != nil {
		c.Mode = patch.Mode
	}
	if patch.Watts != nil {
		c.Watts = patch.Watts
	}
	if patch.KWhPerDay != nil {
		c.KWhPerDay = patch.KWhPerDay
	}
	return c
}

// EvConfig is the EV charging setup.
type EvConfig struct {
	BatteryKWh      float64 `json:"battery_kwh"`
	ChargerKW       float64 `json:"charger_kw"`
	SOCFrom         float64 `json:"soc_from"`
	SOCTo           float64 `json:"soc_to"`
	ChargeStartHour int     `json:"charge_start_hour"`
}

// Inventory is what the player bought in the shop.
type Inventory struct {
	Furniture []string `json:"furniture"`
	Avatar    []string `json:"avatar"`
}

// SimulationState is the player's configurable house state.
type SimulationState struct {
	TariffMode string                     `json:"tariff_mode"`
	SolarMode  string                     `json:"solar_mode"`
	SolarKW    float64                    `json:"solar_kw"`
	EVEnabled  bool                       `json:"ev_enabled"`
	Appliances map[string]ApplianceConfig `json:"appliances"`
	EV         EvConfig                   `json:"ev"`
	DayCounter int                        `json:"day_counter,omitempty"`
	Inventory  Inventory                  `json:"inventory"`

	// Raw is the state object exactly as the backend sent it, including keys
	// that are not modeled above.
	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps the raw object around.
func (s *SimulationState) UnmarshalJSON(data []byte) error {
	type plain SimulationState
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SimulationState(p)
	s.Raw = raw
	return nil
}

// Clone returns a deep copy of the state so it can be handed out without
// sharing maps.
func (s SimulationState) Clone() SimulationState {
	out := s
	if s.Appliances != nil {
		out.Appliances = maps.Clone(s.Appliances)
	}
	if s.Raw != nil {
		out.Raw = cloneAny(s.Raw).(map[string]any)
	}
	out.Inventory = Inventory{
		Furniture: append([]string(nil), s.Inventory.Furniture...),
		Avatar:    append([]string(nil), s.Inventory.Avatar...),
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneAny(vv)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, vv := range t {
			l[i] = cloneAny(vv)
		}
		return l
	default:
		return v
	}
}

// Snapshot is the persisted profile and state of a player as returned by
// GET /api/state.
type Snapshot struct {
	Profile    Profile         `json:"profile"`
	State      SimulationState `json:"state"`
	Points     int             `json:"points"`
	HouseLevel int             `json:"house_level"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.State = s.State.Clone()
	return out
}

// ProfilePatch is the profile part of a Payload. Nil fields were not
// present in the form and are left untouched.
type ProfilePatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	PlayerType  *string `json:"player_type,omitempty"`
	HouseType   *string `json:"house_type,omitempty"`
	HouseSize   *string `json:"house_size,omitempty"`
	Residents   *int    `json:"residents,omitempty"`
}

// EvPatch is the EV part of a StatePatch.
type EvPatch struct {
	BatteryKWh      *float64 `json:"battery_kwh,omitempty"`
	ChargerKW       *float64 `json:"charger_kw,omitempty"`
	SOCFrom         *float64 `json:"soc_from,omitempty"`
	SOCTo           *float64 `json:"soc_to,omitempty"`
	ChargeStartHour *int     `json:"charge_start_hour,omitempty"`
}

// StatePatch is the state part of a Payload.
type StatePatch struct {
	TariffMode *string                    `json:"tariff_mode,omitempty"`
	SolarMode  *string                    `json:"solar_mode,omitempty"`
	SolarKW    *float64                   `json:"solar_kw,omitempty"`
	EVEnabled  *bool                      `json:"ev_enabled,omitempty"`
	Appliances map[string]ApplianceConfig `json:"appliances,omitempty"`
	EV         *EvPatch                   `json:"ev,omitempty"`
}

// Payload is the body of POST /api/state: whatever part of the profile and
// state the current page lets the player edit.
type Payload struct {
	Profile ProfilePatch `json:"profile"`
	State   StatePatch   `json:"state"`
}

// Empty returns true if the payload would not change anything.
func (p Payload) Empty() bool {
	return p.Profile == (ProfilePatch{}) &&
		p.State.TariffMode == nil &&
		p.State.SolarMode == nil &&
		p.State.SolarKW == nil &&
		p.State.EVEnabled == nil &&
		len(p.State.Appliances) == 0 &&
		p.State.EV == nil
}

// SelectedTariff returns the tariff chosen in the payload, falling back to
// the given current mode when the payload doesn't carry one.
func (p Payload) SelectedTariff(current string) string {
	if p.State.TariffMode != nil && *p.State.TariffMode != "" {
		return *p.State.TariffMode
	}
	if current == "" {
		return TariffNonTOU
	}
	return current
}

// Apply returns a copy of the snapshot with the payload applied. Fields the
// payload doesn't carry are kept, appliances are updated field by field.
func (s Snapshot) Apply(p Payload) Snapshot {
	out := s.Clone()

	if v := p.Profile.DisplayName; v != nil {
		out.Profile.DisplayName = *v
	}
	if v := p.Profile.PlayerType; v != nil {
		out.Profile.PlayerType = *v
	}
	if v := p.Profile.HouseType; v != nil {
		out.Profile.HouseType = *v
	}
	if v := p.Profile.HouseSize; v != nil {
		out.Profile.HouseSize = *v
	}
	if v := p.Profile.Residents; v != nil {
		out.Profile.Residents = *v
	}

	st := p.State
	if st.TariffMode != nil {
		out.State.TariffMode = *st.TariffMode
	}
	if st.SolarMode != nil {
		out.State.SolarMode = *st.SolarMode
	}
	if st.SolarKW != nil {
		out.State.SolarKW = *st.SolarKW
	}
	if st.EVEnabled != nil {
		out.State.EVEnabled = *st.EVEnabled
	}
	if len(st.Appliances) > 0 && out.State.Appliances == nil {
		out.State.Appliances = make(map[string]ApplianceConfig, len(st.Appliances))
	}
	for key, patch := range st.Appliances {
		out.State.Appliances[key] = out.State.Appliances[key].merge(patch)
	}
	if ev := st.EV; ev != nil {
		if ev.BatteryKWh != nil {
			out.State.EV.BatteryKWh = *ev.BatteryKWh
		}
		if ev.ChargerKW != nil {
			out.State.EV.ChargerKW = *ev.ChargerKW
		}
		if ev.SOCFrom != nil {
			out.State.EV.SOCFrom = *ev.SOCFrom
		}
		if ev.SOCTo != nil {
			out.State.EV.SOCTo = *ev.SOCTo
		}
		if ev.ChargeStartHour != nil {
			out.State.EV.ChargeStartHour = *ev.ChargeStartHour
		}
	}
	return out
}
