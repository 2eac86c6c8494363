package form

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/energylife/energylife/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFullForm(t *testing.T) {
	v := url.Values{
		"player_type": {"kid"},
		"house_type":  {"single_1"},
		"house_size":  {"large"},
		"residents":   {"5"},
		"tariff_mode": {"tou"},
		"solar_mode":  {"advisor"},
		"solar_kw":    {"3.5"},
		"ev_enabled":  {"false", "true"},
		"ev_batt":     {"75"},
		"ev_charger":  {"11"},
		"ev_from":     {"20"},
		"ev_to":       {"90"},
		"ev_start":    {"23"},

		"appliance":          {"ac", "lights", "fridge", "tv"},
		"ac.enabled":         {"false", "true"},
		"ac.btu":             {"18000"},
		"ac.set_temp":        {"25"},
		"ac.hours":           {"8"},
		"ac.start_hour":      {"21"},
		"ac.end_hour":        {"5"},
		"ac.inverter":        {"false"},
		"lights.enabled":     {"false", "true"},
		"lights.mode":        {"Fluorescent"},
		"lights.watts":       {"40"},
		"lights.hours":       {"6"},
		"fridge.enabled":     {"false"},
		"fridge.kwh_per_day": {"1.5"},
		"tv.enabled":         {"false", "true"},
		"tv.watts":           {"100"},
		"tv.hours":           {"2.5"},
	}

	p := Collect(v)

	require.NotNil(t, p.Profile.Residents)
	assert.Equal(t, 5, *p.Profile.Residents)
	assert.Equal(t, "kid", *p.Profile.PlayerType)
	assert.Equal(t, "single_1", *p.Profile.HouseType)
	assert.Equal(t, "large", *p.Profile.HouseSize)
	assert.Nil(t, p.Profile.DisplayName)

	assert.Equal(t, types.TariffTOU, *p.State.TariffMode)
	assert.Equal(t, "advisor", *p.State.SolarMode)
	assert.Equal(t, 3.5, *p.State.SolarKW)
	assert.True(t, *p.State.EVEnabled)

	require.NotNil(t, p.State.EV)
	assert.Equal(t, 75.0, *p.State.EV.BatteryKWh)
	assert.Equal(t, 11.0, *p.State.EV.ChargerKW)
	assert.Equal(t, 20.0, *p.State.EV.SOCFrom)
	assert.Equal(t, 90.0, *p.State.EV.SOCTo)
	assert.Equal(t, 23, *p.State.EV.ChargeStartHour)

	require.Len(t, p.State.Appliances, 4)
	ac := p.State.Appliances["ac"]
	assert.True(t, ac.IsEnabled())
	assert.Equal(t, 18000.0, *ac.BTU)
	assert.Equal(t, 25.0, *ac.SetTemp)
	assert.Equal(t, 8.0, *ac.Hours)
	assert.Equal(t, 21, *ac.StartHour)
	assert.Equal(t, 5, *ac.EndHour)
	assert.False(t, *ac.Inverter)
	assert.Nil(t, ac.Watts)

	lights := p.State.Appliances["lights"]
	assert.Equal(t, "Fluorescent", *lights.Mode)
	assert.Equal(t, 40.0, *lights.Watts)
	assert.Equal(t, 6.0, *lights.Hours)
	assert.Nil(t, lights.BTU)

	fridge := p.State.Appliances["fridge"]
	require.NotNil(t, fridge.Enabled)
	assert.False(t, *fridge.Enabled)
	assert.Equal(t, 1.5, *fridge.KWhPerDay)
	assert.Nil(t, fridge.Hours)

	tv := p.State.Appliances["tv"]
	assert.True(t, tv.IsEnabled())
	assert.Equal(t, 100.0, *tv.Watts)
	assert.Equal(t, 2.5, *tv.Hours)
}

func TestCollectEmptyValuesUseFallbacks(t *testing.T) {
	v := url.Values{
		"residents":     {""},
		"solar_kw":      {"abc"},
		"tariff_mode":   {""},
		"player_type":   {""},
		"ev_batt":       {""},
		"ev_charger":    {""},
		"ev_from":       {""},
		"ev_to":         {""},
		"ev_start":      {""},
		"appliance":     {"ac", "lights"},
		"ac.btu":        {""},
		"ac.set_temp":   {""},
		"ac.hours":      {""},
		"ac.start_hour": {""},
		"lights.mode":   {""},
	}

	p := Collect(v)
	assert.Equal(t, DefaultResidents, *p.Profile.Residents)
	assert.Equal(t, DefaultSolarKW, *p.State.SolarKW)
	assert.Equal(t, types.TariffNonTOU, *p.State.TariffMode)
	assert.Nil(t, p.Profile.PlayerType)

	require.NotNil(t, p.State.EV)
	assert.Equal(t, 60.0, *p.State.EV.BatteryKWh)
	assert.Equal(t, 7.4, *p.State.EV.ChargerKW)
	assert.Equal(t, 30.0, *p.State.EV.SOCFrom)
	assert.Equal(t, 80.0, *p.State.EV.SOCTo)
	assert.Equal(t, 22, *p.State.EV.ChargeStartHour)

	ac := p.State.Appliances["ac"]
	assert.Nil(t, ac.Enabled)
	assert.Equal(t, DefaultACBTU, *ac.BTU)
	assert.Equal(t, DefaultACSetTemp, *ac.SetTemp)
	assert.Equal(t, 0.0, *ac.Hours)
	assert.Equal(t, 0, *ac.StartHour)
	assert.Nil(t, ac.EndHour)
	assert.Nil(t, ac.Inverter)

	assert.Equal(t, DefaultLightMode, *p.State.Appliances["lights"].Mode)
}

func TestCollectPartialForm(t *testing.T) {
	t.Run("nothing", func(t *testing.T) {
		p := Collect(url.Values{})
		assert.True(t, p.Empty())
		assert.Nil(t, p.State.EV)
		assert.Nil(t, p.State.Appliances)
	})

	t.Run("only tariff", func(t *testing.T) {
		p := Collect(url.Values{"tariff_mode": {"tou"}})
		assert.Equal(t, types.TariffTOU, *p.State.TariffMode)
		assert.Nil(t, p.Profile.Residents)
		assert.Nil(t, p.State.SolarKW)
		assert.Nil(t, p.State.EVEnabled)
		assert.Nil(t, p.State.EV)
	})

	t.Run("one ev field", func(t *testing.T) {
		p := Collect(url.Values{"ev_to": {"95"}})
		require.NotNil(t, p.State.EV)
		assert.Equal(t, 95.0, *p.State.EV.SOCTo)
		assert.Nil(t, p.State.EV.SOCFrom)
	})

	t.Run("card without enabled control", func(t *testing.T) {
		p := Collect(url.Values{"appliance": {"ac"}, "ac.hours": {"5"}})
		ac := p.State.Appliances["ac"]
		assert.Nil(t, ac.Enabled)
		assert.Equal(t, 5.0, *ac.Hours)

		b, err := json.Marshal(p)
		require.NoError(t, err)
		assert.NotContains(t, string(b), "enabled")

		// the appliance stays on
		snap := types.DefaultSnapshot()
		require.True(t, snap.State.Appliances["ac"].IsEnabled())
		out := snap.Apply(p)
		assert.True(t, out.State.Appliances["ac"].IsEnabled())
		assert.Equal(t, 5.0, *out.State.Appliances["ac"].Hours)
	})

	t.Run("generic appliance without hours", func(t *testing.T) {
		p := Collect(url.Values{
			"appliance":       {"standby"},
			"standby.enabled": {"false", "true"},
			"standby.watts":   {"15"},
		})
		sb := p.State.Appliances["standby"]
		assert.True(t, sb.IsEnabled())
		assert.Equal(t, 15.0, *sb.Watts)
		assert.Nil(t, sb.Hours)
	})
}

func TestCollectNumberParsing(t *testing.T) {
	p := Collect(url.Values{"residents": {" 4.0 "}, "ev_start": {"x"}})
	assert.Equal(t, 4, *p.Profile.Residents)
	assert.Equal(t, DefaultEVChargeStart, *p.State.EV.ChargeStartHour)

	// out of int range
	p = Collect(url.Values{"residents": {"1e300"}, "ev_start": {"-1e300"}, "appliance": {"ac"}, "ac.end_hour": {"NaN"}})
	assert.Equal(t, DefaultResidents, *p.Profile.Residents)
	assert.Equal(t, DefaultEVChargeStart, *p.State.EV.ChargeStartHour)
	assert.Equal(t, 0, *p.State.Appliances["ac"].EndHour)
	assert.NoError(t, p.Validate(types.DefaultSnapshot()))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"ac", "tv"}, Keys(url.Values{"appliance": {"ac", " ", "tv", "ac"}}))
	assert.Nil(t, Keys(url.Values{}))
}

func TestCollectedPayloadValidates(t *testing.T) {
	p := Collect(url.Values{
		"appliance": {"ac"},
		"ac.hours":  {"30"},
		"ev_from":   {"50"},
		"ev_to":     {"40"},
	})
	var verr *types.ValidationError
	require.ErrorAs(t, p.Validate(types.DefaultSnapshot()), &verr)
	assert.Equal(t, "ac.hours", verr.Field)
}
