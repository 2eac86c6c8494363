package types

import (
	"fmt"
	"math"
	"sort"
)

// ValidationError describes the first invalid field of a Payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func checkRange(field string, v *float64, min, max float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return invalid(field, "must be a number")
	}
	if *v < min || *v > max {
		return invalid(field, fmt.Sprintf("must be between %g and %g", min, max))
	}
	return nil
}

func checkHour(field string, v *int) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 23 {
		return invalid(field, "must be between 0 and 23")
	}
	return nil
}

func checkPositive(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return invalid(field, "must be greater than 0")
	}
	return nil
}

// Validate checks the payload against the invariants of the data model. The
// EV state of charge is checked against the base snapshot when only one
// side is being changed.
func (p Payload) Validate(base Snapshot) error {
	if r := p.Profile.Residents; r != nil && *r < 0 {
		return invalid("residents", "cannot be negative")
	}

	st := p.State
	if st.TariffMode != nil && *st.TariffMode != TariffNonTOU && *st.TariffMode != TariffTOU {
		return invalid("tariff_mode", fmt.Sprintf("must be %s or %s", TariffNonTOU, TariffTOU))
	}
	if err := checkRange("solar_kw", st.SolarKW, 0, math.MaxFloat64); err != nil {
		return err
	}

	// sort so the reported field is stable
	keys := make([]string, 0, len(st.Appliances))
	for k := range st.Appliances {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ap := st.Appliances[key]
		if err := checkRange(key+".hours", ap.Hours, 0, 24); err != nil {
			return err
		}
		if err := checkHour(key+".start_hour", ap.StartHour); err != nil {
			return err
		}
		if err := checkHour(key+".end_hour", ap.EndHour); err != nil {
			return err
		}
		if err := checkRange(key+".watts", ap.Watts, 0, math.MaxFloat64); err != nil {
			return err
		}
		if err := checkRange(key+".kwh_per_day", ap.KWhPerDay, 0, math.MaxFloat64); err != nil {
			return err
		}
		if err := checkPositive(key+".btu", ap.BTU); err != nil {
			return err
		}
	}

	if ev := st.EV; ev != nil {
		if err := checkPositive("ev.battery_kwh", ev.BatteryKWh); err != nil {
			return err
		}
		if err := checkPositive("ev.charger_kw", ev.ChargerKW); err != nil {
			return err
		}
		if err := checkRange("ev.soc_from", ev.SOCFrom, 0, 100); err != nil {
			return err
		}
		if err := checkRange("ev.soc_to", ev.SOCTo, 0, 100); err != nil {
			return err
		}
		if err := checkHour("ev.charge_start_hour", ev.ChargeStartHour); err != nil {
			return err
		}
		from, to := base.State.EV.SOCFrom, base.State.EV.SOCTo
		if ev.SOCFrom != nil {
			from = *ev.SOCFrom
		}
		if ev.SOCTo != nil {
			to = *ev.SOCTo
		}
		if (ev.SOCFrom != nil || ev.SOCTo != nil) && to < from {
			return invalid("ev.soc_to", "must not be below ev.soc_from")
		}
	}
	return nil
}
