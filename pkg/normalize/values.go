package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// num returns v as a finite float. Numeric strings are accepted since some
// backend versions stringify their numbers.
func num(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		var err error
		if f, err = t.Float64(); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// numOr returns num(v) or 0.
func numOr(v any) float64 {
	f, _ := num(v)
	return f
}

// firstNum returns the first of keys in m that holds a finite number.
func firstNum(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := num(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// obj returns v as a JSON object.
func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// path walks nested objects.
func path(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		o := obj(cur)
		if o == nil {
			return nil
		}
		cur = o[k]
	}
	return cur
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// texts flattens a list of strings or {text|message} objects.
func texts(v any) []string {
	list, _ := v.([]any)
	var out []string
	for _, item := range list {
		var s string
		switch t := item.(type) {
		case string:
			s = strings.TrimSpace(t)
		case map[string]any:
			if s = str(t["text"]); s == "" {
				s = str(t["message"])
			}
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
