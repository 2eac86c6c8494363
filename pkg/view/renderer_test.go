package view

import (
	"bytes"
	"io/fs"
	"testing"

	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, in Input) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, Build(in)))
	return buf.String()
}

func TestRendererPage(t *testing.T) {
	snap := types.DefaultSnapshot()
	snap.State.Raw = map[string]any{"bedrooms": 1.0}
	out := render(t, Input{
		Lang:     i18n.English,
		Snapshot: snap,
		Result: &types.SimulationResult{
			KWhTotal:       12.346,
			CostTHB:        55.6,
			Breakdown:      map[string]float64{"ac": 3},
			RoomsBreakdown: map[string]types.RoomResult{"bedroom_1": {KWhDay: 3, EVKWhDay: 1}},
		},
		Flash:    &Flash{Kind: FlashSuccess, Message: "Saved"},
		Visitors: 42,
		Seq:      7,
	})

	assert.Contains(t, out, `<html lang="en">`)
	assert.Contains(t, out, `data-seq="7"`)
	assert.Contains(t, out, `<div class="flash success" role="alert">Saved</div>`)
	assert.Contains(t, out, `id="kwh-total">12.35<`)
	assert.Contains(t, out, `id="cost-total">56<`)
	assert.Contains(t, out, `data-room="bedroom_1"`)
	assert.Contains(t, out, "⚡ EV 1.00")
	assert.Contains(t, out, "Bedroom 1")
	assert.Contains(t, out, `name="appliance" value="ac"`)
	assert.Contains(t, out, `name="ac.btu"`)
	assert.Contains(t, out, `formaction="/simulate"`)
	assert.Contains(t, out, `action="/buy"`)
	assert.Contains(t, out, `name="item_key" value="sofa"`)
	assert.Contains(t, out, "Visitors: 42")

	// nothing to show, nothing rendered
	assert.NotContains(t, out, `id="tou-split"`)
	assert.NotContains(t, out, `id="bill-compare"`)
	assert.NotContains(t, out, `class="warnings"`)
}

func TestRendererNoResult(t *testing.T) {
	out := render(t, Input{Lang: i18n.English, Mode: types.ModeReal, Snapshot: types.DefaultSnapshot()})
	assert.Contains(t, out, "Press simulate to see today&#39;s usage")
	assert.NotContains(t, out, `id="shop"`)
	assert.NotContains(t, out, `id="house"`)
	assert.NotContains(t, out, `id="kwh-total"`)
}

func TestRendererEscapes(t *testing.T) {
	out := render(t, Input{
		Lang:     i18n.English,
		Snapshot: types.DefaultSnapshot(),
		Result: &types.SimulationResult{
			Warnings: []string{"<script>alert(1)</script>"},
			Insights: []string{`<img src=x onerror="x">`},
		},
	})
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, out, "<img src=x")
}

func TestRendererFragment(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	html, err := r.FragmentHTML(Build(Input{
		Lang:     i18n.English,
		Snapshot: types.DefaultSnapshot(),
		Result:   &types.SimulationResult{KWhTotal: 1},
	}))
	require.NoError(t, err)
	assert.Contains(t, html, `id="result"`)
	assert.Contains(t, html, `class="topbar"`)
	assert.NotContains(t, html, "<form")
	assert.NotContains(t, html, "<html")
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"app.js", "app.css"} {
		b, err := fs.ReadFile(Static(), name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, b)
	}
}
