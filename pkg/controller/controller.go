// Package controller keeps the state of one player's page and drives the
// backend calls behind every action the page offers.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/energylife/energylife/pkg/client"
	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/normalize"
	"github.com/energylife/energylife/pkg/types"
)

var (
	// ErrInFlight is returned when an action is started while another one of
	// the same kind hasn't finished yet.
	ErrInFlight = errors.New("action already in flight")
	// ErrBuyDisabled is returned by Buy outside of game mode.
	ErrBuyDisabled = errors.New("buying is disabled in this mode")
	// ErrSuperseded is returned when the response of an action was dropped
	// because a newer action of the same kind was applied first.
	ErrSuperseded = errors.New("response superseded by a newer one")
)

// SimulateError is returned by Simulate when the backend failed to simulate
// the day. Saved reports whether the payload was stored before that.
type SimulateError struct {
	Saved bool
	Err   error
}

func (e *SimulateError) Error() string {
	return "simulate day: " + e.Err.Error()
}

func (e *SimulateError) Unwrap() error {
	return e.Err
}

// Action is a kind of user action. At most one of each runs at a time.
type Action string

const (
	ActionLoad     Action = "load"
	ActionSave     Action = "save"
	ActionSimulate Action = "simulate"
	ActionBuy      Action = "buy"
	ActionShop     Action = "shop"
)

// Backend is the part of the simulator API the controller needs.
type Backend interface {
	GetState(ctx context.Context) (types.Snapshot, error)
	SaveState(ctx context.Context, p types.Payload) error
	SimulateDay(ctx context.Context) (types.SimulateDayResponse, error)
	Buy(ctx context.Context, itemKey string) (types.BuyResponse, error)
	Shop(ctx context.Context) ([]types.ShopItem, error)
}

var _ Backend = (*client.Client)(nil)

// AppState is everything the page shows for one player.
type AppState struct {
	Snapshot types.Snapshot
	// Dirty is true when Snapshot has local edits the backend hasn't stored.
	Dirty bool
	// Loaded is true once Snapshot came from the backend at least once.
	Loaded bool
	Result *types.SimulationResult
	Shop   []types.ShopItem
	// Seq goes up with every change applied to the state.
	Seq uint64
}

// Clone returns a deep copy of the state.
func (s AppState) Clone() AppState {
	out := s
	out.Snapshot = s.Snapshot.Clone()
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	return out
}

// part is a group of AppState fields that is sequenced on its own.
type part uint8

const (
	// partConfig is the profile and state settings and the dirty flag.
	partConfig part = 1 << iota
	// partResult is the last simulation result and the day counter.
	partResult
	// partProgress is the points and the house level.
	partProgress
	// partInventory is the bought items.
	partInventory
)

// owners lists the actions whose responses carry the newest value of a part.
// A refreshed snapshot leaves the part alone while one of them is in flight.
var owners = map[part][]Action{
	partResult:    {ActionSimulate},
	partProgress:  {ActionSimulate, ActionBuy},
	partInventory: {ActionBuy},
}

type change struct {
	part part
	// refresh marks a value read back with the whole snapshot
	refresh bool
	fn      func(*AppState)
}

// Controller serializes the actions of one session. Changes are numbered
// in the order they start and each part of the state remembers the number of
// the last change applied to it. A change that finishes after a newer one to
// the same part was applied is dropped, so a slow response never overwrites
// a fresher one while a Save still can't throw away a simulation result.
type Controller struct {
	backend Backend
	mode    string
	lang    i18n.Lang

	mu       sync.Mutex
	state    AppState
	nextSeq  uint64
	applied  map[part]uint64
	version  uint64
	inFlight map[Action]bool
}

// New returns a Controller that starts out with the default snapshot until
// Load is called.
func New(backend Backend, mode string, lang i18n.Lang) *Controller {
	if mode != types.ModeReal {
		mode = types.ModeGame
	}
	return &Controller{
		backend:  backend,
		mode:     mode,
		lang:     lang,
		state:    AppState{Snapshot: types.DefaultSnapshot()},
		applied:  map[part]uint64{},
		inFlight: map[Action]bool{},
	}
}

// Mode returns the front-end mode, game or real.
func (c *Controller) Mode() string {
	return c.mode
}

// Lang returns the display language.
func (c *Controller) Lang() i18n.Lang {
	return c.lang
}

// State returns a copy of the current state.
func (c *Controller) State() AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// begin marks action as in flight. The returned func must be called once the
// action is done.
func (c *Controller) begin(action Action) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[action] {
		return nil, ErrInFlight
	}
	c.inFlight[action] = true
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.inFlight, action)
	}, nil
}

// stamp hands out the next sequence number.
func (c *Controller) stamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSeq++
	return c.nextSeq
}

// owned reports whether an action that owns p is in flight. c.mu must be
// held.
func (c *Controller) owned(p part) bool {
	for _, a := range owners[p] {
		if c.inFlight[a] {
			return true
		}
	}
	return false
}

// apply runs every change whose part hasn't seen a change with a higher
// sequence number yet. It returns the resulting state and the parts that
// were changed.
func (c *Controller) apply(ctx context.Context, seq uint64, changes ...change) (AppState, part) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var done part
	for _, ch := range changes {
		if seq <= c.applied[ch.part] || (ch.refresh && c.owned(ch.part)) {
			log.Ctx(ctx).DebugContext(
				ctx,
				"discarding stale response",
				slog.Uint64("seq", seq),
				slog.Uint64("current", c.applied[ch.part]),
				slog.Int("part", int(ch.part)),
			)
			continue
		}
		ch.fn(&c.state)
		c.applied[ch.part] = seq
		done |= ch.part
	}
	if done != 0 {
		c.version++
		c.state.Seq = c.version
	}
	return c.state.Clone(), done
}

// replace returns the changes that swap the local snapshot for snap, the one
// the backend has stored.
func replace(snap types.Snapshot) []change {
	return []change{
		{part: partConfig, fn: func(s *AppState) {
			cur := s.Snapshot
			s.Snapshot = snap.Clone()
			s.Snapshot.Points = cur.Points
			s.Snapshot.HouseLevel = cur.HouseLevel
			s.Snapshot.State.DayCounter = cur.State.DayCounter
			s.Snapshot.State.Inventory = cur.State.Inventory
			s.Dirty = false
			s.Loaded = true
		}},
		{part: partResult, refresh: true, fn: func(s *AppState) {
			s.Snapshot.State.DayCounter = snap.State.DayCounter
		}},
		{part: partProgress, refresh: true, fn: func(s *AppState) {
			s.Snapshot.Points = snap.Points
			s.Snapshot.HouseLevel = snap.HouseLevel
		}},
		{part: partInventory, refresh: true, fn: func(s *AppState) {
			s.Snapshot.State.Inventory = snap.State.Inventory
		}},
	}
}

// detach keeps backend calls running when the browser goes away mid-request.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// Load fetches the persisted snapshot and replaces the local one with it.
// Local edits are dropped.
func (c *Controller) Load(ctx context.Context) (AppState, error) {
	done, err := c.begin(ActionLoad)
	if err != nil {
		return c.State(), err
	}
	defer done()

	seq := c.stamp()
	snap, err := c.backend.GetState(detach(ctx))
	if err != nil {
		return c.State(), err
	}
	st, _ := c.apply(ctx, seq, replace(snap)...)
	return st, nil
}

// Edit applies p to the local snapshot only and marks it dirty.
func (c *Controller) Edit(ctx context.Context, p types.Payload) AppState {
	if p.Empty() {
		return c.State()
	}
	seq := c.stamp()
	st, _ := c.apply(ctx, seq, change{part: partConfig, fn: func(s *AppState) {
		s.Snapshot = s.Snapshot.Apply(p)
		s.Dirty = true
	}})
	return st
}

// validate checks p against the current snapshot.
func (c *Controller) validate(p types.Payload) error {
	c.mu.Lock()
	base := c.state.Snapshot
	c.mu.Unlock()
	return p.Validate(base)
}

// Save validates p, applies it locally, persists it and then replaces the
// local snapshot with the backend's canonical one. When persisting fails the
// local edits stay in place and the state stays dirty.
func (c *Controller) Save(ctx context.Context, p types.Payload) (AppState, error) {
	done, err := c.begin(ActionSave)
	if err != nil {
		return c.State(), err
	}
	defer done()

	if err := c.validate(p); err != nil {
		return c.State(), err
	}
	c.Edit(ctx, p)

	seq := c.stamp()
	bctx := detach(ctx)
	if err := c.backend.SaveState(bctx, p); err != nil {
		return c.State(), err
	}
	snap, err := c.backend.GetState(bctx)
	if err != nil {
		return c.State(), err
	}
	st, _ := c.apply(ctx, seq, replace(snap)...)
	return st, nil
}

// Simulate saves p and asks the backend to simulate one day. The result is
// normalized using the tariff selected in p, falling back to the one in the
// current snapshot. A failed simulation is reported as a *SimulateError.
func (c *Controller) Simulate(ctx context.Context, p types.Payload) (AppState, error) {
	done, err := c.begin(ActionSimulate)
	if err != nil {
		return c.State(), err
	}
	defer done()

	if err := c.validate(p); err != nil {
		return c.State(), err
	}
	st := c.Edit(ctx, p)
	tariff := p.SelectedTariff(st.Snapshot.State.TariffMode)

	seq := c.stamp()
	bctx := detach(ctx)
	saved := !p.Empty()
	if saved {
		if err := c.backend.SaveState(bctx, p); err != nil {
			return c.State(), err
		}
		c.apply(ctx, seq, change{part: partConfig, fn: func(s *AppState) {
			s.Dirty = false
		}})
	}
	resp, err := c.backend.SimulateDay(bctx)
	if err != nil {
		return c.State(), &SimulateError{Saved: saved, Err: err}
	}
	res := normalize.Result(resp.Result, normalize.Options{Lang: c.lang, SelectedTariff: tariff})
	log.Ctx(ctx).InfoContext(
		ctx,
		"simulated day",
		slog.Int("day", resp.DayCounter),
		slog.Float64("kwh", res.KWhTotal),
		slog.Float64("cost", res.CostTHB),
		slog.String("tariff", tariff),
	)

	st, changed := c.apply(
		ctx,
		seq,
		change{part: partResult, fn: func(s *AppState) {
			s.Result = &res
			if resp.DayCounter > 0 {
				s.Snapshot.State.DayCounter = resp.DayCounter
			}
		}},
		change{part: partProgress, fn: func(s *AppState) {
			s.Snapshot.Points = resp.Points
			if resp.HouseLevel > 0 {
				s.Snapshot.HouseLevel = resp.HouseLevel
			}
		}},
	)
	if changed&partResult == 0 {
		return st, ErrSuperseded
	}
	return st, nil
}

// Buy purchases itemKey and refreshes points and inventory. Only available
// in game mode.
func (c *Controller) Buy(ctx context.Context, itemKey string) (AppState, error) {
	if c.mode != types.ModeGame {
		return c.State(), ErrBuyDisabled
	}
	if itemKey == "" {
		return c.State(), &types.ValidationError{Field: "item_key", Reason: "is required"}
	}
	done, err := c.begin(ActionBuy)
	if err != nil {
		return c.State(), err
	}
	defer done()

	seq := c.stamp()
	resp, err := c.backend.Buy(detach(ctx), itemKey)
	if err != nil {
		return c.State(), err
	}
	st, changed := c.apply(
		ctx,
		seq,
		change{part: partInventory, fn: func(s *AppState) {
			s.Snapshot.State.Inventory = resp.Inventory
		}},
		change{part: partProgress, fn: func(s *AppState) {
			s.Snapshot.Points = resp.Points
			if resp.HouseLevel > 0 {
				s.Snapshot.HouseLevel = resp.HouseLevel
			}
		}},
	)
	if changed&partInventory == 0 {
		return st, ErrSuperseded
	}
	return st, nil
}

// Shop refreshes the list of items for sale. On failure the previous list is
// kept.
func (c *Controller) Shop(ctx context.Context) (AppState, error) {
	if c.mode != types.ModeGame {
		return c.State(), ErrBuyDisabled
	}
	done, err := c.begin(ActionShop)
	if err != nil {
		return c.State(), err
	}
	defer done()

	items, err := c.backend.Shop(detach(ctx))
	if err != nil {
		return c.State(), err
	}
	// the listing doesn't depend on the player's state so it isn't sequenced
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Shop = items
	return c.state.Clone(), nil
}

// Message returns the text shown to the player for an error returned by the
// controller.
func Message(err error, lang i18n.Lang) string {
	msgs := i18n.For(lang)
	var reqErr *client.RequestError
	var valErr *types.ValidationError
	switch {
	case errors.Is(err, ErrInFlight):
		return msgs.InFlight
	case errors.Is(err, ErrBuyDisabled):
		return msgs.BuyDisabled
	case errors.Is(err, ErrSuperseded):
		return msgs.Superseded
	case errors.As(err, &valErr):
		return fmt.Sprintf(msgs.InvalidInput, valErr.Error())
	case errors.As(err, &reqErr):
		return reqErr.Message
	default:
		return err.Error()
	}
}
