package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/energylife/energylife/pkg/client"
	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock

	mu    sync.Mutex
	order []string
}

var _ Backend = (*mockBackend)(nil)

func (m *mockBackend) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, name)
}

func (m *mockBackend) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *mockBackend) GetState(ctx context.Context) (types.Snapshot, error) {
	m.record("getState")
	args := m.Called(ctx)
	return args.Get(0).(types.Snapshot), args.Error(1)
}

func (m *mockBackend) SaveState(ctx context.Context, p types.Payload) error {
	m.record("saveState")
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockBackend) SimulateDay(ctx context.Context) (types.SimulateDayResponse, error) {
	m.record("simulateDay")
	args := m.Called(ctx)
	return args.Get(0).(types.SimulateDayResponse), args.Error(1)
}

func (m *mockBackend) Buy(ctx context.Context, itemKey string) (types.BuyResponse, error) {
	m.record("buy")
	args := m.Called(ctx, itemKey)
	return args.Get(0).(types.BuyResponse), args.Error(1)
}

func (m *mockBackend) Shop(ctx context.Context) ([]types.ShopItem, error) {
	m.record("shop")
	args := m.Called(ctx)
	if items := args.Get(0); items != nil {
		return items.([]types.ShopItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestLoad(t *testing.T) {
	b := &mockBackend{}
	snap := types.DefaultSnapshot()
	snap.Points = 42
	b.On("GetState", mock.Anything).Return(snap, nil).Once()

	c := New(b, types.ModeGame, i18n.English)
	assert.False(t, c.State().Loaded)

	st, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Loaded)
	assert.False(t, st.Dirty)
	assert.Equal(t, 42, st.Snapshot.Points)
	assert.Equal(t, uint64(1), st.Seq)
	b.AssertExpectations(t)
}

func TestEdit(t *testing.T) {
	c := New(&mockBackend{}, types.ModeGame, i18n.English)

	st := c.Edit(context.Background(), types.Payload{})
	assert.False(t, st.Dirty)

	st = c.Edit(context.Background(), types.Payload{Profile: types.ProfilePatch{Residents: intp(5)}})
	assert.True(t, st.Dirty)
	assert.Equal(t, 5, st.Snapshot.Profile.Residents)
}

func TestSaveRejectsInvalidPayload(t *testing.T) {
	b := &mockBackend{}
	c := New(b, types.ModeGame, i18n.English)

	_, err := c.Save(context.Background(), types.Payload{Profile: types.ProfilePatch{Residents: intp(-1)}})
	var valErr *types.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "residents", valErr.Field)
	assert.Equal(t, "Invalid input: residents cannot be negative", Message(err, i18n.English))
	assert.Empty(t, b.calls())
	assert.False(t, c.State().Dirty)
}

func TestSaveRefetches(t *testing.T) {
	b := &mockBackend{}
	p := types.Payload{State: types.StatePatch{TariffMode: strp(types.TariffTOU)}}
	saved := types.DefaultSnapshot()
	saved.State.TariffMode = types.TariffTOU
	saved.Points = 7
	b.On("SaveState", mock.Anything, p).Return(nil).Once()
	b.On("GetState", mock.Anything).Return(saved, nil).Once()

	c := New(b, types.ModeGame, i18n.English)
	st, err := c.Save(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"saveState", "getState"}, b.calls())
	assert.False(t, st.Dirty)
	assert.Equal(t, types.TariffTOU, st.Snapshot.State.TariffMode)
	assert.Equal(t, 7, st.Snapshot.Points)
	b.AssertExpectations(t)
}

func TestSaveFailureKeepsEdits(t *testing.T) {
	b := &mockBackend{}
	p := types.Payload{Profile: types.ProfilePatch{Residents: intp(4)}}
	reqErr := &client.RequestError{Op: client.OpSaveState, Status: 500, Message: "db down"}
	b.On("SaveState", mock.Anything, p).Return(reqErr).Once()

	c := New(b, types.ModeGame, i18n.English)
	st, err := c.Save(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, "db down", Message(err, i18n.English))
	assert.True(t, st.Dirty)
	assert.Equal(t, 4, st.Snapshot.Profile.Residents)
	b.AssertNotCalled(t, "GetState", mock.Anything)
}

func TestSimulate(t *testing.T) {
	b := &mockBackend{}
	p := types.Payload{State: types.StatePatch{TariffMode: strp(types.TariffTOU)}}
	b.On("SaveState", mock.Anything, p).Return(nil).Once()
	b.On("SimulateDay", mock.Anything).Return(types.SimulateDayResponse{
		Points:     120,
		HouseLevel: 2,
		DayCounter: 5,
		Result:     json.RawMessage(`{"kwh_total": 10, "cost_thb": 40, "compare": {"non_tou_month": 1200, "tou_month": 1000}}`),
	}, nil).Once()

	c := New(b, types.ModeGame, i18n.English)
	st, err := c.Simulate(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{"saveState", "simulateDay"}, b.calls())
	b.AssertExpectations(t)

	require.NotNil(t, st.Result)
	assert.Equal(t, 10.0, st.Result.KWhTotal)
	assert.Equal(t, types.TariffTOU, st.Result.Monthly.Tariff)
	assert.Equal(t, 1000.0, st.Result.Monthly.Cost)
	assert.Equal(t, types.SourceCompare, st.Result.Monthly.CostSource)
	assert.Equal(t, 120, st.Snapshot.Points)
	assert.Equal(t, 2, st.Snapshot.HouseLevel)
	assert.Equal(t, 5, st.Snapshot.State.DayCounter)
	assert.False(t, st.Dirty)
}

func TestSimulateEmptyPayloadSkipsSave(t *testing.T) {
	b := &mockBackend{}
	b.On("SimulateDay", mock.Anything).Return(types.SimulateDayResponse{Result: json.RawMessage(`{}`)}, nil).Once()

	c := New(b, types.ModeGame, i18n.English)
	st, err := c.Simulate(context.Background(), types.Payload{})
	require.NoError(t, err)
	assert.Equal(t, []string{"simulateDay"}, b.calls())
	require.NotNil(t, st.Result)
	// the day counter isn't reset by a response that doesn't carry one
	assert.Equal(t, 1, st.Snapshot.State.DayCounter)
}

func TestSimulateFailureKeepsPreviousResult(t *testing.T) {
	b := &mockBackend{}
	b.On("SimulateDay", mock.Anything).Return(types.SimulateDayResponse{Result: json.RawMessage(`{"kwh_total": 3}`)}, nil).Once()
	b.On("SimulateDay", mock.Anything).Return(types.SimulateDayResponse{}, &client.RequestError{Message: "boom"}).Once()

	c := New(b, types.ModeGame, i18n.English)
	_, err := c.Simulate(context.Background(), types.Payload{})
	require.NoError(t, err)

	st, err := c.Simulate(context.Background(), types.Payload{})
	var simErr *SimulateError
	require.ErrorAs(t, err, &simErr)
	assert.False(t, simErr.Saved)
	assert.Equal(t, "boom", Message(err, i18n.English))
	require.NotNil(t, st.Result)
	assert.Equal(t, 3.0, st.Result.KWhTotal)
}

func TestSimulateFailureAfterSave(t *testing.T) {
	b := &mockBackend{}
	p := types.Payload{Profile: types.ProfilePatch{Residents: intp(4)}}
	b.On("SaveState", mock.Anything, p).Return(nil).Once()
	b.On("SimulateDay", mock.Anything).Return(types.SimulateDayResponse{}, &client.RequestError{Message: "boom"}).Once()

	c := New(b, types.ModeGame, i18n.English)
	st, err := c.Simulate(context.Background(), p)
	var simErr *SimulateError
	require.ErrorAs(t, err, &simErr)
	assert.True(t, simErr.Saved)
	var reqErr *client.RequestError
	assert.ErrorAs(t, err, &reqErr)

	// the backend has the edits even though there is no result
	assert.False(t, st.Dirty)
	assert.Equal(t, 4, st.Snapshot.Profile.Residents)
	assert.Nil(t, st.Result)
	b.AssertExpectations(t)
}

func TestInFlight(t *testing.T) {
	b := &mockBackend{}
	started := make(chan struct{})
	release := make(chan struct{})
	b.On("SimulateDay", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(types.SimulateDayResponse{Result: json.RawMessage(`{"kwh_total": 1}`)}, nil).Once()
	b.On("GetState", mock.Anything).Return(types.DefaultSnapshot(), nil).Once()

	c := New(b, types.ModeGame, i18n.English)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Simulate(context.Background(), types.Payload{})
		errCh <- err
	}()
	<-started

	_, err := c.Simulate(context.Background(), types.Payload{})
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, "Still working on your previous request, please wait", Message(err, i18n.English))

	// other kinds of action aren't blocked
	_, err = c.Load(context.Background())
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-errCh)
	b.AssertNumberOfCalls(t, "SimulateDay", 1)

	// the guard is released once the action is done
	b.On("SimulateDay", mock.Anything).Return(types.SimulateDayResponse{}, nil).Once()
	_, err = c.Simulate(context.Background(), types.Payload{})
	assert.NoError(t, err)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	b := &mockBackend{}
	started := make(chan struct{})
	release := make(chan struct{})
	stale := types.DefaultSnapshot()
	stale.Profile.Residents = 1
	b.On("GetState", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(stale, nil).Once()

	c := New(b, types.ModeGame, i18n.English)

	done := make(chan AppState, 1)
	go func() {
		st, err := c.Load(context.Background())
		assert.NoError(t, err)
		done <- st
	}()
	<-started

	// an edit made while the load is in flight is newer than the load
	edited := c.Edit(context.Background(), types.Payload{Profile: types.ProfilePatch{Residents: intp(6)}})
	close(release)
	st := <-done

	assert.Greater(t, st.Seq, edited.Seq)
	assert.Equal(t, 6, st.Snapshot.Profile.Residents)
	assert.True(t, st.Dirty)
	assert.False(t, st.Loaded)
}

func TestSaveDuringSimulateKeepsResult(t *testing.T) {
	b := &mockBackend{}
	started := make(chan struct{})
	release := make(chan struct{})
	b.On("SimulateDay", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(types.SimulateDayResponse{
		Points:     42,
		DayCounter: 7,
		Result:     json.RawMessage(`{"kwh_total": 5}`),
	}, nil).Once()
	p := types.Payload{Profile: types.ProfilePatch{Residents: intp(4)}}
	// read back before the simulated day landed
	saved := types.DefaultSnapshot()
	saved.Profile.Residents = 4
	b.On("SaveState", mock.Anything, p).Return(nil).Once()
	b.On("GetState", mock.Anything).Return(saved, nil).Once()

	c := New(b, types.ModeGame, i18n.English)

	type outcome struct {
		st  AppState
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		st, err := c.Simulate(context.Background(), types.Payload{})
		done <- outcome{st, err}
	}()
	<-started

	st, err := c.Save(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, st.Dirty)
	assert.Equal(t, 4, st.Snapshot.Profile.Residents)

	close(release)
	out := <-done
	require.NoError(t, out.err)
	require.NotNil(t, out.st.Result)
	assert.Equal(t, 5.0, out.st.Result.KWhTotal)
	assert.Equal(t, 42, out.st.Snapshot.Points)
	assert.Equal(t, 7, out.st.Snapshot.State.DayCounter)
	assert.Equal(t, 4, out.st.Snapshot.Profile.Residents)
	assert.False(t, out.st.Dirty)
	assert.Greater(t, out.st.Seq, st.Seq)
	assert.Equal(t, out.st, c.State())
	b.AssertExpectations(t)
}

func TestApplyIsSequencedPerPart(t *testing.T) {
	ctx := context.Background()
	c := New(&mockBackend{}, types.ModeGame, i18n.English)
	older, newer := c.stamp(), c.stamp()

	_, done := c.apply(ctx, newer, change{part: partConfig, fn: func(s *AppState) {
		s.Snapshot.Profile.Residents = 6
	}})
	assert.Equal(t, partConfig, done)

	st, done := c.apply(
		ctx,
		older,
		change{part: partConfig, fn: func(s *AppState) { s.Snapshot.Profile.Residents = 1 }},
		change{part: partProgress, fn: func(s *AppState) { s.Snapshot.Points = 9 }},
	)
	assert.Equal(t, partProgress, done)
	assert.Equal(t, 6, st.Snapshot.Profile.Residents)
	assert.Equal(t, 9, st.Snapshot.Points)
	assert.Equal(t, uint64(2), st.Seq)

	// nothing applied, nothing bumped
	st, done = c.apply(ctx, older, change{part: partConfig, fn: func(s *AppState) {}})
	assert.Zero(t, done)
	assert.Equal(t, uint64(2), st.Seq)
	assert.Equal(t, "A newer request already updated the page", Message(ErrSuperseded, i18n.English))
}

func TestRefreshWaitsForOwner(t *testing.T) {
	b := &mockBackend{}
	started := make(chan struct{})
	release := make(chan struct{})
	b.On("Buy", mock.Anything, "plant").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(types.BuyResponse{Points: 20, Inventory: types.Inventory{Furniture: []string{"plant"}}}, nil).Once()
	stale := types.DefaultSnapshot()
	stale.Points = 100
	b.On("GetState", mock.Anything).Return(stale, nil).Once()

	c := New(b, types.ModeGame, i18n.English)
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Buy(context.Background(), "plant")
		errCh <- err
	}()
	<-started

	// the purchase owns points and inventory until it lands
	st, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Loaded)
	assert.Equal(t, 0, st.Snapshot.Points)

	close(release)
	require.NoError(t, <-errCh)
	st = c.State()
	assert.Equal(t, 20, st.Snapshot.Points)
	assert.Equal(t, []string{"plant"}, st.Snapshot.State.Inventory.Furniture)
}

func TestBuy(t *testing.T) {
	b := &mockBackend{}
	b.On("Buy", mock.Anything, "plant").Return(types.BuyResponse{
		Points:    20,
		Inventory: types.Inventory{Furniture: []string{"plant"}},
	}, nil).Once()

	c := New(b, types.ModeGame, i18n.English)
	st, err := c.Buy(context.Background(), "plant")
	require.NoError(t, err)
	assert.Equal(t, 20, st.Snapshot.Points)
	assert.Equal(t, []string{"plant"}, st.Snapshot.State.Inventory.Furniture)
	assert.Equal(t, 1, st.Snapshot.HouseLevel)

	_, err = c.Buy(context.Background(), "")
	var valErr *types.ValidationError
	assert.ErrorAs(t, err, &valErr)
	b.AssertExpectations(t)
}

func TestBuyDisabledInRealMode(t *testing.T) {
	b := &mockBackend{}
	c := New(b, types.ModeReal, i18n.English)
	assert.Equal(t, types.ModeReal, c.Mode())

	_, err := c.Buy(context.Background(), "plant")
	assert.ErrorIs(t, err, ErrBuyDisabled)
	assert.Equal(t, "The shop is not available in this mode", Message(err, i18n.English))

	_, err = c.Shop(context.Background())
	assert.ErrorIs(t, err, ErrBuyDisabled)
	assert.Empty(t, b.calls())
}

func TestShop(t *testing.T) {
	b := &mockBackend{}
	items := []types.ShopItem{{Key: "x", Name: "X", Cost: 5}}
	b.On("Shop", mock.Anything).Return(items, nil).Once()
	b.On("Shop", mock.Anything).Return(nil, errors.New("down")).Once()

	c := New(b, "", i18n.English)
	assert.Equal(t, types.ModeGame, c.Mode())

	st, err := c.Shop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, items, st.Shop)

	st, err = c.Shop(context.Background())
	assert.EqualError(t, err, "down")
	assert.Equal(t, items, st.Shop)
}

func TestStateIsACopy(t *testing.T) {
	c := New(&mockBackend{}, types.ModeGame, i18n.English)
	st := c.State()
	st.Snapshot.State.Appliances["ac"] = types.ApplianceConfig{}
	st.Snapshot.Profile.Residents = 99
	assert.Equal(t, 3, c.State().Snapshot.Profile.Residents)
	assert.True(t, c.State().Snapshot.State.Appliances["ac"].IsEnabled())
}
