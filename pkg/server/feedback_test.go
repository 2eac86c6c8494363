package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/energylife/energylife/pkg/client"
	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/storage/storagemock"
	"github.com/energylife/energylife/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHandleSubmitFeedback(t *testing.T) {
	e := newTestEnv(t, types.ModeGame)

	resp := e.do(t, http.MethodPost, "/feedback", "application/json", `{"rating":4,"reason":" fun ","comment":"nice"}`, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var got types.Feedback
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, e.sessionID(t), got.SessionID)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, "fun", got.Reason)

	stored, err := e.db.ListFeedback(context.Background(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, got.ID, stored[0].ID)
}

func TestHandleSubmitFeedbackForm(t *testing.T) {
	e := newTestEnv(t, types.ModeGame)

	v := url.Values{"rating": {"5"}, "reason": {"easy"}}
	resp := e.do(t, http.MethodPost, "/feedback", "application/x-www-form-urlencoded", v.Encode(), false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := new(bytes.Buffer)
	_, err := body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), i18n.For(i18n.English).FeedbackThanks)
}

func TestHandleSubmitFeedbackInvalid(t *testing.T) {
	e := newTestEnv(t, types.ModeGame)

	resp := e.do(t, http.MethodPost, "/feedback", "application/json", `{"rating":9}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, resp), "rating")

	resp = e.do(t, http.MethodPost, "/feedback", "application/x-www-form-urlencoded", "rating=abc", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/feedback", "application/json", `{`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleSubmitFeedbackStorageError(t *testing.T) {
	mockDB := new(storagemock.MockDatabase)
	mockDB.On("IncrementVisitors", mock.Anything).Return(1, nil)
	mockDB.On("InsertFeedback", mock.Anything, mock.MatchedBy(func(f types.Feedback) bool {
		return f.Rating == 3 && f.Comment == "meh"
	})).Return(errors.New("boom"))

	srv := newServer(client.New("http://127.0.0.1:1", 0), mockDB)
	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(`{"rating":3,"comment":"meh"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	mockDB.AssertExpectations(t)
}

func TestHandleListFeedback(t *testing.T) {
	e := newTestEnv(t, types.ModeGame)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, e.db.InsertFeedback(ctx, types.Feedback{ID: "old", Rating: 1, CreatedAt: now.Add(-30 * 24 * time.Hour)}))
	require.NoError(t, e.db.InsertFeedback(ctx, types.Feedback{ID: "new", Rating: 5, CreatedAt: now.Add(-time.Hour)}))

	list := func(query, auth string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/feedback"+query, nil)
		require.NoError(t, err)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("no token", func(t *testing.T) {
		resp := list("", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong token", func(t *testing.T) {
		resp := list("", "Bearer nope")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("default window", func(t *testing.T) {
		resp := list("", "Bearer secret")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got []types.Feedback
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, "new", got[0].ID)
	})

	t.Run("explicit range", func(t *testing.T) {
		q := url.Values{
			"start": {now.Add(-60 * 24 * time.Hour).Format(time.RFC3339)},
			"end":   {now.Add(time.Minute).Format(time.RFC3339)},
		}
		resp := list("?"+q.Encode(), "Bearer secret")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got []types.Feedback
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Len(t, got, 2)
		assert.Equal(t, "old", got[0].ID)
	})

	t.Run("empty range", func(t *testing.T) {
		q := url.Values{
			"start": {now.Add(-60 * 24 * time.Hour).Format(time.RFC3339)},
			"end":   {now.Add(-59 * 24 * time.Hour).Format(time.RFC3339)},
		}
		resp := list("?"+q.Encode(), "Bearer secret")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got []types.Feedback
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	t.Run("bad time", func(t *testing.T) {
		resp := list("?start=yesterday", "Bearer secret")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("start after end", func(t *testing.T) {
		q := url.Values{
			"start": {now.Format(time.RFC3339)},
			"end":   {now.Add(-time.Hour).Format(time.RFC3339)},
		}
		resp := list("?"+q.Encode(), "Bearer secret")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleListFeedbackDisabled(t *testing.T) {
	e := newTestEnv(t, types.ModeGame)
	e.srv.feedbackToken = ""

	req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	e.srv.setupHandler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
