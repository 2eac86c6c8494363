package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/types"
	"github.com/energylife/energylife/pkg/view"
	"github.com/google/uuid"
)

// defaultFeedbackWindow is how far back /api/feedback looks without a start.
const defaultFeedbackWindow = 7 * 24 * time.Hour

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Reason  string `json:"reason"`
	Comment string `json:"comment"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request, sess *session) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var req feedbackRequest
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Ctx(ctx).DebugContext(ctx, "failed to decode feedback request", slog.Any("error", err))
			s.respondError(w, r, sess, &types.ValidationError{Field: "body", Reason: "is not valid JSON"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.respondError(w, r, sess, &types.ValidationError{Field: "body", Reason: "is not a valid form"})
			return
		}
		// an unparsable rating fails validation as 0
		req.Rating, _ = strconv.Atoi(strings.TrimSpace(r.PostFormValue("rating")))
		req.Reason = r.PostFormValue("reason")
		req.Comment = r.PostFormValue("comment")
	}

	feedback := types.Feedback{
		ID:        uuid.NewString(),
		SessionID: sess.id,
		Rating:    req.Rating,
		Reason:    req.Reason,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := feedback.Validate(); err != nil {
		s.respondError(w, r, sess, err)
		return
	}

	if err := s.storage.InsertFeedback(ctx, feedback); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to insert feedback", slog.Any("error", err))
		if wantsJSON(r) {
			writeJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		s.respond(w, r, sess, &view.Flash{Kind: view.FlashError, Message: "internal server error"}, http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "stored feedback", slog.String("id", feedback.ID), slog.Int("rating", feedback.Rating))

	if wantsJSON(r) {
		writeJSON(w, feedback, http.StatusCreated)
		return
	}
	s.respond(w, r, sess, &view.Flash{Kind: view.FlashSuccess, Message: s.messages().FeedbackThanks}, http.StatusOK)
}

var errBadTime = errors.New("must be an RFC 3339 time")

func parseTimeParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errBadTime
	}
	return t, nil
}

// handleListFeedback lists the feedback stored between start and end. It is
// only reachable with the configured bearer token.
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.feedbackToken == "" {
		http.NotFound(w, r)
		return
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.feedbackToken)) != 1 {
		log.Ctx(ctx).WarnContext(ctx, "invalid feedback token")
		writeJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	now := time.Now().UTC()
	end, err := parseTimeParam(r, "end", now)
	if err != nil {
		writeJSONError(w, "end "+err.Error(), http.StatusBadRequest)
		return
	}
	start, err := parseTimeParam(r, "start", end.Add(-defaultFeedbackWindow))
	if err != nil {
		writeJSONError(w, "start "+err.Error(), http.StatusBadRequest)
		return
	}
	if !start.Before(end) {
		writeJSONError(w, "start must be before end", http.StatusBadRequest)
		return
	}

	feedback, err := s.storage.ListFeedback(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list feedback", slog.Any("error", err))
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if feedback == nil {
		feedback = []types.Feedback{}
	}
	writeJSON(w, feedback, http.StatusOK)
}
