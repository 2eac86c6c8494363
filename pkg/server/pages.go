package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/energylife/energylife/pkg/client"
	"github.com/energylife/energylife/pkg/controller"
	"github.com/energylife/energylife/pkg/form"
	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/types"
	"github.com/energylife/energylife/pkg/view"
)

// maxFormBytes caps form and JSON bodies.
const maxFormBytes = 64 << 10

// page builds the view of sess's current state.
func (s *Server) page(sess *session, flash *view.Flash) view.Page {
	st := sess.ctrl.State()
	return view.Build(view.Input{
		Lang:     s.lang,
		Mode:     sess.ctrl.Mode(),
		Snapshot: st.Snapshot,
		Unsaved:  st.Dirty,
		Result:   st.Result,
		Shop:     st.Shop,
		Flash:    flash,
		Visitors: int(s.visitors.Load()),
		Seq:      st.Seq,
	})
}

// respond writes the page as JSON to API clients and as HTML otherwise.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, sess *session, flash *view.Flash, code int) {
	p := s.page(sess, flash)
	if wantsJSON(r) {
		writeJSON(w, p, code)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := s.renderer.Page(w, p); err != nil {
		ctx := r.Context()
		log.Ctx(ctx).ErrorContext(ctx, "failed to render page", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) messages() i18n.Messages {
	return i18n.For(s.lang)
}

func errorStatus(err error) int {
	var valErr *types.ValidationError
	var reqErr *client.RequestError
	switch {
	case errors.Is(err, controller.ErrInFlight), errors.Is(err, controller.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, controller.ErrBuyDisabled):
		return http.StatusForbidden
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.As(err, &reqErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError reports err to the player. API clients get the JSON error,
// browsers get the page with the error as a flash.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, sess *session, err error) {
	ctx := r.Context()
	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		log.Ctx(ctx).WarnContext(ctx, "action failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	} else {
		log.Ctx(ctx).DebugContext(ctx, "action rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	msg := controller.Message(err, s.lang)
	if wantsJSON(r) {
		writeJSONError(w, msg, code)
		return
	}
	s.respond(w, r, sess, &view.Flash{Kind: view.FlashError, Message: msg}, code)
}

func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// readPayload reads the submitted form, or a JSON payload from API clients.
func readPayload(w http.ResponseWriter, r *http.Request) (types.Payload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if isJSONBody(r) {
		var p types.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			return types.Payload{}, &types.ValidationError{Field: "body", Reason: "is not valid JSON"}
		}
		return p, nil
	}
	if err := r.ParseForm(); err != nil {
		return types.Payload{}, &types.ValidationError{Field: "body", Reason: "is not a valid form"}
	}
	return form.Collect(r.PostForm), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, sess *session) {
	ctx := r.Context()
	var flash *view.Flash
	if err := s.prepare(ctx, sess); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to load state", slog.Any("error", err))
		if wantsJSON(r) {
			writeJSONError(w, controller.Message(err, s.lang), errorStatus(err))
			return
		}
		// the page still works off the defaults
		flash = &view.Flash{Kind: view.FlashError, Message: controller.Message(err, s.lang)}
	}
	s.respond(w, r, sess, flash, http.StatusOK)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, sess *session) {
	ctx := r.Context()
	if err := s.prepare(ctx, sess); err != nil {
		writeJSONError(w, controller.Message(err, s.lang), errorStatus(err))
		return
	}
	writeJSON(w, s.page(sess, nil), http.StatusOK)
}

// keepDraft stores the submitted payload so it survives a failed save and
// the session being swept.
func (s *Server) keepDraft(ctx context.Context, sess *session, p types.Payload) {
	if p.Empty() {
		return
	}
	err := s.storage.SetDraft(ctx, types.Draft{
		SessionID: sess.id,
		Payload:   p,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to store draft", slog.Any("error", err))
	}
}

func (s *Server) dropDraft(ctx context.Context, sess *session) {
	if err := s.storage.DeleteDraft(ctx, sess.id); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to delete draft", slog.Any("error", err))
	}
}

// submit runs a save or simulate action on the submitted payload.
func (s *Server) submit(
	w http.ResponseWriter,
	r *http.Request,
	sess *session,
	action func(context.Context, types.Payload) (controller.AppState, error),
	success string,
) {
	ctx := r.Context()
	p, err := readPayload(w, r)
	if err != nil {
		s.respondError(w, r, sess, err)
		return
	}
	if err := s.prepare(ctx, sess); err != nil {
		s.respondError(w, r, sess, err)
		return
	}
	s.keepDraft(ctx, sess, p)
	if _, err := action(ctx, p); err != nil {
		// the backend already stored p when only the simulation failed
		var simErr *controller.SimulateError
		if errors.As(err, &simErr) && simErr.Saved {
			s.dropDraft(ctx, sess)
			s.push(ctx, sess)
		}
		s.respondError(w, r, sess, err)
		return
	}
	s.dropDraft(ctx, sess)
	s.push(ctx, sess)

	var flash *view.Flash
	if success != "" {
		flash = &view.Flash{Kind: view.FlashSuccess, Message: success}
	}
	s.respond(w, r, sess, flash, http.StatusOK)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, sess *session) {
	s.submit(w, r, sess, sess.ctrl.Save, s.messages().Saved)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request, sess *session) {
	s.submit(w, r, sess, sess.ctrl.Simulate, "")
}

type buyRequest struct {
	ItemKey string `json:"item_key"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, sess *session) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	var req buyRequest
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, sess, &types.ValidationError{Field: "body", Reason: "is not valid JSON"})
			return
		}
	} else {
		req.ItemKey = r.PostFormValue("item_key")
	}
	req.ItemKey = strings.TrimSpace(req.ItemKey)

	if err := s.prepare(ctx, sess); err != nil {
		s.respondError(w, r, sess, err)
		return
	}
	if _, err := sess.ctrl.Buy(ctx, req.ItemKey); err != nil {
		s.respondError(w, r, sess, err)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "bought item", slog.String("item", req.ItemKey))
	s.push(ctx, sess)
	s.respond(w, r, sess, &view.Flash{
		Kind:    view.FlashSuccess,
		Message: fmt.Sprintf("%s: %s", s.messages().Bought, itemName(sess.ctrl.State().Shop, req.ItemKey)),
	}, http.StatusOK)
}

func itemName(items []types.ShopItem, key string) string {
	for _, it := range items {
		if it.Key == key && it.Name != "" {
			return it.Name
		}
	}
	return key
}
