package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/energylife/energylife/pkg/client"
	"github.com/energylife/energylife/pkg/controller"
	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/storage"
	"github.com/energylife/energylife/pkg/types"
	"github.com/google/uuid"
)

const (
	sessionCookie = "el_session"
	sessionMaxAge = 365 * 24 * time.Hour
)

// session is one browser's state on this instance.
type session struct {
	id   string
	ctrl *controller.Controller

	mu       sync.Mutex
	prepared bool
}

// sessions holds the live sessions. The cookie outlives the in-memory state:
// a session that was swept is simply rebuilt from the backend and its draft.
type sessions struct {
	newController func() *controller.Controller
	now           func() time.Time

	mu       sync.Mutex
	byID     map[string]*session
	lastSeen map[string]time.Time
}

func newSessions(newController func() *controller.Controller) *sessions {
	return &sessions{
		newController: newController,
		now:           time.Now,
		byID:          map[string]*session{},
		lastSeen:      map[string]time.Time{},
	}
}

// get returns the session for id, creating it if needed.
func (ss *sessions) get(id string) *session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.lastSeen[id] = ss.now()
	if sess, ok := ss.byID[id]; ok {
		return sess
	}
	sess := &session{id: id, ctrl: ss.newController()}
	ss.byID[id] = sess
	return sess
}

// sweep drops sessions idle for longer than idle and returns how many.
func (ss *sessions) sweep(idle time.Duration) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	cutoff := ss.now().Add(-idle)
	var n int
	for id, seen := range ss.lastSeen {
		if seen.Before(cutoff) {
			delete(ss.lastSeen, id)
			delete(ss.byID, id)
			n++
		}
	}
	return n
}

func (ss *sessions) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byID)
}

// sweepEvery runs sweep until ctx is done.
func (ss *sessions) sweepEvery(ctx context.Context, idle time.Duration) {
	interval := idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := ss.sweep(idle); n > 0 {
				log.Ctx(ctx).DebugContext(ctx, "swept idle sessions", slog.Int("count", n))
			}
		}
	}
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

// withSession resolves the el_session cookie, issuing a new one when it is
// missing or isn't a UUID, and passes the session on.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if ck, err := r.Cookie(sessionCookie); err == nil {
			if _, err := uuid.Parse(ck.Value); err == nil {
				id = ck.Value
			}
		}
		ctx := r.Context()
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   s.secureCookies,
				SameSite: http.SameSiteLaxMode,
			})
			s.countVisitor(ctx)
		}
		ctx = log.WithAttrs(ctx, slog.String("session", id))
		ctx = client.WithLang(ctx, s.lang)
		h(w, r.WithContext(ctx), s.sessions.get(id))
	}
}

// prepare loads the session's snapshot from the backend the first time it is
// used and reapplies the draft it left unsaved, if any. The shop listing is
// fetched along with it in game mode.
func (s *Server) prepare(ctx context.Context, sess *session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.prepared {
		return nil
	}
	if _, err := sess.ctrl.Load(ctx); err != nil {
		return err
	}
	sess.prepared = true

	d, err := s.storage.GetDraft(ctx, sess.id)
	switch {
	case err == nil:
		sess.ctrl.Edit(ctx, d.Payload)
		log.Ctx(ctx).DebugContext(ctx, "restored draft", slog.Time("updatedAt", d.UpdatedAt))
	case errors.Is(err, storage.ErrDraftNotFound):
	default:
		log.Ctx(ctx).WarnContext(ctx, "failed to get draft", slog.Any("error", err))
	}

	if sess.ctrl.Mode() == types.ModeGame {
		if _, err := sess.ctrl.Shop(ctx); err != nil {
			log.Ctx(ctx).DebugContext(ctx, "failed to load shop, using the built-in list", slog.Any("error", err))
		}
	}
	return nil
}

// countVisitor counts a browser we haven't issued a session to before.
func (s *Server) countVisitor(ctx context.Context) {
	n, err := s.storage.IncrementVisitors(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to count visitor", slog.Any("error", err))
		return
	}
	s.visitors.Store(int64(n))
}
