package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/energylife/energylife/pkg/client"
	"github.com/energylife/energylife/pkg/controller"
	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/storage"
	"github.com/energylife/energylife/pkg/types"
	"github.com/energylife/energylife/pkg/view"
	"github.com/levenlabs/go-lflag"
)

// Server is the HTTP front-end of the game. It renders the page, turns form
// submissions into backend calls through a per-session controller and pushes
// fresh results to the session's other open tabs.
type Server struct {
	backend  *client.Client
	storage  storage.Database
	renderer *view.Renderer
	hub      *Hub
	sessions *sessions
	visitors atomic.Int64

	listenAddr         string
	mode               string
	lang               i18n.Lang
	serverName         string
	webCacheDuration   time.Duration
	sessionIdleTimeout time.Duration
	feedbackToken      string
	secureCookies      bool
	httpServer         *http.Server
}

// newServer returns a Server with default settings. Every session gets its
// own cookie jar so it also gets its own backend session.
func newServer(c *client.Client, db storage.Database) *Server {
	renderer, err := view.NewRenderer()
	if err != nil {
		// templates are embedded so this only fails on a broken build
		panic(err)
	}
	srv := &Server{
		backend:            c,
		storage:            db,
		renderer:           renderer,
		hub:                NewHub(),
		listenAddr:         ":8080",
		mode:               types.ModeGame,
		lang:               i18n.Thai,
		serverName:         "energylife",
		sessionIdleTimeout: 30 * time.Minute,
	}
	srv.sessions = newSessions(func() *controller.Controller {
		jar, _ := cookiejar.New(nil)
		return controller.New(srv.backend.WithJar(jar), srv.mode, srv.lang)
	})
	return srv
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(c *client.Client, db storage.Database) *Server {
	srv := newServer(c, db)
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	mode := lflag.String("mode", types.ModeGame, "Front-end mode (game or real). The shop and points only exist in game mode.")
	lang := lflag.String("lang", string(i18n.Thai), "Display language (th or en)")
	webCacheDuration := lflag.Duration("web-cache-duration", 0, "Duration to cache static files (e.g. 1h, 5m). 0 means no cache.")
	sessionIdleTimeout := lflag.Duration("session-idle-timeout", 30*time.Minute, "Drop a session's in-memory state after it has been idle this long")
	feedbackToken := lflag.String("feedback-list-token", "", "Bearer token required to list feedback via /api/feedback. Empty disables listing.")
	secureCookies := lflag.Bool("secure-cookies", false, "Mark the session cookie as Secure")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		switch *mode {
		case types.ModeGame, types.ModeReal:
			srv.mode = *mode
		default:
			log.Ctx(context.Background()).Error("unsupported mode", slog.String("mode", *mode))
			os.Exit(1)
		}
		l, err := i18n.Parse(*lang)
		if err != nil {
			log.Ctx(context.Background()).Error("unsupported language", slog.String("lang", *lang), slog.Any("error", err))
			os.Exit(1)
		}
		srv.lang = l
		srv.backend.SetLang(l)
		srv.webCacheDuration = *webCacheDuration
		if *sessionIdleTimeout <= 0 {
			log.Ctx(context.Background()).Error("session-idle-timeout must be positive")
			os.Exit(1)
		}
		srv.sessionIdleTimeout = *sessionIdleTimeout
		srv.feedbackToken = *feedbackToken
		srv.secureCookies = *secureCookies
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.withSession(s.handleIndex))
	mux.HandleFunc("POST /save", s.withSession(s.handleSave))
	mux.HandleFunc("POST /simulate", s.withSession(s.handleSimulate))
	mux.HandleFunc("POST /buy", s.withSession(s.handleBuy))
	mux.HandleFunc("POST /feedback", s.withSession(s.handleSubmitFeedback))
	mux.HandleFunc("GET /api/view", s.withSession(s.handleView))
	mux.HandleFunc("GET /api/feedback", s.handleListFeedback)
	mux.Handle("GET /static/", s.staticHandler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	// websocket upgrades need the raw connection so they skip gzip
	root := http.NewServeMux()
	root.HandleFunc("GET /ws", s.withSession(s.handleWS))
	root.Handle("/", gziphandler.GzipHandler(mux))
	return s.revisionMiddleware(s.securityHeadersMiddleware(s.requestMiddleware(root)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go s.sessions.sweepEvery(ctx, s.sessionIdleTimeout)

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr), slog.String("mode", s.mode))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		s.hub.CloseAll()
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, struct {
		Error string `json:"error"`
	}{Error: msg}, code)
}

// wantsJSON is true for API clients. Browsers submitting forms get HTML.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) staticHandler() http.Handler {
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(view.Static())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.webCacheDuration > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.webCacheDuration.Seconds())))
		}
		fileServer.ServeHTTP(w, r)
	})
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
