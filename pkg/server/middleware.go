package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/energylife/energylife/pkg/log"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// requestMiddleware tags every request with an ID, taken from the incoming
// header when it is a valid UUID, and puts a logger carrying it into the
// request context.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := log.WithAttrs(r.Context(), slog.String("requestID", id))
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		log.Ctx(ctx).DebugContext(
			ctx,
			"handled request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("took", time.Since(start)),
		)
	})
}
