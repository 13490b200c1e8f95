package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/metrics"
	"volunteerhub/internal/model"
	"volunteerhub/internal/session"
)

type principalKey struct{}

func principalFromContext(ctx context.Context) *session.Principal {
	p, _ := ctx.Value(principalKey{}).(*session.Principal)
	return p
}

// actorFrom returns the authenticated caller. Only valid behind authMiddleware.
func actorFrom(r *http.Request) model.Actor {
	p := principalFromContext(r.Context())
	if p == nil {
		return model.Actor{}
	}
	return model.Actor{ID: p.AccountID, Role: p.Role}
}

// viewerFrom returns the caller if one authenticated, nil for anonymous requests.
func viewerFrom(r *http.Request) *model.Actor {
	p := principalFromContext(r.Context())
	if p == nil {
		return nil
	}
	return &model.Actor{ID: p.AccountID, Role: p.Role}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			s.fail(w, r, apperr.Unauthorized("access token required"))
			return
		}

		principal, err := s.sessions.Validate(r.Context(), token)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, withPrincipal(r, principal))
	})
}

// optionalAuth attaches the principal when a valid token is presented and
// otherwise serves the request anonymously.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := s.sessions.Validate(r.Context(), token)
		if err != nil {
			if apperr.KindOf(err) == apperr.Unexpected {
				s.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withPrincipal(r, principal))
	})
}

func (s *Server) requireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := principalFromContext(r.Context())
			if p == nil {
				s.fail(w, r, apperr.Unauthorized("access token required"))
				return
			}
			if !p.HasRole(roles...) {
				s.fail(w, r, apperr.Denied("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withPrincipal(r *http.Request, p session.Principal) *http.Request {
	hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("account_id", p.AccountID)
	})
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, &p))
}

// requestLogger puts a per-request logger carrying the request id into the
// context and writes one access line per request.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	withLogger := hlog.NewHandler(base)
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			event = hlog.FromRequest(r).Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})
	return func(next http.Handler) http.Handler {
		tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := middleware.GetReqID(r.Context()); id != "" {
				hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
					return c.Str("request_id", id)
				})
			}
			next.ServeHTTP(w, r)
		})
		return withLogger(access(tagged))
	}
}

// instrument records request counts and latencies by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
