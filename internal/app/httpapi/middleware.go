package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

type ctxKey string

const ctxUserKey ctxKey = "user_id"

// UserHeader carries the caller's user id, set by the fronting gateway.
const UserHeader = "X-User-ID"

var errUnauthorized = errors.New("Unauthorized")

// withUserContext stores the user id for downstream handlers.
func withUserContext(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxUserKey, userID)
}

func userFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(ctxUserKey).(string)
	return userID
}

// requireUser rejects requests without a user header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserContext(r.Context(), userID)))
	})
}

// bearerAuth guards privileged routes with the shared cron secret. An empty
// secret leaves the routes open.
type bearerAuth struct {
	secret []byte
	audit  *auditLog
	log    *logger.Logger
}

func newBearerAuth(secret string, audit *auditLog, log *logger.Logger) *bearerAuth {
	if secret == "" {
		log.Warn("CRON_SECRET not set; sync, seed and advisor endpoints are unauthenticated")
	}
	return &bearerAuth{secret: []byte(secret), audit: audit, log: log}
}

func (a *bearerAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			a.audit.record(r, rec.status)
		}()

		if len(a.secret) > 0 && !a.authorized(r.Header.Get("Authorization")) {
			a.log.WithField("path", r.URL.Path).
				WithField("remote_addr", r.RemoteAddr).
				Warn("rejected request with invalid bearer token")
			writeError(rec, http.StatusUnauthorized, errUnauthorized)
			return
		}
		next.ServeHTTP(rec, r)
	})
}

func (a *bearerAuth) authorized(header string) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), a.secret) == 1
}

// cors answers preflight requests from listed origins and sets their allow
// headers.
type cors struct {
	allowed  []string
	allowAll bool
}

func newCORS(origins []string) *cors {
	c := &cors{allowed: origins}
	for _, origin := range origins {
		if origin == "*" {
			c.allowAll = true
		}
	}
	return c
}

func (c *cors) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !(c.allowAll || c.originAllowed(origin)) {
			// Preflights from unlisted origins fall through to the router.
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+UserHeader)
		w.Header().Set("Access-Control-Max-Age", "3600")
		w.Header().Add("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *cors) originAllowed(origin string) bool {
	for _, allowed := range c.allowed {
		if allowed == origin {
			return true
		}
	}
	return false
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
