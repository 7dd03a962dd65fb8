// Package identity gives each browser an anonymous learner id so that
// progress and sessions are kept per device.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

const (
	LearnerCookieName = "devenglish_learner"
	LearnerHeaderName = "X-DevEnglish-Learner"
	learnerCookieAge  = 365 * 24 * time.Hour
)

type contextKey int

const learnerIDKey contextKey = iota

var learnerIDPattern = regexp.MustCompile(`^learner_[a-f0-9]{32}$`)

// LearnerIDFromContext extracts the learner ID from the request context.
func LearnerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(learnerIDKey).(string); ok {
		return v
	}
	return ""
}

// WithLearnerID returns a context carrying id.
func WithLearnerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, learnerIDKey, id)
}

func generateLearnerID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate learner id: %w", err)
	}
	return "learner_" + hex.EncodeToString(buf), nil
}

// IsValidLearnerID reports whether id has the generated format.
func IsValidLearnerID(id string) bool {
	return learnerIDPattern.MatchString(id)
}

func setLearnerCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     LearnerCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(learnerCookieAge.Seconds()),
		Expires:  time.Now().Add(learnerCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// getOrCreateLearnerID prefers the explicit header, then the cookie, and
// mints a new id otherwise. The cookie is refreshed on every request.
func getOrCreateLearnerID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if h := r.Header.Get(LearnerHeaderName); IsValidLearnerID(h) {
		return h, nil
	}
	if c, err := r.Cookie(LearnerCookieName); err == nil && IsValidLearnerID(c.Value) {
		setLearnerCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateLearnerID()
	if err != nil {
		return "", err
	}
	setLearnerCookie(w, id, isDev)
	return id, nil
}

// Middleware injects the anonymous learner identity.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			learnerID, err := getOrCreateLearnerID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish learner identity"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithLearnerID(r.Context(), learnerID)))
		})
	}
}
