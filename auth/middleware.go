package auth

import (
	"errors"
	"net/http"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/logging"
)

// Authenticate resolves the session cookie and, when it names a live session, stores the
// caller's Identity in the request context. Anonymous requests pass through unchanged;
// endpoints decide for themselves whether an identity is required.
func (m *SessionManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.Resolve(r)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("session lookup failed")
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := ContextWithIdentity(r.Context(), &Identity{
			UserID:    session.UserID,
			Username:  session.Username,
			SessionID: session.ID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without an identity with 401. It must run after
// Authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			WriteError(w, r, apperror.NewAuthError("Authentication required", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
