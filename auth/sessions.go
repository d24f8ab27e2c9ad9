package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/cropadvisor-go/config"
	"github.com/user/cropadvisor-go/metrics"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "cropadvisor_session"

const sessionIssuer = "cropadvisor"

// sessionClaims is the payload of the cookie token. Only the session id is trusted from
// it; everything else about the user is read from the store.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionManager creates sessions, writes them into signed cookies and resolves them
// again on later requests.
type SessionManager struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessionManager creates a manager that signs cookies with cfg.SecretKey.
func NewSessionManager(store SessionStore, cfg *config.AuthConfig) *SessionManager {
	return &SessionManager{
		store:  store,
		secret: []byte(cfg.SecretKey),
		ttl:    cfg.SessionTTL,
		secure: cfg.CookieSecure,
	}
}

// Start creates a new session for user and sets the cookie on w.
func (m *SessionManager) Start(ctx context.Context, w http.ResponseWriter, user *User) (*Session, error) {
	session := NewSession(user, m.ttl)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	token, err := m.sign(session)
	if err != nil {
		_ = m.store.Delete(ctx, session.ID)
		return nil, err
	}
	http.SetCookie(w, m.cookie(token, int(m.ttl.Seconds()), session.ExpiresAt))
	metrics.SessionsCreated.Inc()
	return session, nil
}

// Resolve returns the live session referenced by the request cookie. A missing, forged,
// expired or deleted session yields ErrSessionNotFound or ErrSessionExpired.
func (m *SessionManager) Resolve(r *http.Request) (*Session, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, ErrSessionNotFound
	}
	sid, err := m.parse(c.Value)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(r.Context(), sid)
}

// End deletes the request's session, if any, and clears the cookie. It never fails from
// the client's point of view; store errors are returned for logging only.
func (m *SessionManager) End(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, m.cookie("", -1, time.Unix(0, 0)))
	return m.Revoke(r)
}

// Revoke deletes the session named by the request cookie without touching the response.
func (m *SessionManager) Revoke(r *http.Request) error {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	sid, err := m.parse(c.Value)
	if err != nil {
		return nil
	}
	return m.store.Delete(r.Context(), sid)
}

func (m *SessionManager) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *SessionManager) sign(session *Session) (string, error) {
	claims := sessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   fmt.Sprint(session.UserID),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (m *SessionManager) parse(raw string) (string, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.SessionID == "" {
		return "", errors.New("session token without sid")
	}
	return claims.SessionID, nil
}
