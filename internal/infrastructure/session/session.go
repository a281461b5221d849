// Package session implements the privileged admin session: server-side state
// in a Store, referenced by a signed token held in a cookie.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bibliodesign/site/internal/infrastructure/config"
)

// ErrNoSession means the request carries no valid privileged session
var ErrNoSession = errors.New("no session")

// Session is the server-side state behind a session cookie
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Manager issues, resolves and destroys sessions
type Manager struct {
	store      Store
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewManager creates a session manager over store
func NewManager(store Store, cfg config.SessionConfig) *Manager {
	return &Manager{
		store:      store,
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
	}
}

// Grant marks the caller as privileged. Any session the request already
// carried is discarded and a new id is issued.
func (m *Manager) Grant(w http.ResponseWriter, r *http.Request, username string) (*Session, error) {
	if id, err := m.sessionID(r); err == nil {
		_ = m.store.Delete(r.Context(), id)
	}

	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		Admin:     true,
		CreatedAt: now,
	}

	if err := m.store.Set(r.Context(), sess, m.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	http.SetCookie(w, m.cookie(token, int(m.ttl.Seconds())))

	return sess, nil
}

// Load resolves the privileged session carried by r
func (m *Manager) Load(r *http.Request) (*Session, error) {
	id, err := m.sessionID(r)
	if err != nil {
		return nil, err
	}

	sess, err := m.store.Get(r.Context(), id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	if !sess.Admin {
		return nil, ErrNoSession
	}

	return sess, nil
}

// Destroy removes the server-side state and clears the cookie
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, m.cookie("", -1))

	id, err := m.sessionID(r)
	if err != nil {
		return nil
	}

	return m.store.Delete(r.Context(), id)
}

func (m *Manager) sessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoSession
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.ID == "" {
		return "", ErrNoSession
	}

	return claims.ID, nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
