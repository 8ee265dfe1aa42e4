// Package session issues and revokes browser sessions. A session is a signed JWT
// in an HttpOnly cookie; revoked token ids are remembered in the key/value store
// until the token would have expired anyway.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"users_sheet/internal/common"
	"users_sheet/internal/common/security"
	"users_sheet/internal/domain/model"
	"users_sheet/internal/platform/kv"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

const revokedKeyPrefix = "session:revoked:"

// ErrNoRequest means ctx did not pass through Manager.Load, so there is no response to set a cookie on.
var ErrNoRequest = errors.New("session: no request bound to context")

type CookieOptions struct {
	Name   string
	Path   string
	Secure bool
}

type Manager struct {
	codec   *security.TokenCodec
	revoked kv.Store
	cookie  CookieOptions
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(codec *security.TokenCodec, revoked kv.Store, cookie CookieOptions, logger *slog.Logger) *Manager {
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &Manager{
		codec:   codec,
		revoked: revoked,
		cookie:  cookie,
		logger:  logger.With(slog.String("component", "session")),
		now:     time.Now,
	}
}

type ctxKey struct{}

// binding is the per-request view of the session. Issue and RevokeCurrent mutate it
// so later calls in the same request see the new state.
type binding struct {
	w      http.ResponseWriter
	claims *security.SessionClaims
}

func bindingFrom(ctx context.Context) *binding {
	b, _ := ctx.Value(ctxKey{}).(*binding)
	return b
}

// Verifier extracts the token from the session cookie and verifies it with jwtauth.
func (m *Manager) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(m.codec.Auth(), func(r *http.Request) string {
		c, err := r.Cookie(m.cookie.Name)
		if err != nil {
			return ""
		}
		return c.Value
	})
}

// Load binds the verified session, if any and not revoked, to the request context.
// It must run after Verifier.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		b := &binding{w: w}

		token, claims, err := jwtauth.FromContext(ctx)
		switch {
		case err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound):
			m.logger.DebugContext(ctx, "session cookie rejected", slog.String("error", err.Error()))
			m.clearCookie(w)
		case err == nil && token != nil:
			sc, err := security.ClaimsFromMap(claims, token.Expiration())
			if err != nil {
				m.logger.DebugContext(ctx, "session claims invalid", slog.String("error", err.Error()))
				m.clearCookie(w)
				break
			}
			revoked, err := m.revoked.Exists(ctx, revokedKeyPrefix+sc.SessionID)
			if err != nil {
				m.logger.ErrorContext(ctx, "revocation lookup failed", slog.String("error", err.Error()))
				common.RespondWithError(w, http.StatusServiceUnavailable, "Session store unavailable")
				return
			}
			if revoked {
				m.clearCookie(w)
				break
			}
			b.claims = sc
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKey{}, b)))
	})
}

// Current returns the live session claims bound to ctx.
func (m *Manager) Current(ctx context.Context) (*security.SessionClaims, bool) {
	b := bindingFrom(ctx)
	if b == nil || b.claims == nil {
		return nil, false
	}
	return b.claims, true
}

// Issue signs a fresh session for account and sets the cookie. Any session the
// request already carried is revoked first.
func (m *Manager) Issue(ctx context.Context, account *model.Account) error {
	b := bindingFrom(ctx)
	if b == nil {
		return ErrNoRequest
	}
	if b.claims != nil {
		if err := m.revoke(ctx, b.claims); err != nil {
			return err
		}
	}

	sid := uuid.NewString()
	token, exp, err := m.codec.Generate(sid, account.ID, account.Username)
	if err != nil {
		return err
	}
	http.SetCookie(b.w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     m.cookie.Path,
		Expires:  exp,
		MaxAge:   int(m.codec.TTL().Seconds()),
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	b.claims = &security.SessionClaims{
		SessionID: sid,
		AccountID: account.ID,
		Username:  account.Username,
		ExpiresAt: exp,
	}
	m.logger.DebugContext(ctx, "session issued", slog.String("username", account.Username))
	return nil
}

// RevokeCurrent ends the request's session and clears the cookie. It is a no-op
// without a session.
func (m *Manager) RevokeCurrent(ctx context.Context) error {
	b := bindingFrom(ctx)
	if b == nil {
		return nil
	}
	if b.claims != nil {
		if err := m.revoke(ctx, b.claims); err != nil {
			return err
		}
		b.claims = nil
	}
	m.clearCookie(b.w)
	return nil
}

func (m *Manager) CurrentUsername(ctx context.Context) (string, bool) {
	sc, ok := m.Current(ctx)
	if !ok {
		return "", false
	}
	return sc.Username, true
}

func (m *Manager) CurrentSessionID(ctx context.Context) (string, bool) {
	sc, ok := m.Current(ctx)
	if !ok {
		return "", false
	}
	return sc.SessionID, true
}

func (m *Manager) revoke(ctx context.Context, sc *security.SessionClaims) error {
	ttl := sc.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.revoked.Set(ctx, revokedKeyPrefix+sc.SessionID, []byte("1"), ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     m.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
