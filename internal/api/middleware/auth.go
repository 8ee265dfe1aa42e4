package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"users_sheet/internal/common"
	"users_sheet/internal/common/security"
)

// SessionSource yields the session bound to the request, if any.
type SessionSource interface {
	Current(ctx context.Context) (*security.SessionClaims, bool)
}

// ActiveChecker answers whether an account currently holds the Active role.
type ActiveChecker interface {
	IsActive(ctx context.Context, accountID string) (bool, error)
}

type Gate struct {
	sessions     SessionSource
	active       ActiveChecker
	signInPath   string
	accessDenied string
	logger       *slog.Logger
}

func NewGate(sessions SessionSource, active ActiveChecker, signInPath, accessDeniedPath string, logger *slog.Logger) *Gate {
	return &Gate{
		sessions:     sessions,
		active:       active,
		signInPath:   signInPath,
		accessDenied: accessDeniedPath,
		logger:       logger.With(slog.String("component", "gate")),
	}
}

// RequireActive lets a request through only with a live session whose account holds
// Active right now. Anonymous callers go to sign-in with a return URL; signed-in
// callers that lost Active go to the access-denied path.
func (g *Gate) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, ok := g.sessions.Current(r.Context())
		if !ok {
			target := g.signInPath + "?returnUrl=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		active, err := g.active.IsActive(r.Context(), sc.AccountID)
		if err != nil {
			g.logger.ErrorContext(r.Context(), "active role check failed",
				slog.String("account_id", sc.AccountID),
				slog.String("error", err.Error()),
			)
			common.RespondWithDomainError(w, err)
			return
		}
		if !active {
			g.logger.InfoContext(r.Context(), "inactive account denied", slog.String("username", sc.Username))
			http.Redirect(w, r, g.accessDenied, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}
