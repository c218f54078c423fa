package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/electroshop/backend/internal/auth"
	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
	apperrors "github.com/electroshop/backend/pkg/errors"
	"github.com/electroshop/backend/pkg/httputil"
)

type contextKey string

const (
	userContextKey  contextKey = "principal_user"
	adminContextKey contextKey = "principal_admin"
)

// Guard authenticates requests against the token manager and re-checks that
// the principal still exists and is active, so a deactivated account loses
// access immediately rather than at token expiry.
type Guard struct {
	tokens *auth.TokenManager
	users  repository.UserRepository
	admins repository.AdminRepository
	logger *slog.Logger
}

// NewGuard creates the auth middleware set.
func NewGuard(
	tokens *auth.TokenManager,
	users repository.UserRepository,
	admins repository.AdminRepository,
	logger *slog.Logger,
) *Guard {
	return &Guard{tokens: tokens, users: users, admins: admins, logger: logger}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperrors.Unauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperrors.Unauthorized("invalid authorization header format")
	}
	return parts[1], nil
}

func (g *Guard) verifyAccess(r *http.Request, wantKind string) (*auth.Claims, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := g.tokens.VerifyAccessToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.Unauthorized("invalid access token")
	}
	if claims.Kind != wantKind {
		// Valid token, wrong surface. The caller is authenticated, just not
		// allowed here.
		return nil, apperrors.Forbidden("access denied for this resource")
	}
	return claims, nil
}

// AuthUser requires a valid customer access token. The authenticated user is
// placed in the request context.
func (g *Guard) AuthUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.verifyAccess(r, domain.KindUser)
		if err != nil {
			httputil.WriteError(w, r, err, g.logger)
			return
		}

		user, err := g.users.GetByID(r.Context(), claims.PrincipalID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				err = apperrors.Unauthorized("account no longer exists")
			}
			httputil.WriteError(w, r, err, g.logger)
			return
		}
		if !user.IsActive {
			httputil.WriteError(w, r, apperrors.Forbidden("account is deactivated"), g.logger)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthAdmin requires a valid admin access token. The authenticated admin is
// placed in the request context.
func (g *Guard) AuthAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.verifyAccess(r, domain.KindAdmin)
		if err != nil {
			httputil.WriteError(w, r, err, g.logger)
			return
		}

		admin, err := g.admins.GetByID(r.Context(), claims.PrincipalID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				err = apperrors.Unauthorized("account no longer exists")
			}
			httputil.WriteError(w, r, err, g.logger)
			return
		}
		if !admin.IsActive {
			httputil.WriteError(w, r, apperrors.Forbidden("account is deactivated"), g.logger)
			return
		}

		ctx := context.WithValue(r.Context(), adminContextKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a route on the named permission. Super admins pass
// every check. Must be mounted after AuthAdmin.
func (g *Guard) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := AdminFromContext(r.Context())
			if admin == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("not authenticated"), g.logger)
				return
			}
			if !admin.Can(permission) {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), g.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route on the admin role. Must be mounted after AuthAdmin.
func (g *Guard) RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := AdminFromContext(r.Context())
			if admin == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("not authenticated"), g.logger)
				return
			}
			if _, ok := roleSet[admin.Role]; !ok {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient role"), g.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated user, or nil outside AuthUser.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

// AdminFromContext returns the authenticated admin, or nil outside AuthAdmin.
func AdminFromContext(ctx context.Context) *domain.Admin {
	admin, _ := ctx.Value(adminContextKey).(*domain.Admin)
	return admin
}

// clientIP returns the remote address for audit records, preferring the
// X-Real-IP header set by the reverse proxy.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ContentTypeJSON enforces that requests with a body carry
// Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Success: false,
					Message: "Content-Type must be application/json",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
