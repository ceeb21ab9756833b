package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hisiddique/bloodathome/internal/domain/entity"
	"github.com/hisiddique/bloodathome/pkg/jwt"
	"github.com/hisiddique/bloodathome/pkg/response"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	RoleIDKey    contextKey = "role_id"
	TokenIDKey   contextKey = "token_id"
	GuestKey     contextKey = "guest_token"
)

// GuestTokenHeader carries the anonymous session token of a guest booker.
const GuestTokenHeader = "X-Guest-Token"

type AuthMiddleware struct {
	jwtService  *jwt.JWTService
	redisClient *redis.Client
}

// NewAuthMiddleware builds the middleware. redisClient may be nil, in which
// case revoked tokens are not checked.
func NewAuthMiddleware(jwtService *jwt.JWTService, redisClient *redis.Client) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		redisClient: redisClient,
	}
}

// Identify attaches whoever is calling to the context: a user when a bearer
// token is present, otherwise the guest token header if any. A bad bearer
// token is rejected rather than treated as anonymous.
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			claims, status, msg := m.verify(ctx, authHeader)
			if claims == nil {
				if status == http.StatusInternalServerError {
					response.InternalServerError(w, msg)
				} else {
					response.Unauthorized(w, msg)
				}
				return
			}
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
			ctx = context.WithValue(ctx, RoleIDKey, claims.RoleID)
			ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)
		}

		if guest := strings.TrimSpace(r.Header.Get(GuestTokenHeader)); guest != "" {
			ctx = context.WithValue(ctx, GuestKey, guest)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate requires a signed-in user. It must run after Identify.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			response.Unauthorized(w, "Authorization header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) verify(ctx context.Context, authHeader string) (*jwt.Claims, int, string) {
	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, http.StatusUnauthorized, "Invalid authorization header format"
	}

	claims, err := m.jwtService.ValidateToken(parts[1])
	if errors.Is(err, jwt.ErrWrongTokenType) {
		return nil, http.StatusUnauthorized, "Invalid token type"
	}
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	if m.redisClient != nil {
		revokedKey := fmt.Sprintf("revoked_token:%s", claims.TokenID)
		exists, err := m.redisClient.Exists(ctx, revokedKey).Result()
		if err != nil {
			return nil, http.StatusInternalServerError, "Failed to validate token"
		}
		if exists > 0 {
			return nil, http.StatusUnauthorized, "Token has been revoked"
		}
	}
	return claims, 0, ""
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetRoleIDFromContext extracts role ID from context
func GetRoleIDFromContext(ctx context.Context) (int, bool) {
	roleID, ok := ctx.Value(RoleIDKey).(int)
	return roleID, ok
}

// GetGuestTokenFromContext extracts the guest session token from context
func GetGuestTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(GuestKey).(string)
	return token, ok && token != ""
}

// GetOwnerFromContext returns the draft owner of the request. A signed-in
// user wins over a guest token.
func GetOwnerFromContext(ctx context.Context) (entity.OwnerKey, bool) {
	if userID, ok := GetUserIDFromContext(ctx); ok {
		return entity.UserOwner(userID), true
	}
	if token, ok := GetGuestTokenFromContext(ctx); ok {
		return entity.GuestOwner(token), true
	}
	return "", false
}

// IsAdmin reports whether the caller carries the admin role
func IsAdmin(ctx context.Context) bool {
	roleID, ok := GetRoleIDFromContext(ctx)
	return ok && roleID == entity.RoleIDAdmin
}
