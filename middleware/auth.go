package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Iqra-23/intrusion-backend/repository"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	APIKeyKey contextKey = "api_key"
)

// AuthMiddleware resolves an optional user identity from an API key or JWT
// bearer token so traffic events can be attributed to a user. It never
// rejects requests; the monitored application's own auth is not this
// service's concern.
type AuthMiddleware struct {
	jwtSecret  string
	apiKeyRepo *repository.APIKeyRepository
	userRepo   *repository.UserRepository
}

func NewAuthMiddleware(jwtSecret string, apiKeyRepo *repository.APIKeyRepository, userRepo *repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:  jwtSecret,
		apiKeyRepo: apiKeyRepo,
		userRepo:   userRepo,
	}
}

func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && m.apiKeyRepo != nil {
			userID, isActive, err := m.apiKeyRepo.ValidateKey(ctx, apiKey)
			if err == nil && isActive {
				ctx = context.WithValue(ctx, UserIDKey, userID.String())
				ctx = context.WithValue(ctx, APIKeyKey, apiKey)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				return []byte(m.jwtSecret), nil
			})

			if err == nil && token.Valid {
				if claims, ok := token.Claims.(jwt.MapClaims); ok {
					if userIDStr, ok := claims["user_id"].(string); ok {
						if _, err := uuid.Parse(userIDStr); err == nil {
							ctx = context.WithValue(ctx, UserIDKey, userIDStr)
							r = r.WithContext(ctx)
						}
					}
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func GetUserID(ctx context.Context) string {
	if val := ctx.Value(UserIDKey); val != nil {
		return val.(string)
	}
	return ""
}
