package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"messaging-service/pkg/response"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	ContextUserID   contextKey = "userID"
	ContextUserType contextKey = "userType"
)

// Claims is the token payload the platform's auth service issues. This
// service only verifies and reads it; policy lives elsewhere.
type Claims struct {
	UserID   int64  `json:"user_id"`
	UserType string `json:"user_type"` // member or manager
	jwt.RegisteredClaims
}

type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Middleware rejects unauthenticated callers; there is no guest fallback.
// The token rides the Authorization header, or the token query parameter
// for websocket handshakes.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			tokenStr = r.URL.Query().Get("token")
		}
		if tokenStr == "" {
			response.Error(w, http.StatusUnauthorized, "missing token")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid || claims.UserID <= 0 {
			response.Error(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userType := claims.UserType
		if userType != "manager" {
			userType = "member"
		}

		ctx := context.WithValue(r.Context(), ContextUserID, claims.UserID)
		ctx = context.WithValue(ctx, ContextUserType, userType)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireManager gates the administrative surface.
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ut, _ := GetUserType(r.Context()); ut != "manager" {
			response.Error(w, http.StatusForbidden, "manager access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserID(ctx context.Context) (int64, bool) {
	val, ok := ctx.Value(ContextUserID).(int64)
	return val, ok
}

func GetUserType(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextUserType).(string)
	return val, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
