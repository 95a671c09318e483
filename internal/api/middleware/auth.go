package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"

	headerUserID = "X-User-ID"

	msgMissingUserID = "отсутствует ID пользователя"
	msgInvalidToken  = "недействительный токен"
)

// Claims JWT claims, sub содержит ID пользователя
type Claims struct {
	jwt.RegisteredClaims
}

// WithUserID кладёт ID пользователя в контекст
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok && userID > 0
}

// Auth аутентифицирует запрос
// С секретом требуется Bearer JWT (HS256, sub = ID пользователя),
// без секрета ID берётся из заголовка X-User-ID (за API gateway)
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				userID int64
				ok     bool
			)
			if len(secret) > 0 {
				userID, ok = userFromToken(r, secret)
				if !ok {
					handlers.RespondUnauthorized(w, msgInvalidToken)
					return
				}
			} else {
				userID, ok = userFromHeader(r)
				if !ok {
					handlers.RespondUnauthorized(w, msgMissingUserID)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func userFromHeader(r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.Header.Get(headerUserID), 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}

func userFromToken(r *http.Request, secret []byte) (int64, bool) {
	header := r.Header.Get("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return 0, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, false
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}
