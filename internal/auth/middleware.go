package auth

import (
	"context"
	"net/http"

	"tasklist-app/internal/logger"
)

type contextKey int

const claimsKey contextKey = iota

// RequireAuth - общая проверка сессии для всех страниц задач.
// Запрос без действующей сессии уходит редиректом на loginURL,
// это не ошибка, а обычный сценарий.
func (s *Sessions) RequireAuth(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				http.Redirect(w, r, loginURL, http.StatusFound)
				return
			}

			claims, err := s.ValidateToken(cookie.Value)
			if err != nil {
				logger.Debug(r.Context(), "Сессия не прошла проверку", "path", r.URL.Path)
				http.Redirect(w, r, loginURL, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser возвращает данные сессии, положенные RequireAuth.
func CurrentUser(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// IsAuthenticated проверяет cookie запроса без middleware. Нужна
// страницам входа и регистрации: залогиненного сразу уводим к задачам.
func (s *Sessions) IsAuthenticated(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	_, err = s.ValidateToken(cookie.Value)
	return err == nil
}
