package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/session"
)

type Auth struct {
	session session.Servicer
	log     *slog.Logger
}

func New(session session.Servicer, log *slog.Logger) *Auth {
	return &Auth{
		session: session,
		log:     log.With("component", "auth_middleware"),
	}
}

type contextKey string

const (
	UserIDKey contextKey = "userID"
	TokenKey  contextKey = "token"
)

// Middleware - вариант для операций huma.
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		newCtx, ok := a.authenticate(ctx.Context(), ctx.Header("Authorization"))
		if !ok {
			ctx.SetHeader("Content-Type", "application/json")
			ctx.SetStatus(http.StatusUnauthorized)
			a.writeUnauthorized(ctx.BodyWriter())
			return
		}

		next(huma.WithContext(ctx, newCtx))
	}
}

// HTTP - вариант для обычных обработчиков chi, например /ws.
func (a *Auth) HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		newCtx, ok := a.authenticate(r.Context(), r.Header.Get("Authorization"))
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			a.writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}

func (a *Auth) authenticate(ctx context.Context, header string) (context.Context, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		a.log.Warn("отсутствует bearer токен")
		return ctx, false
	}

	userID, err := a.session.Validate(ctx, token)
	if err != nil {
		a.log.Warn("ошибка проверки сессии", "error", err)
		return ctx, false
	}

	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, TokenKey, token)
	return ctx, true
}

func (a *Auth) writeUnauthorized(w io.Writer) {
	err := json.NewEncoder(w).Encode(map[string]string{
		"error": "Unauthorized",
	})
	if err != nil {
		a.log.Error("не удалось закодировать ответ 401", "error", err)
	}
}

func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}
