package user

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/app/server/api/http/httperr"
	"stockkeeper/internal/app/server/api/http/middleware/auth"
	"stockkeeper/internal/domain/session"
	"stockkeeper/internal/domain/user"
)

type Handler struct {
	service    user.Servicer
	session    session.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
	authorized huma.Middlewares
}

// NewHandler: middleware - для публичных операций, authorized - для logout.
func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, middleware, authorized huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		session:    session,
		log:        log.With("component", "user_handler"),
		middleware: middleware,
		authorized: authorized,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.loginOp(), h.login)
	huma.Register(api, h.logoutOp(), h.logout)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	userID, err := h.service.Register(ctx, input.Body)
	if err != nil {
		return nil, httperr.From(h.log, "register user", err)
	}

	h.log.Info("пользователь зарегистрирован", "user_id", userID)
	return &registerOutput{
		Body: user.RegisterResponse{ID: userID},
	}, nil
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	u, err := h.service.Authenticate(ctx, input.Body)
	if err != nil {
		return nil, httperr.From(h.log, "authenticate user", err)
	}

	token, expiresAt, err := h.session.Create(ctx, u.ID)
	if err != nil {
		return nil, httperr.From(h.log, "create session", err)
	}

	return &loginOutput{
		Body: user.LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
		},
	}, nil
}

func (h *Handler) logout(ctx context.Context, _ *logoutInput) (*struct{}, error) {
	token, ok := auth.GetToken(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.session.Revoke(ctx, token); err != nil {
		return nil, httperr.From(h.log, "revoke session", err)
	}
	return &struct{}{}, nil
}
