// Package httperr переводит доменные ошибки в ответы huma.
package httperr

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/session"
	"stockkeeper/internal/domain/stock"
	"stockkeeper/internal/domain/user"
)

// From возвращает ошибку huma с подходящим статусом. Неизвестные ошибки
// логируются и уходят клиенту как 500 без подробностей.
func From(log *slog.Logger, op string, err error) error {
	var verr *apperr.ValidationError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return huma.Error400BadRequest(verr.Error())
	case errors.Is(err, product.ErrNotFound), errors.Is(err, product.ErrDeleted):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, stock.ErrUnknownProduct), errors.Is(err, sale.ErrUnknownProduct):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, user.ErrInvalidAuth), errors.Is(err, session.ErrInvalidSession):
		return huma.Error401Unauthorized("invalid credentials")
	case errors.Is(err, user.ErrLoginTaken):
		return huma.Error409Conflict(err.Error())
	}

	log.Error("ошибка обработки запроса", "op", op, "error", err)
	return huma.Error500InternalServerError("internal error")
}
