package catalog

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "products-list",
		Method:      http.MethodGet,
		Path:        "/products",
		Summary:     "Товары, измененные после updated_since",
		Tags:        []string{"products"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "products-create",
		Method:        http.MethodPost,
		Path:          "/products",
		Summary:       "Создать товар",
		Tags:          []string{"products"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID:   "products-delete",
		Method:        http.MethodDelete,
		Path:          "/products/{id}",
		Summary:       "Пометить товар удаленным",
		Tags:          []string{"products"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) priceOp() huma.Operation {
	return huma.Operation{
		OperationID: "products-price",
		Method:      http.MethodPost,
		Path:        "/products/{id}/price",
		Summary:     "Обновить цены товара",
		Tags:        []string{"products"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) addStockOp() huma.Operation {
	return huma.Operation{
		OperationID: "stock-add",
		Method:      http.MethodPost,
		Path:        "/stock/add",
		Summary:     "Принять поступление партии",
		Tags:        []string{"stock"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) createSaleOp() huma.Operation {
	return huma.Operation{
		OperationID: "sales-create",
		Method:      http.MethodPost,
		Path:        "/sales",
		Summary:     "Принять продажу",
		Tags:        []string{"sales"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}
