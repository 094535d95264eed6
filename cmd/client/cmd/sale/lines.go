package sale

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/sale"
)

type productGetter interface {
	Get(ctx context.Context, id int64) (*product.Product, error)
}

// parseLine разбирает позицию вида product_id:qty[:unit_price[:discount_price]].
// Цены, не указанные явно, берутся из карточки товара.
func parseLine(ctx context.Context, products productGetter, raw string) (sale.LineItem, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 4 {
		return sale.LineItem{}, fmt.Errorf("позиция %q: ожидается product_id:qty[:цена[:цена_со_скидкой]]", raw)
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return sale.LineItem{}, fmt.Errorf("позиция %q: неверный ID товара", raw)
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil {
		return sale.LineItem{}, fmt.Errorf("позиция %q: неверное количество", raw)
	}

	line := sale.LineItem{ProductID: id, Qty: qty}

	if len(parts) >= 3 {
		if line.UnitPrice, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return sale.LineItem{}, fmt.Errorf("позиция %q: неверная цена", raw)
		}
		line.DiscountPrice = line.UnitPrice
		if len(parts) == 4 {
			if line.DiscountPrice, err = strconv.ParseFloat(parts[3], 64); err != nil {
				return sale.LineItem{}, fmt.Errorf("позиция %q: неверная цена со скидкой", raw)
			}
		}
		return line, nil
	}

	p, err := products.Get(ctx, id)
	if err != nil {
		return sale.LineItem{}, fmt.Errorf("товар %d: %w", id, err)
	}
	line.UnitPrice = p.Prices.Reference
	line.DiscountPrice = p.Prices.Reference
	if p.Prices.Discount > 0 && p.Prices.Discount < p.Prices.Reference {
		line.DiscountPrice = p.Prices.Discount
	}
	return line, nil
}

// totals: Total по базовой цене, DiscountTotal - сумма скидок.
func totals(lines []sale.LineItem) sale.Totals {
	var t sale.Totals
	for _, l := range lines {
		t.Total += float64(l.Qty) * l.UnitPrice
		t.DiscountTotal += float64(l.Qty) * (l.UnitPrice - l.DiscountPrice)
	}
	t.Total = round2(t.Total)
	t.DiscountTotal = round2(t.DiscountTotal)
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
