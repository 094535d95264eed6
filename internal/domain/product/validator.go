package product

import "stockkeeper/internal/domain/apperr"

// ValidatePrices проверяет соотношение цен: все неотрицательны, скидочная
// и акционная не выше базовой (если базовая задана).
func ValidatePrices(p Prices) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"reference_price", p.Reference},
		{"discount_price", p.Discount},
		{"peak_hour_price", p.PeakHour},
		{"offer_price", p.Offer},
	}
	for _, f := range fields {
		if f.value < 0 {
			return apperr.Validation(f.name, "must not be negative, got %.2f", f.value)
		}
	}

	if p.Reference > 0 {
		if p.Discount > p.Reference {
			return apperr.Validation("discount_price", "%.2f exceeds reference price %.2f", p.Discount, p.Reference)
		}
		if p.Offer > p.Reference {
			return apperr.Validation("offer_price", "%.2f exceeds reference price %.2f", p.Offer, p.Reference)
		}
	}

	return nil
}
