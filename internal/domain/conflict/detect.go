package conflict

import (
	"fmt"

	"stockkeeper/internal/domain/product"
)

type FieldDiff struct {
	Field  string
	Local  string
	Remote string
}

func (d FieldDiff) String() string {
	return fmt.Sprintf("%s: local=%s remote=%s", d.Field, d.Local, d.Remote)
}

// DetectConflicts перечисляет расхождения в бизнес-значимых полях, не выбирая победителя.
func DetectConflicts(local, remote *product.Product) []FieldDiff {
	var diffs []FieldDiff

	if local.Name != remote.Name {
		diffs = append(diffs, FieldDiff{Field: "name", Local: local.Name, Remote: remote.Name})
	}
	if local.Prices.Reference != remote.Prices.Reference {
		diffs = append(diffs, FieldDiff{
			Field:  "reference_price",
			Local:  formatPrice(local.Prices.Reference),
			Remote: formatPrice(remote.Prices.Reference),
		})
	}
	if local.Stock != remote.Stock {
		diffs = append(diffs, FieldDiff{
			Field:  "stock",
			Local:  fmt.Sprint(local.Stock),
			Remote: fmt.Sprint(remote.Stock),
		})
	}
	if local.Status != remote.Status {
		diffs = append(diffs, FieldDiff{Field: "status", Local: string(local.Status), Remote: string(remote.Status)})
	}

	return diffs
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
