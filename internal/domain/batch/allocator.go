package batch

import (
	"sort"
)

type UnitPrices struct {
	Unit     float64
	Discount float64
}

// Draft - будущая строка продажи. BatchID == nil означает продажу без партии.
type Draft struct {
	ProductID     int64
	BatchID       *int64
	BatchNumber   string
	Qty           int
	UnitPrice     float64
	DiscountPrice float64
}

type Allocation struct {
	Drafts []Draft
	// Touched - партии, из которых что-то списано, с новыми остатками, в порядке FEFO.
	Touched []Batch
	// Shortfall - количество, выданное сверх остатков партий (строка без партии).
	Shortfall int
}

// Allocate распределяет requested по партиям товара в порядке FEFO
// (раньше истекающие первыми, при равенстве - по ID). Вход не изменяется.
//
// Остаток, не покрытый партиями, выдается одной строкой без партии;
// решение, допустимо ли это, принимает вызывающий код.
func Allocate(productID int64, requested int, prices UnitPrices, batches []Batch) Allocation {
	var alloc Allocation
	if requested <= 0 {
		return alloc
	}

	candidates := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.ProductID == productID && b.Available > 0 {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].ExpiryDate.Equal(candidates[j].ExpiryDate) {
			return candidates[i].ExpiryDate.Before(candidates[j].ExpiryDate)
		}
		return candidates[i].ID < candidates[j].ID
	})

	remaining := requested
	for _, b := range candidates {
		if remaining == 0 {
			break
		}

		take := min(remaining, b.Available)
		id := b.ID
		alloc.Drafts = append(alloc.Drafts, Draft{
			ProductID:     productID,
			BatchID:       &id,
			BatchNumber:   b.BatchNumber,
			Qty:           take,
			UnitPrice:     prices.Unit,
			DiscountPrice: prices.Discount,
		})

		b.Available -= take
		switch {
		case b.Available == 0:
			b.Status = StatusUsed
		case b.Status == StatusBoxed || b.Status == "":
			b.Status = StatusOpen
		}
		alloc.Touched = append(alloc.Touched, b)

		remaining -= take
	}

	if remaining > 0 {
		alloc.Shortfall = remaining
		alloc.Drafts = append(alloc.Drafts, Draft{
			ProductID:     productID,
			Qty:           remaining,
			UnitPrice:     prices.Unit,
			DiscountPrice: prices.Discount,
		})
	}

	return alloc
}

// Total - сумма количеств по строкам; всегда равна запрошенному.
func (a Allocation) Total() int {
	n := 0
	for _, d := range a.Drafts {
		n += d.Qty
	}
	return n
}
