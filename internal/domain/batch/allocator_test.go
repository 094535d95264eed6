package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func lots(available ...int) []Batch {
	out := make([]Batch, len(available))
	for i, a := range available {
		out[i] = Batch{
			ID:          int64(i + 1),
			ProductID:   10,
			BatchNumber: "LOT-" + string(rune('A'+i)),
			ExpiryDate:  day.AddDate(0, i+1, 0),
			QtyStock:    a + 5,
			Available:   a,
			Status:      StatusBoxed,
		}
	}
	return out
}

func qtys(a Allocation) []int {
	out := make([]int, len(a.Drafts))
	for i, d := range a.Drafts {
		out[i] = d.Qty
	}
	return out
}

func available(bs []Batch) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		out[i] = b.Available
	}
	return out
}

func TestAllocate_Conservation(t *testing.T) {
	alloc := Allocate(10, 6, UnitPrices{Unit: 2.5}, lots(5, 3))

	assert.Equal(t, []int{5, 1}, qtys(alloc))
	assert.Equal(t, []int{0, 2}, available(alloc.Touched))
	assert.Equal(t, 6, alloc.Total())
	assert.Zero(t, alloc.Shortfall)

	require.NotNil(t, alloc.Drafts[0].BatchID)
	assert.Equal(t, int64(1), *alloc.Drafts[0].BatchID)
	assert.Equal(t, int64(2), *alloc.Drafts[1].BatchID)
	assert.Equal(t, StatusUsed, alloc.Touched[0].Status)
	assert.Equal(t, StatusOpen, alloc.Touched[1].Status)
}

func TestAllocate_Overflow(t *testing.T) {
	alloc := Allocate(10, 10, UnitPrices{Unit: 1}, lots(5, 3))

	assert.Equal(t, []int{5, 3, 2}, qtys(alloc))
	assert.Equal(t, []int{0, 0}, available(alloc.Touched))
	assert.Equal(t, 2, alloc.Shortfall)
	assert.Nil(t, alloc.Drafts[2].BatchID)
	assert.Equal(t, 10, alloc.Total())
}

func TestAllocate_NoBatches(t *testing.T) {
	alloc := Allocate(10, 4, UnitPrices{Unit: 1}, nil)

	require.Len(t, alloc.Drafts, 1)
	assert.Equal(t, 4, alloc.Drafts[0].Qty)
	assert.Nil(t, alloc.Drafts[0].BatchID)
	assert.Empty(t, alloc.Touched)
	assert.Equal(t, 4, alloc.Shortfall)
}

func TestAllocate_FEFOOrderIgnoresInputOrder(t *testing.T) {
	bs := lots(2, 2, 2)
	// later expiry first in the input
	reversed := []Batch{bs[2], bs[0], bs[1]}
	// one empty lot and one lot of another product are ignored
	reversed = append(reversed,
		Batch{ID: 9, ProductID: 10, ExpiryDate: day, Available: 0, QtyStock: 3},
		Batch{ID: 8, ProductID: 11, ExpiryDate: day, Available: 7, QtyStock: 7},
	)

	alloc := Allocate(10, 3, UnitPrices{}, reversed)

	require.Len(t, alloc.Drafts, 2)
	assert.Equal(t, int64(1), *alloc.Drafts[0].BatchID)
	assert.Equal(t, int64(2), *alloc.Drafts[1].BatchID)
	assert.Equal(t, 2, reversed[1].Available, "input must not be mutated")
}

func TestAllocate_SameExpiryTieBreaksByID(t *testing.T) {
	bs := []Batch{
		{ID: 7, ProductID: 10, ExpiryDate: day, Available: 1, QtyStock: 1},
		{ID: 3, ProductID: 10, ExpiryDate: day, Available: 1, QtyStock: 1},
	}

	alloc := Allocate(10, 1, UnitPrices{}, bs)

	require.Len(t, alloc.Drafts, 1)
	assert.Equal(t, int64(3), *alloc.Drafts[0].BatchID)
}

func TestAllocate_NonPositiveRequest(t *testing.T) {
	assert.Empty(t, Allocate(10, 0, UnitPrices{}, lots(5)).Drafts)
}
