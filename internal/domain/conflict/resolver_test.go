package conflict

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockkeeper/internal/domain/product"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func pair(localAt, remoteAt time.Time) (*product.Product, *product.Product) {
	local := &product.Product{ID: 1, Name: "local", Version: 4, IsDirty: true, LastModifiedAt: localAt}
	remote := &product.Product{ID: 1, Name: "remote", Version: 5, LastModifiedAt: remoteAt}
	return local, remote
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		localAt  time.Time
		remoteAt time.Time
		want     Side
	}{
		{name: "server wins regardless of time", strategy: ServerWins, localAt: base.Add(time.Hour), remoteAt: base, want: Remote},
		{name: "client wins regardless of time", strategy: ClientWins, localAt: base, remoteAt: base.Add(time.Hour), want: Local},
		{name: "latest wins remote newer", strategy: LatestWins, localAt: base, remoteAt: base.Add(time.Second), want: Remote},
		{name: "latest wins local newer", strategy: LatestWins, localAt: base.Add(time.Second), remoteAt: base, want: Local},
		{name: "latest wins tie favors local", strategy: LatestWins, localAt: base, remoteAt: base, want: Local},
		{name: "manual delegates to latest", strategy: Manual, localAt: base, remoteAt: base.Add(time.Minute), want: Remote},
		{name: "manual tie favors local", strategy: Manual, localAt: base, remoteAt: base, want: Local},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, remote := pair(tt.localAt, tt.remoteAt)
			localCopy, remoteCopy := *local, *remote

			winner, res := Resolve(local, remote, tt.strategy)

			assert.Equal(t, tt.want, res.Winner)
			if tt.want == Local {
				assert.Same(t, local, winner)
			} else {
				assert.Same(t, remote, winner)
			}
			assert.NotEmpty(t, res.Notes)
			assert.Equal(t, localCopy, *local, "inputs must not be mutated")
			assert.Equal(t, remoteCopy, *remote, "inputs must not be mutated")
		})
	}
}

func TestResolve_LatestWinsTieIsStable(t *testing.T) {
	local, remote := pair(base, base)
	for i := 0; i < 100; i++ {
		_, res := Resolve(local, remote, LatestWins)
		require.Equal(t, Local, res.Winner)
	}
}

func TestResolver_ManualCallback(t *testing.T) {
	local, remote := pair(base.Add(time.Hour), base)

	r := Resolver{Manual: func(_, _ *product.Product) (Side, error) { return Remote, nil }}
	winner, res := r.Resolve(local, remote, Manual)
	assert.Same(t, remote, winner)
	assert.Contains(t, res.Notes, "manual: remote chosen")

	failing := Resolver{Manual: func(_, _ *product.Product) (Side, error) { return Remote, errors.New("operator away") }}
	_, res = failing.Resolve(local, remote, Manual)
	assert.Equal(t, Local, res.Winner, "falls back to latest-wins")
	assert.Contains(t, res.Notes, "operator away")
}

func TestResolver_Arbiter(t *testing.T) {
	local, remote := pair(base, base.Add(time.Minute))
	var seen []Resolution

	arbiter := Resolver{}.Arbiter(LatestWins, func(_, _ *product.Product, res Resolution) {
		seen = append(seen, res)
	})

	assert.False(t, arbiter(local, remote), "remote is newer, local is not kept")
	assert.True(t, Resolver{}.Arbiter(ClientWins, nil)(local, remote))
	assert.Len(t, seen, 1)
}

func TestDetectConflicts(t *testing.T) {
	local := &product.Product{Name: "Ibuprofen", Prices: product.Prices{Reference: 5}, Stock: 10, Status: product.StatusActive}
	remote := &product.Product{Name: "Ibuprofen", Prices: product.Prices{Reference: 5.5}, Stock: 8, Status: product.StatusDeleted}

	diffs := DetectConflicts(local, remote)

	require.Len(t, diffs, 3)
	assert.Equal(t, FieldDiff{Field: "reference_price", Local: "5.00", Remote: "5.50"}, diffs[0])
	assert.Equal(t, "stock", diffs[1].Field)
	assert.Equal(t, "status", diffs[2].Field)

	assert.Empty(t, DetectConflicts(local, local))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("latest-wins")
	require.NoError(t, err)
	assert.Equal(t, LatestWins, s)

	_, err = ParseStrategy("newer")
	assert.Error(t, err)
}
