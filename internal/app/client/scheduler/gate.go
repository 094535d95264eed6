package scheduler

import (
	"sync"
	"sync/atomic"
)

// Gate - признак "идет синхронизация". Владеет им только Scheduler.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire занимает гейт без ожидания. release идемпотентен и
// вызывается через defer, поэтому гейт освобождается и при ошибке, и при панике.
func (g *Gate) TryAcquire() (release func(), ok bool) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() { g.busy.Store(false) })
	}, true
}

func (g *Gate) Busy() bool {
	return g.busy.Load()
}
