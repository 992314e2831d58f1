package admission

import (
	"sync/atomic"
	"time"
)

// IDGenerator hands out time-derived message ids in milliseconds. Ids are
// strictly increasing even when many submissions land in the same
// millisecond or the clock steps backwards.
type IDGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next() int64 {
	for {
		last := g.last.Load()
		next := g.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if g.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
