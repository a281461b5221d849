package repository

import (
	"strconv"
	"sync"
	"time"
)

// IDGenerator hands out coarse millisecond timestamps as record ids.
// Values are strictly increasing within a process: a second id in the same
// millisecond is bumped past the previous one.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator returns a generator driven by the wall clock
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorWithClock returns a generator driven by now
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns the next id
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms

	return strconv.FormatInt(ms, 10)
}
