package arena

import (
	"sync"
	"time"
)

// EpochSource supplies the current epoch. Match logic never reads a clock.
type EpochSource interface {
	Now() uint64
}

// WallEpochs counts whole epochs of Length elapsed since Origin. Instants
// before Origin are epoch 0.
type WallEpochs struct {
	Origin time.Time
	Length time.Duration
	Clock  func() time.Time
}

func (w WallEpochs) Now() uint64 {
	clock := w.Clock
	if clock == nil {
		clock = time.Now
	}
	if w.Length <= 0 {
		return 0
	}
	elapsed := clock().Sub(w.Origin)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / w.Length)
}

// ManualEpochs is advanced explicitly, for tests and replays.
type ManualEpochs struct {
	mu  sync.Mutex
	now uint64
}

func NewManualEpochs(start uint64) *ManualEpochs { return &ManualEpochs{now: start} }

func (m *ManualEpochs) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualEpochs) Set(n uint64) {
	m.mu.Lock()
	m.now = n
	m.mu.Unlock()
}

func (m *ManualEpochs) Advance(d uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
	return m.now
}
