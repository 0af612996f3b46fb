package worker

import (
	"sort"
	"sync"
	"time"

	"github.com/signal-miniapp/internal/models"
	"github.com/signal-miniapp/internal/storage"
)

// Countdown is the time left on one signal at the board's last tick
type Countdown struct {
	SignalID  int64         `json:"signal_id"`
	Name      string        `json:"name"`
	Remaining time.Duration `json:"-"`
	Hours     int           `json:"hours"`
	Minutes   int           `json:"minutes"`
	Expired   bool          `json:"expired"`
}

func newCountdown(s models.Signal, now time.Time) Countdown {
	remaining := s.Remaining(now)
	return Countdown{
		SignalID:  s.ID,
		Name:      s.Name,
		Remaining: remaining,
		Hours:     int(remaining / time.Hour),
		Minutes:   int((remaining % time.Hour) / time.Minute),
		Expired:   remaining == 0,
	}
}

// BoardSnapshot is the countdown view of one session
type BoardSnapshot struct {
	ComputedAt time.Time   `json:"computed_at"`
	Signals    []Countdown `json:"signals"`
}

// CacheSource lists the session caches the board reads from
type CacheSource interface {
	Sessions() []string
	Lookup(sessionID string) (*storage.QueryCache, bool)
}

// CountdownBoard keeps the latest countdowns per session. It only reads
// signals already cached for a session and never fetches them.
type CountdownBoard struct {
	mu     sync.RWMutex
	boards map[string]BoardSnapshot
	now    func() time.Time
}

// NewCountdownBoard creates an empty board
func NewCountdownBoard() *CountdownBoard {
	return &CountdownBoard{
		boards: make(map[string]BoardSnapshot),
		now:    time.Now,
	}
}

// Refresh recomputes the countdowns of every session that has active
// signals cached, and forgets sessions whose cache is gone. It returns the
// number of sessions updated.
func (b *CountdownBoard) Refresh(source CacheSource) int {
	now := b.now()
	next := make(map[string]BoardSnapshot)

	for _, id := range source.Sessions() {
		cache, ok := source.Lookup(id)
		if !ok {
			continue
		}
		value, ok := cache.Peek(storage.KeyActiveSignals)
		if !ok {
			continue
		}
		signals, ok := value.([]models.Signal)
		if !ok {
			continue
		}
		next[id] = Compute(signals, now)
	}

	b.mu.Lock()
	b.boards = next
	b.mu.Unlock()
	return len(next)
}

// Compute derives a snapshot from signals at now, soonest expiry first
func Compute(signals []models.Signal, now time.Time) BoardSnapshot {
	out := make([]Countdown, 0, len(signals))
	for _, s := range signals {
		out = append(out, newCountdown(s, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Remaining < out[j].Remaining
	})
	return BoardSnapshot{ComputedAt: now, Signals: out}
}

// Snapshot returns the last computed countdowns of sessionID
func (b *CountdownBoard) Snapshot(sessionID string) (BoardSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap, ok := b.boards[sessionID]
	return snap, ok
}

// Forget removes sessionID from the board
func (b *CountdownBoard) Forget(sessionID string) {
	b.mu.Lock()
	delete(b.boards, sessionID)
	b.mu.Unlock()
}
