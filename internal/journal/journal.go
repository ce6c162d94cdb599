/*
Package journal
File: journal.go
Description:
    The player-facing message log. Every purchase, conversion, unlock, synthesis,
    and failed purchase leaves one timestamped line, newest first.
    Ticks are not journaled.
*/

package journal

import (
	"sync"
	"time"

	"github.com/everforgeworks/protocell/internal/game"
)

// Level selects how a renderer highlights an entry.
type Level string

const (
	LevelNormal  Level = "normal"
	LevelNew     Level = "new"     // Something was revealed
	LevelWarning Level = "warning" // The action failed
)

type Entry struct {
	Time    time.Time   `json:"time"`
	Reason  game.Reason `json:"reason"`
	Level   Level       `json:"level"`
	Message string      `json:"message"`
}

// Journal is a bounded log. It is read by HTTP handlers outside the engine lock,
// so it carries its own.
type Journal struct {
	mu      sync.RWMutex
	entries []Entry // Oldest first
	limit   int
	clock   game.Clock
}

func New(limit int, clock game.Clock) *Journal {
	if limit <= 0 {
		limit = 50
	}
	return &Journal{limit: limit, clock: clock}
}

// OnStateChanged implements game.Observer.
func (j *Journal) OnStateChanged(n game.Notification) {
	if n.Reason == game.ReasonTick || n.Message == "" {
		return
	}

	level := LevelNormal
	switch n.Reason {
	case game.ReasonUnlock:
		level = LevelNew
	case game.ReasonInsufficientFunds:
		level = LevelWarning
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, Entry{
		Time:    j.clock.Now(),
		Reason:  n.Reason,
		Level:   level,
		Message: n.Message,
	})
	if over := len(j.entries) - j.limit; over > 0 {
		j.entries = append(j.entries[:0], j.entries[over:]...)
	}
}

// Entries returns a copy, newest first.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Entry, len(j.entries))
	for i, e := range j.entries {
		out[len(out)-1-i] = e
	}
	return out
}
