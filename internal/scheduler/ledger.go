package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// Check kinds used in ledger keys.
const (
	KindDue      = "due"
	KindReminder = "reminder"
	KindLate     = "late"
)

// Ledger remembers which notifications already fired on a logical day.
// It lives in memory only; a restart forgets it.
type Ledger struct {
	mu    sync.Mutex
	fired map[string]time.Time
}

func NewLedger() *Ledger {
	return &Ledger{fired: make(map[string]time.Time)}
}

// Key builds "{kind}-{taskID}-{day}", e.g. "due-42-2024-03-01".
func Key(kind string, taskID int, day string) string {
	return fmt.Sprintf("%s-%d-%s", kind, taskID, day)
}

func (l *Ledger) HasFired(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.fired[key]
	return ok
}

func (l *Ledger) MarkFired(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired[key] = time.Now()
}

// ResetAll forgets every key at once.
func (l *Ledger) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired = make(map[string]time.Time)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fired)
}
