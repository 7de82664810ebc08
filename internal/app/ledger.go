package app

import (
	"sync"

	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultBalance uint64 = 1000

// Ledger keeps one balance per user id, independent of connections.
// It has its own lock so purchases never contend with presence updates.
type Ledger struct {
	mu       sync.Mutex
	initial  uint64
	balances map[domain.UserID]uint64
}

func NewLedger(initial uint64) *Ledger {
	return &Ledger{
		initial:  initial,
		balances: make(map[domain.UserID]uint64),
	}
}

// GetOrInit returns the balance, creating it with the initial amount.
func (l *Ledger) GetOrInit(uid domain.UserID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getOrInitLocked(uid)
}

// Balance reports the balance without creating one.
func (l *Ledger) Balance(uid domain.UserID) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[uid]
	return b, ok
}

// TryDebit subtracts amount if the balance covers it. The check and the
// write happen under one lock.
func (l *Ledger) TryDebit(uid domain.UserID, amount uint64) (bool, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.getOrInitLocked(uid)
	if b < amount {
		log.Debug().Str("module", "app.ledger").Str("user", string(uid)).Uint64("balance", b).Uint64("amount", amount).Msg("insufficient balance")
		return false, b
	}
	b -= amount
	l.balances[uid] = b
	log.Info().Str("module", "app.ledger").Str("user", string(uid)).Uint64("amount", amount).Uint64("balance", b).Msg("debited")
	return true, b
}

func (l *Ledger) getOrInitLocked(uid domain.UserID) uint64 {
	if b, ok := l.balances[uid]; ok {
		return b
	}
	l.balances[uid] = l.initial
	log.Info().Str("module", "app.ledger").Str("user", string(uid)).Uint64("balance", l.initial).Msg("created balance")
	return l.initial
}
