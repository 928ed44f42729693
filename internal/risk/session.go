package risk

import (
	"fmt"
	"sync"

	"github.com/galebot/galebot/internal/domain"
)

// BankrollSession tracks a bankroll across sequential sizings and
// settlements. Safe for concurrent use; each mutation holds the lock for the
// whole read-modify-write so interleaved sizings always see a consistent
// balance.
type BankrollSession struct {
	mu      sync.Mutex
	balance float64
	start   float64
}

// NewBankrollSession starts a session at the given bankroll.
func NewBankrollSession(start float64) (*BankrollSession, error) {
	if start <= 0 {
		return nil, fmt.Errorf("risk: session start %.2f: %w", start, domain.ErrZeroBankroll)
	}
	return &BankrollSession{balance: start, start: start}, nil
}

// Balance returns the current bankroll.
func (s *BankrollSession) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Starting returns the bankroll the session opened with.
func (s *BankrollSession) Starting() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

// Settle applies a realized profit or loss and returns the new balance.
func (s *BankrollSession) Settle(pnl float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance += pnl
	return s.balance
}

// Size runs the engine against the current balance under the session lock.
func (s *BankrollSession) Size(eng *Engine, sig domain.Signal) (domain.PaperOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return eng.Size(sig, s.balance)
}
