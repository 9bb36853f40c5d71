package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/supplybot/internal/domain/booking"
)

// Memory is the config-seeded in-memory store used when no database is
// configured. Bookings recorded here do not survive a restart; the portal
// itself remains the durable record in that mode.
type Memory struct {
	mu       sync.RWMutex
	accounts []booking.Account
}

// NewMemory seeds the store from the supplies file contents.
func NewMemory(accounts []booking.Account) *Memory {
	cp := make([]booking.Account, len(accounts))
	copy(cp, accounts)
	for i := range cp {
		cp[i].Supplies = append([]booking.Supply(nil), accounts[i].Supplies...)
	}
	return &Memory{accounts: cp}
}

func (m *Memory) Accounts(context.Context) ([]booking.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.Account, len(m.accounts))
	copy(out, m.accounts)
	for i := range out {
		out[i].Supplies = append([]booking.Supply(nil), m.accounts[i].Supplies...)
	}
	return out, nil
}

func (m *Memory) ActiveSupplies(_ context.Context, accountID string) ([]booking.Supply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct := m.find(accountID)
	if acct == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	var out []booking.Supply
	for _, s := range acct.Supplies {
		if s.Status.Active && !s.Status.Booked {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) RecordAttempt(_ context.Context, accountID, preorderID string) error {
	return m.mutate(accountID, preorderID, func(s *booking.Supply) {
		s.Status.Attempts++
	})
}

func (m *Memory) MarkBooked(_ context.Context, accountID, preorderID, reservationID string) error {
	if reservationID == "" {
		return fmt.Errorf("empty reservation id for supply %s", preorderID)
	}
	return m.mutate(accountID, preorderID, func(s *booking.Supply) {
		s.Status.Booked = true
		s.Status.ReservationID = reservationID
	})
}

func (m *Memory) Deactivate(_ context.Context, accountID, preorderID string) error {
	return m.mutate(accountID, preorderID, func(s *booking.Supply) {
		s.Status.Active = false
	})
}

func (m *Memory) DeactivateAll(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := m.find(accountID)
	if acct == nil {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	for i := range acct.Supplies {
		acct.Supplies[i].Status.Active = false
	}
	return nil
}

func (m *Memory) find(accountID string) *booking.Account {
	for i := range m.accounts {
		if m.accounts[i].ID == accountID {
			return &m.accounts[i]
		}
	}
	return nil
}

func (m *Memory) mutate(accountID, preorderID string, fn func(*booking.Supply)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := m.find(accountID)
	if acct == nil {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	for i := range acct.Supplies {
		if acct.Supplies[i].PreorderID == preorderID {
			fn(&acct.Supplies[i])
			return nil
		}
	}
	return fmt.Errorf("supply %s: %w", preorderID, ErrNotFound)
}
