// Package store owns all mutable supply state. Mutation goes through a
// narrow interface with single-writer-per-field discipline: the supply task
// writes booked/reservation/attempts, the identity guard writes active, and
// nothing else writes anything.
package store

import (
	"context"
	"errors"

	"github.com/example/supplybot/internal/domain/booking"
)

var ErrNotFound = errors.New("store: not found")

// Store is the engine's view of supply state.
type Store interface {
	// Accounts returns every configured account with its supplies.
	Accounts(ctx context.Context) ([]booking.Account, error)
	// ActiveSupplies returns the account's currently active, unbooked supplies.
	ActiveSupplies(ctx context.Context, accountID string) ([]booking.Supply, error)
	// RecordAttempt increments the supply's attempt counter.
	RecordAttempt(ctx context.Context, accountID, preorderID string) error
	// MarkBooked records the reservation id and flips booked. The invariant
	// "reservation id non-empty iff booked" is enforced here.
	MarkBooked(ctx context.Context, accountID, preorderID, reservationID string) error
	// Deactivate stops scheduling one supply.
	Deactivate(ctx context.Context, accountID, preorderID string) error
	// DeactivateAll stops scheduling every supply of the account.
	DeactivateAll(ctx context.Context, accountID string) error
}
