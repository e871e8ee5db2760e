// Package repository persists credentials and dances. Every dance query is
// scoped to its owner; a dance owned by someone else is reported as not found.
package repository

import (
	"context"
	"errors"

	"choreo-backend/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrConflict      = errors.New("concurrent modification")
)

// maxUpdateAttempts bounds the optimistic retry loop in Update.
const maxUpdateAttempts = 5

// CredentialRepository stores users keyed by username.
type CredentialRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

// Mutator edits a loaded dance in place. Returning an error aborts the update.
type Mutator func(d *model.Dance) error

// DanceRepository stores dances.
type DanceRepository interface {
	// Insert assigns ID and timestamps and stores the dance under d.UserID.
	Insert(ctx context.Context, d *model.Dance) error
	ListByOwner(ctx context.Context, owner string) ([]model.Dance, error)
	FindOwned(ctx context.Context, owner, id string) (*model.Dance, error)
	// Update loads the owned dance, applies fn, and writes it back only if
	// no other write happened in between. It retries on contention and
	// returns ErrConflict once attempts run out.
	Update(ctx context.Context, owner, id string, fn Mutator) (*model.Dance, error)
	Delete(ctx context.Context, owner, id string) error
	// All streams every dance regardless of owner. Used by maintenance tools.
	All(ctx context.Context, fn func(d *model.Dance) error) error
}

// errStale signals a lost compare-and-swap inside Update.
var errStale = errors.New("stale revision")

// retryUpdate runs attempt until it stops reporting a stale write.
func retryUpdate(ctx context.Context, attempt func() (*model.Dance, error)) (*model.Dance, error) {
	for i := 0; i < maxUpdateAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := attempt()
		if errors.Is(err, errStale) {
			continue
		}
		return d, err
	}
	return nil, ErrConflict
}
