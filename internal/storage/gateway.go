package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Gateway loads and saves whole collection snapshots for one owner.
// Load returns an empty collection, not an error, when nothing is stored yet.
// Save replaces the stored snapshot atomically.
type Gateway interface {
	LoadTransactions(ctx context.Context, owner string) ([]core.LendingRecord, error)
	SaveTransactions(ctx context.Context, owner string, records []core.LendingRecord) error
	LoadExpenses(ctx context.Context, owner string) ([]core.Expense, error)
	SaveExpenses(ctx context.Context, owner string, records []core.Expense) error
	LoadInterest(ctx context.Context, owner string) ([]core.InterestRecord, error)
	SaveInterest(ctx context.Context, owner string, records []core.InterestRecord) error
	LoadEarnings(ctx context.Context, owner string) ([]core.EarningRecord, error)
	SaveEarnings(ctx context.Context, owner string, records []core.EarningRecord) error
	LoadOtherBalances(ctx context.Context, owner string) ([]core.OtherBalance, error)
	SaveOtherBalances(ctx context.Context, owner string, balances []core.OtherBalance) error

	// LoadProfile returns core.ErrNotFound when the owner has no profile.
	LoadProfile(ctx context.Context, owner string) (core.Profile, error)
	SaveProfile(ctx context.Context, p core.Profile) error

	Ping(ctx context.Context) error
	Close() error
}

// Snapshot is one stored collection payload.
type Snapshot struct {
	Owner     string
	Name      core.Collection
	Payload   []byte
	Revision  int64
	UpdatedAt time.Time
}

// SnapshotKey identifies a stored snapshot.
type SnapshotKey struct {
	Owner string
	Name  core.Collection
}

// EncodeCollection renders records as the stored JSON payload.
func EncodeCollection[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return b, nil
}

// DecodeCollection parses a stored payload. An empty payload is an empty collection.
func DecodeCollection[T any](payload []byte) ([]T, error) {
	out := []T{}
	if len(payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
