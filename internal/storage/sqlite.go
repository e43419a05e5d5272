package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const (
	upsertCollection = `INSERT INTO collections (owner_id, name, payload, revision, updated_at)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT (owner_id, name) DO UPDATE SET
    payload = excluded.payload,
    revision = collections.revision + 1,
    updated_at = excluded.updated_at
RETURNING revision`

	selectCollection = `SELECT payload, revision, updated_at FROM collections WHERE owner_id = ? AND name = ?`

	listCollections = `SELECT owner_id, name FROM collections ORDER BY owner_id, name`

	upsertProfile = `INSERT INTO profiles (user_id, payload, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    payload = excluded.payload,
    updated_at = excluded.updated_at`

	selectProfile = `SELECT payload FROM profiles WHERE user_id = ?`
)

// SQLiteRepository stores each owner's collections as JSON snapshots in SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and applies migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && !strings.HasPrefix(dbPath, ":memory:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadTransactions(ctx context.Context, owner string) ([]core.LendingRecord, error) {
	return loadCollection[core.LendingRecord](ctx, r, owner, core.Transactions)
}

func (r *SQLiteRepository) SaveTransactions(ctx context.Context, owner string, records []core.LendingRecord) error {
	return saveCollection(ctx, r, owner, core.Transactions, records)
}

func (r *SQLiteRepository) LoadExpenses(ctx context.Context, owner string) ([]core.Expense, error) {
	return loadCollection[core.Expense](ctx, r, owner, core.Expenses)
}

func (r *SQLiteRepository) SaveExpenses(ctx context.Context, owner string, records []core.Expense) error {
	return saveCollection(ctx, r, owner, core.Expenses, records)
}

func (r *SQLiteRepository) LoadInterest(ctx context.Context, owner string) ([]core.InterestRecord, error) {
	return loadCollection[core.InterestRecord](ctx, r, owner, core.Interest)
}

func (r *SQLiteRepository) SaveInterest(ctx context.Context, owner string, records []core.InterestRecord) error {
	return saveCollection(ctx, r, owner, core.Interest, records)
}

func (r *SQLiteRepository) LoadEarnings(ctx context.Context, owner string) ([]core.EarningRecord, error) {
	return loadCollection[core.EarningRecord](ctx, r, owner, core.Earnings)
}

func (r *SQLiteRepository) SaveEarnings(ctx context.Context, owner string, records []core.EarningRecord) error {
	return saveCollection(ctx, r, owner, core.Earnings, records)
}

func (r *SQLiteRepository) LoadOtherBalances(ctx context.Context, owner string) ([]core.OtherBalance, error) {
	return loadCollection[core.OtherBalance](ctx, r, owner, core.OtherBalances)
}

func (r *SQLiteRepository) SaveOtherBalances(ctx context.Context, owner string, balances []core.OtherBalance) error {
	return saveCollection(ctx, r, owner, core.OtherBalances, balances)
}

func (r *SQLiteRepository) LoadProfile(ctx context.Context, owner string) (core.Profile, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, selectProfile, owner).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, core.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("load profile: %w", err)
	}

	var p core.Profile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return core.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, upsertProfile, p.UserID, string(payload), r.now().UnixMilli()); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LoadSnapshot returns the raw stored payload for one collection.
// A missing row yields an empty snapshot with revision 0.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, owner string, name core.Collection) (Snapshot, error) {
	snap := Snapshot{Owner: owner, Name: name}

	var (
		payload   string
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, selectCollection, owner, string(name)).Scan(&payload, &snap.Revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", name, err)
	}

	snap.Payload = []byte(payload)
	snap.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return snap, nil
}

// ListSnapshots returns the key of every stored collection.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context) ([]SnapshotKey, error) {
	rows, err := r.db.QueryContext(ctx, listCollections)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var keys []SnapshotKey
	for rows.Next() {
		var owner, name string
		if err := rows.Scan(&owner, &name); err != nil {
			return nil, fmt.Errorf("scan collection key: %w", err)
		}
		keys = append(keys, SnapshotKey{Owner: owner, Name: core.Collection(name)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return keys, nil
}

func loadCollection[T any](ctx context.Context, r *SQLiteRepository, owner string, name core.Collection) ([]T, error) {
	snap, err := r.LoadSnapshot(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	records, err := DecodeCollection[T](snap.Payload)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return records, nil
}

func saveCollection[T any](ctx context.Context, r *SQLiteRepository, owner string, name core.Collection, records []T) error {
	payload, err := EncodeCollection(records)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	var revision int64
	err = r.db.QueryRowContext(ctx, upsertCollection, owner, string(name), string(payload), r.now().UnixMilli()).Scan(&revision)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	slog.DebugContext(ctx, "Collection saved to SQLite",
		"owner", owner,
		"collection", name,
		"records", len(records),
		"revision", revision)
	return nil
}
