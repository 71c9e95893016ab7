package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteBackend stores records as rows of the `records` table. A row is
// replaced by a single UPSERT inside a transaction, which SQLite applies
// atomically.
type SQLiteBackend struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteBackend wraps an open, migrated database handle. The backend
// owns the handle and closes it in Close.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (b *SQLiteBackend) Stat(ctx context.Context, kind Kind, id string) (RecordInfo, error) {
	query := "SELECT length(data), updated_at FROM records WHERE kind = ? AND id = ?"
	info := RecordInfo{Kind: kind, ID: id}
	err := b.db.QueryRowContext(ctx, query, string(kind), id).Scan(&info.Size, &info.ModTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RecordInfo{}, ErrRecordNotFound
		}
		return RecordInfo{}, err
	}
	return info, nil
}

func (b *SQLiteBackend) Read(ctx context.Context, kind Kind, id string) ([]byte, RecordInfo, error) {
	query := "SELECT data, updated_at FROM records WHERE kind = ? AND id = ?"
	var data []byte
	info := RecordInfo{Kind: kind, ID: id}
	err := b.db.QueryRowContext(ctx, query, string(kind), id).Scan(&data, &info.ModTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, RecordInfo{}, ErrRecordNotFound
		}
		return nil, RecordInfo{}, err
	}
	info.Size = int64(len(data))
	return data, info, nil
}

func (b *SQLiteBackend) Write(ctx context.Context, kind Kind, id string, data []byte) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// Ensure transaction is rolled back on error
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO records (kind, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, string(kind), id, data, b.now()); err != nil {
		return fmt.Errorf("could not upsert record: %w", err)
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Create(ctx context.Context, kind Kind, id string, data []byte) error {
	query := "INSERT INTO records (kind, id, data, updated_at) VALUES (?, ?, ?, ?)"
	_, err := b.db.ExecContext(ctx, query, string(kind), id, data, b.now())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrRecordExists
		}
		return fmt.Errorf("could not insert record: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) List(ctx context.Context, kind Kind) ([]RecordInfo, error) {
	query := "SELECT id, length(data), updated_at FROM records WHERE kind = ? ORDER BY id"
	rows, err := b.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []RecordInfo
	for rows.Next() {
		info := RecordInfo{Kind: kind}
		if err := rows.Scan(&info.ID, &info.Size, &info.ModTime); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
