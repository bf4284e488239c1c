// Package repository provides persistence implementations for state
// snapshots using PostgreSQL or Redis.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atinyakov/appstate/internal/models"
)

// ErrSnapshotNotFound is returned by Load when no snapshot exists for a session.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// PostgresSnapshotRepository stores snapshots in the state_snapshots table.
type PostgresSnapshotRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresSnapshotRepository creates a repository over db.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{DB: db}
}

// Save inserts or replaces the snapshot for snap.SessionID.
func (r *PostgresSnapshotRepository) Save(ctx context.Context, snap models.Snapshot) error {
	info, err := json.Marshal(snap.User.Info)
	if err != nil {
		return fmt.Errorf("marshal info: %w", err)
	}
	if snap.User.Info == nil {
		info = []byte("{}")
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO state_snapshots (session_id, token, token_expire, account_id, user_id, info, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (session_id) DO UPDATE SET
			token = EXCLUDED.token,
			token_expire = EXCLUDED.token_expire,
			account_id = EXCLUDED.account_id,
			user_id = EXCLUDED.user_id,
			info = EXCLUDED.info,
			updated_at = now()
	`, snap.SessionID, snap.Auth.Token, snap.Auth.TokenExpire, snap.User.AccountID, snap.User.UserID, info)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot for sessionID or ErrSnapshotNotFound.
func (r *PostgresSnapshotRepository) Load(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	snap := models.Snapshot{SessionID: sessionID}
	var info []byte
	err := r.DB.QueryRowContext(ctx, `
		SELECT token, token_expire, account_id, user_id, info FROM state_snapshots WHERE session_id = $1
	`, sessionID).Scan(&snap.Auth.Token, &snap.Auth.TokenExpire, &snap.User.AccountID, &snap.User.UserID, &info)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap.User.Info = map[string]any{}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &snap.User.Info); err != nil {
			return nil, fmt.Errorf("unmarshal info: %w", err)
		}
	}
	return &snap, nil
}

// Delete removes the snapshot for sessionID. Deleting a missing snapshot is not an error.
func (r *PostgresSnapshotRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM state_snapshots WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
