// Package service restores the signed-in state from a snapshot repository
// and keeps that snapshot current as the store changes.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/repository"
	"github.com/atinyakov/appstate/internal/store"
)

// SnapshotRepository defines the persistence operations required by the
// snapshot service.
type SnapshotRepository interface {
	// Save inserts or replaces the snapshot of snap.SessionID.
	Save(ctx context.Context, snap models.Snapshot) error
	// Load returns repository.ErrSnapshotNotFound when nothing is stored.
	Load(ctx context.Context, sessionID string) (*models.Snapshot, error)
	// Delete removes the snapshot of sessionID.
	Delete(ctx context.Context, sessionID string) error
}

// persisted lists the mutations whose effect is part of a snapshot.
var persisted = map[models.Mutation]bool{
	models.SetToken:       true,
	models.SetTokenExpire: true,
	models.SetAccountID:   true,
	models.SetUserID:      true,
	models.SetUserInfo:    true,
}

// SnapshotService implements snapshot restore and write-back for one session.
type SnapshotService struct {
	repo      SnapshotRepository
	sessionID string
	log       *zap.Logger
}

// NewSnapshotService constructs a SnapshotService for sessionID.
func NewSnapshotService(repo SnapshotRepository, sessionID string, log *zap.Logger) *SnapshotService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotService{repo: repo, sessionID: sessionID, log: log}
}

// SessionID returns the session the service reads and writes.
func (s *SnapshotService) SessionID() string {
	return s.sessionID
}

// Restore loads the session snapshot into st through regular commits and the
// updateAuthData action. It reports whether a snapshot was found.
func (s *SnapshotService) Restore(ctx context.Context, st *store.Store) (bool, error) {
	snap, err := s.repo.Load(ctx, s.sessionID)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	commits := []struct {
		name    models.Mutation
		payload any
	}{
		{models.SetAccountID, snap.User.AccountID},
		{models.SetUserID, snap.User.UserID},
		{models.SetUserInfo, snap.User.Info},
	}
	for _, c := range commits {
		if err := st.Commit(c.name, c.payload); err != nil {
			return false, fmt.Errorf("restore: %w", err)
		}
	}

	p, err := st.Dispatch(ctx, models.UpdateAuthData, models.AuthData{Token: snap.Auth.Token, Expire: snap.Auth.TokenExpire})
	if err != nil {
		return false, fmt.Errorf("restore: %w", err)
	}
	if _, err := p.Await(ctx); err != nil {
		return false, fmt.Errorf("restore: %w", err)
	}

	s.log.Info("state restored", zap.String("session", s.sessionID))
	return true, nil
}

// Attach writes a snapshot after every commit that changes auth or user state,
// until the returned func is called. An empty identity deletes the snapshot.
func (s *SnapshotService) Attach(ctx context.Context, st *store.Store) (detach func()) {
	return st.Subscribe(func(e models.CommitEvent) {
		if !persisted[e.Mutation] {
			return
		}
		if err := s.write(ctx, e.State); err != nil {
			s.log.Error("failed to persist snapshot",
				zap.String("session", s.sessionID),
				zap.String("mutation", string(e.Mutation)),
				zap.Error(err),
			)
		}
	})
}

func (s *SnapshotService) write(ctx context.Context, st models.State) error {
	if st.Auth.Token == "" && st.User.AccountID == "" && st.User.UserID == "" {
		return s.repo.Delete(ctx, s.sessionID)
	}
	return s.repo.Save(ctx, models.Snapshot{
		SessionID: s.sessionID,
		Auth:      st.Auth,
		User:      st.User,
	})
}
