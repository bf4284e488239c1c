package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartExpiredSnapshotCleaner deletes snapshots whose token expired, every
// interval, until ctx is done. Snapshots without an expiry are kept.
func StartExpiredSnapshotCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.ExecContext(ctx, `
                    DELETE FROM state_snapshots
                     WHERE token_expire > 0
                       AND token_expire < $1
                `, time.Now().Unix())
				if err != nil {
					log.Error("failed to clean expired snapshots", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned expired snapshots", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
