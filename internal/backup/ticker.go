package backup

import (
	"context"
	"strconv"
	"time"

	"github.com/aypapol/panel/internal/model"
)

const tickInterval = time.Hour

// RunAutoBackupLoop checks, once an hour, whether each server is due for
// an automatic backup (auto_backup_interval_hours elapsed since its most
// recent Backup row) and creates one if so. It blocks until ctx is
// cancelled.
func (e *Engine) RunAutoBackupLoop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		e.tickOnce(ctx)
	}
}

func (e *Engine) tickOnce(ctx context.Context) {
	intervalStr, err := e.store.Settings.Get(ctx, model.SettingAutoBackupIntervalHours)
	if err != nil {
		e.logger.Error("auto-backup: failed to read interval setting", "error", err)
		return
	}
	interval, err := strconv.Atoi(intervalStr)
	if err != nil || interval <= 0 {
		return // auto-backup disabled
	}

	servers, err := e.store.Servers.GetAll(ctx)
	if err != nil {
		e.logger.Error("auto-backup: failed to list servers", "error", err)
		return
	}

	threshold := time.Duration(interval) * time.Hour
	now := time.Now()

	for _, srv := range servers {
		due, err := e.isDue(ctx, srv.ID, threshold, now)
		if err != nil {
			e.logger.Error("auto-backup: failed to check due status", "server_id", srv.ID, "error", err)
			continue
		}
		if !due {
			continue
		}

		if _, err := e.Create(ctx, srv.ID); err != nil {
			e.logger.Error("auto-backup: create failed", "server_id", srv.ID, "error", err)
		} else {
			e.logger.Info("auto-backup: created", "server_id", srv.ID)
		}
	}
}

func (e *Engine) isDue(ctx context.Context, serverID string, threshold time.Duration, now time.Time) (bool, error) {
	backups, err := e.store.Backups.List(ctx, serverID)
	if err != nil {
		return false, err
	}
	if len(backups) == 0 {
		return true, nil
	}

	var latest int64
	for _, b := range backups {
		if b.CreatedAt > latest {
			latest = b.CreatedAt
		}
	}
	return now.Sub(time.Unix(latest, 0)) >= threshold, nil
}
