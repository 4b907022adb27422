package scheduler

import (
	"context"
	"time"
)

// RecoverOrphans re-registers crash watchers for any managed container
// found running at process startup, so a control-plane restart doesn't
// leave a live game container unwatched. Grounded on the session
// manager's CleanupOrphans recovery pass.
func (s *Scheduler) RecoverOrphans(ctx context.Context) error {
	infos, err := s.runtime.List(ctx, false, map[string]string{labelManaged: "true"})
	if err != nil {
		return err
	}

	for _, info := range infos {
		if !info.Running {
			continue
		}
		serverID := serverIDFromLabels(info.Labels)
		if serverID == "" {
			continue
		}
		s.logger.Info("recovered running server on startup", "server_id", serverID)
		s.registerWatcher(serverID)
	}
	return nil
}

// History returns the run ledger for a server, newest first.
func (s *Scheduler) History(ctx context.Context, serverID string) ([]historyEntry, error) {
	runs, err := s.store.Runs.History(ctx, serverID)
	if err != nil {
		return nil, err
	}

	out := make([]historyEntry, 0, len(runs))
	for _, r := range runs {
		e := historyEntry{
			ID:        r.ID,
			StartedAt: r.StartedAt,
			StoppedAt: r.StoppedAt,
		}
		if r.StopReason != nil {
			e.StopReason = string(*r.StopReason)
		}
		if r.StoppedAt != nil {
			e.DurationSeconds = *r.StoppedAt - r.StartedAt
		} else {
			e.DurationSeconds = time.Now().Unix() - r.StartedAt
		}
		out = append(out, e)
	}
	return out, nil
}

type historyEntry struct {
	ID              int64  `json:"id"`
	StartedAt       int64  `json:"started_at"`
	StoppedAt       *int64 `json:"stopped_at"`
	DurationSeconds int64  `json:"duration_seconds"`
	StopReason      string `json:"stop_reason,omitempty"`
}
