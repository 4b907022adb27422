package scheduler

import (
	"context"
	"time"

	"github.com/aypapol/panel/internal/model"
)

// registerWatcher cancels any prior watcher for serverID and starts a
// fresh single-shot crash watcher goroutine.
func (s *Scheduler) registerWatcher(serverID string) {
	s.cancelWatcher(serverID)
	s.clearIntentional(serverID)

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.activeWatchers[serverID] = cancel
	s.mu.Unlock()

	go s.watchCrash(ctx, serverID)
}

// cancelWatcher stops the watcher for serverID, if any, and removes it
// from the registry.
func (s *Scheduler) cancelWatcher(serverID string) {
	s.mu.Lock()
	cancel, ok := s.activeWatchers[serverID]
	if ok {
		delete(s.activeWatchers, serverID)
	}
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

// watchCrash polls the container status every 30s until it observes a
// transition to not-Running, then classifies the stop as intentional or
// crash and tears itself down. It is single-shot: it fires at most once.
func (s *Scheduler) watchCrash(ctx context.Context, serverID string) {
	ticker := time.NewTicker(crashPollInterval)
	defer ticker.Stop()

	name := s.ContainerName(serverID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := s.runtime.Inspect(ctx, name)
		if err != nil {
			// Transient runtime error: swallowed and retried next tick
			//.
			continue
		}
		if info.Running {
			continue
		}

		s.mu.Lock()
		delete(s.activeWatchers, serverID)
		wasIntentional := s.intentionalStops[serverID]
		delete(s.intentionalStops, serverID)
		s.mu.Unlock()

		if wasIntentional {
			return
		}

		s.handleCrash(serverID)
		return
	}
}

func (s *Scheduler) handleCrash(serverID string) {
	ctx := context.Background()

	if err := s.store.Runs.Stop(ctx, serverID, time.Now().Unix(), model.StopReasonCrash); err != nil {
		s.logger.Error("failed to close run after crash", "server_id", serverID, "error", err)
	}

	srv, err := s.store.Servers.GetByID(ctx, serverID)
	name := serverID
	if err == nil {
		name = srv.Name
	}

	if s.notifier != nil {
		if err := s.notifier.Crash(ctx, name); err != nil {
			s.logger.Warn("crash notification failed", "server_id", serverID, "error", err)
		}
	}
}
