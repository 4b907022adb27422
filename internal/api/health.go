package api

import (
	"net/http"
	"time"

	"github.com/aypapol/panel/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHealthStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := "operational"
	var activeGame *string

	servers, err := s.store.Servers.GetAll(ctx)
	if err != nil {
		status = "degraded"
	} else {
		for _, srv := range servers {
			st, err := s.scheduler.Status(ctx, srv.ID)
			if err != nil {
				continue
			}
			if st == model.StatusRunning {
				name := srv.Name
				activeGame = &name
				break
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        status,
		"backendUptime": int64(time.Since(s.startedAt).Seconds()),
		"services":      []string{"api", "scheduler", "telemetry", "backup"},
		"activeGame":    activeGame,
		"timestamp":     time.Now().Unix(),
	})
}
