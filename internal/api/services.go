package api

import (
	"net/http"

	"github.com/aypapol/panel/internal/telemetry"
)

// handleServiceRestart restarts an orchestration-managed infrastructure
// container by name (not a managed game slot, so it bypasses the
// Scheduler's exclusivity policy entirely).
func (s *Server) handleServiceRestart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.runtime.Restart(r.Context(), name, 10); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleServiceLogs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := r.Context()

	info, err := s.runtime.Inspect(ctx, name)
	if err != nil {
		writeError(w, err)
		return
	}

	lines, err := telemetry.StreamLogLines(ctx, s.runtime, name, info.HasTTY, "200")
	if err != nil {
		writeError(w, err)
		return
	}

	flusher := sseHeaders(w)
	for line := range lines {
		if !writeSSE(w, flusher, map[string]string{"line": line}) {
			return
		}
	}
}
