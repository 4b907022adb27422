package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aypapol/panel/internal/telemetry"
)

// sseHeaders sets the event-stream response headers a browser EventSource
// client requires.
func sseHeaders(w http.ResponseWriter) http.Flusher {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	if flusher != nil {
		flusher.Flush()
	}
	return true
}

func (s *Server) handleServerLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	srv, err := s.store.Servers.GetByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	name := s.scheduler.ContainerName(srv.ID)

	info, err := s.runtime.Inspect(ctx, name)
	hasTTY := err == nil && info.HasTTY

	lines, err := telemetry.StreamLogLines(ctx, s.runtime, name, hasTTY, "200")
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

func (s *Server) handleServerStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	srv, err := s.store.Servers.GetByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	name := s.scheduler.ContainerName(srv.ID)

	samples, err := telemetry.StreamStats(ctx, s.runtime, name)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher := sseHeaders(w)
	for sample := range samples {
		if !writeSSE(w, flusher, sample) {
			return
		}
	}
}

func (s *Server) handleHostStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	samples := telemetry.StreamHostStats(ctx, s.dataDir())

	flusher := sseHeaders(w)
	for sample := range samples {
		if !writeSSE(w, flusher, sample) {
			return
		}
	}
}

func (s *Server) handleAllServiceStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	servers, err := s.store.Servers.GetAll(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	producers := make(map[string]<-chan telemetry.Sample)
	for _, srv := range servers {
		name := s.scheduler.ContainerName(srv.ID)
		if _, err := s.runtime.Inspect(ctx, name); err != nil {
			continue // no such container; no stats stream to open
		}
		ch, err := telemetry.StreamStats(ctx, s.runtime, name)
		if err != nil {
			continue
		}
		producers[srv.Name] = ch
	}

	merged := telemetry.FanInServiceStats(ctx, producers)

	flusher := sseHeaders(w)
	for record := range merged {
		if !writeSSE(w, flusher, record) {
			return
		}
	}
}
