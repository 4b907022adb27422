package api

import (
	"net/http"

	"github.com/aypapol/panel/internal/notify"
)

func (s *Server) handleReportError(w http.ResponseWriter, r *http.Request) {
	var payload notify.ErrorPayload
	if err := decodeJSON(r, &payload); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if payload.Message == "" {
		badRequest(w, "message is required")
		return
	}

	sent := true
	if s.notifier != nil {
		if err := s.notifier.Error(r.Context(), payload); err != nil {
			s.logger.Warn("error notification failed", "error", err)
			sent = false
		}
	} else {
		sent = false
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sent": sent})
}
