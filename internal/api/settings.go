package api

import (
	"net/http"

	"github.com/aypapol/panel/internal/model"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.Settings.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	for key, value := range body {
		if !recognizedSettingKeys[key] {
			continue // PUT filters against an allow-list, dropping unknown keys silently
		}
		if err := s.store.Settings.Set(ctx, key, value); err != nil {
			writeError(w, err)
			return
		}
	}
	writeOK(w)
}

var recognizedSettingKeys = map[string]bool{
	model.SettingHostDomain:              true,
	model.SettingGameMemoryLimitGB:       true,
	model.SettingGameCPULimit:            true,
	model.SettingAutoStopHours:           true,
	model.SettingMaxBackupsPerServer:     true,
	model.SettingAutoBackupIntervalHours: true,
}
