package api

import (
	"net/http"

	"github.com/aypapol/panel/internal/model"
)

func (s *Server) handleGetBotSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.BotSettings.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

var recognizedBotSettingKeys = map[string]bool{
	model.BotSettingAllowedChannelID: true,
	model.BotSettingErrorsChannelID:  true,
	model.BotSettingCrashesChannelID: true,
	model.BotSettingLogsChannelID:    true,
}

func (s *Server) handlePutBotSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	for key, value := range body {
		if !recognizedBotSettingKeys[key] {
			continue
		}
		if err := s.store.BotSettings.Set(ctx, key, value); err != nil {
			writeError(w, err)
			return
		}
	}
	writeOK(w)
}

// handleBotChannels reports the channel ids currently configured, so the
// Discord bot front-end can reconcile without needing write access to
// the settings bag itself.
func (s *Server) handleBotChannels(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.BotSettings.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"allowed_channel_id": all[model.BotSettingAllowedChannelID],
		"errors_channel_id":  all[model.BotSettingErrorsChannelID],
		"crashes_channel_id": all[model.BotSettingCrashesChannelID],
		"logs_channel_id":    all[model.BotSettingLogsChannelID],
	})
}
