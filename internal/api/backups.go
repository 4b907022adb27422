package api

import (
	"net/http"
	"strconv"

	"github.com/aypapol/panel/internal/errs"
)

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.store.Backups.List(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	b, err := s.backups.Create(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	bid, err := strconv.ParseInt(r.PathValue("bid"), 10, 64)
	if err != nil {
		badRequest(w, "invalid backup id")
		return
	}
	if err := s.backups.Delete(r.Context(), bid); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	bid, err := strconv.ParseInt(r.PathValue("bid"), 10, 64)
	if err != nil {
		badRequest(w, "invalid backup id")
		return
	}
	if err := s.backups.Restore(r.Context(), bid); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleDownloadBackup(w http.ResponseWriter, r *http.Request) {
	bid, err := strconv.ParseInt(r.PathValue("bid"), 10, 64)
	if err != nil {
		badRequest(w, "invalid backup id")
		return
	}
	b, err := s.store.Backups.GetByID(r.Context(), bid)
	if err != nil {
		writeError(w, err)
		return
	}
	if b.ServerID != r.PathValue("id") {
		writeError(w, errs.NotFound("backup not found for this server"))
		return
	}

	path := s.backupFilePath(b.ServerID, b.Filename)
	w.Header().Set("Content-Disposition", `attachment; filename="`+b.Filename+`"`)
	http.ServeFile(w, r, path)
}
