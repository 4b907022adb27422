package api

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aypapol/panel/internal/catalog"
	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
)

var slugRE = regexp.MustCompile(`^[a-z0-9_-]+$`)

type serverSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	GameType string `json:"game_type"`
	Port     uint16 `json:"port"`
	Status   string `json:"status"`
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search := r.URL.Query().Get("search")

	servers, err := s.store.Servers.GetAll(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]serverSummary, 0, len(servers))
	for _, srv := range servers {
		if search != "" && !matchesSearch(srv.Name, search) {
			continue
		}
		status, err := s.scheduler.Status(ctx, srv.ID)
		if err != nil {
			status = model.StatusMissing
		}
		out = append(out, serverSummary{
			ID:       srv.ID,
			Name:     srv.Name,
			GameType: srv.GameType,
			Port:     srv.Port,
			Status:   string(status),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func matchesSearch(name, q string) bool {
	return q == "" || strings.Contains(strings.ToLower(name), strings.ToLower(q))
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Search(r.URL.Query().Get("search")))
}

type createServerRequest struct {
	TemplateID  string            `json:"template_id"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DockerImage string            `json:"docker_image"`
	Port        uint16            `json:"port"`
	EnvVars     map[string]string `json:"env_vars"`
	Volumes     map[string]string `json:"volumes"`
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req createServerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.TemplateID != "" {
		for _, t := range catalog.Default {
			if t.ID == req.TemplateID {
				if req.DockerImage == "" {
					req.DockerImage = t.Image
				}
				if req.Port == 0 {
					req.Port = t.Port
				}
				if req.EnvVars == nil {
					req.EnvVars = t.Env
				}
				if req.Volumes == nil {
					req.Volumes = t.Volumes
				}
				break
			}
		}
	}

	if req.ID == "" || req.Name == "" || req.DockerImage == "" || req.Port == 0 {
		badRequest(w, "id, name, docker_image and port are required")
		return
	}
	if !slugRE.MatchString(req.ID) {
		badRequest(w, "id must match [a-z0-9_-]+")
		return
	}

	ctx := r.Context()
	existing, err := s.store.Servers.GetAll(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, other := range existing {
		if other.Port == req.Port {
			writeError(w, errs.Conflict(fmt.Sprintf("port %d is already in use by %q", req.Port, other.Name)))
			return
		}
	}

	srv := &model.Server{
		ID:        req.ID,
		Name:      req.Name,
		GameType:  req.TemplateID,
		Image:     req.DockerImage,
		Port:      req.Port,
		Env:       req.EnvVars,
		Volumes:   req.Volumes,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.store.Servers.Insert(ctx, srv); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.scheduler.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

type configBody struct {
	DockerImage string            `json:"docker_image"`
	EnvVars     map[string]string `json:"env_vars"`
	AccentColor *string           `json:"accent_color,omitempty"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	srv, err := s.store.Servers.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configBody{
		DockerImage: srv.Image,
		EnvVars:     srv.Env,
		AccentColor: srv.AccentColor,
	})
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	status, err := s.scheduler.Status(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if status == model.StatusRunning {
		writeError(w, errs.Conflict("cannot edit config while server is running"))
		return
	}

	var body configBody
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	srv, err := s.store.Servers.GetByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if body.DockerImage != "" {
		srv.Image = body.DockerImage
	}
	if body.EnvVars != nil {
		srv.Env = body.EnvVars
	}

	if err := s.store.Servers.Update(ctx, srv); err != nil {
		writeError(w, err)
		return
	}
	if body.AccentColor != nil {
		if err := s.store.Servers.UpdateTheme(ctx, id, srv.BannerPath, body.AccentColor); err != nil {
			writeError(w, err)
			return
		}
	}
	writeOK(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.scheduler.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

const maxBannerBytes = 5 * 1024 * 1024

func (s *Server) handleUploadBanner(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	srv, err := s.store.Servers.GetByID(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBannerBytes)
	file, header, err := r.FormFile("banner")
	if err != nil {
		badRequest(w, "banner file is required")
		return
	}
	defer file.Close()

	ct := header.Header.Get("Content-Type")
	if ct != "image/jpeg" && ct != "image/png" && ct != "image/webp" {
		badRequest(w, "banner must be JPEG, PNG, or WebP")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "failed to read upload")
		return
	}
	if len(data) > maxBannerBytes {
		badRequest(w, "banner exceeds 5 MiB limit")
		return
	}

	path, err := s.storeBannerFile(id, data, ct)
	if err != nil {
		writeError(w, errs.RuntimeFailed("failed to store banner", err))
		return
	}

	if err := s.store.Servers.UpdateTheme(ctx, id, &path, srv.AccentColor); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}
