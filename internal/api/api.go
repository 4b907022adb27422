// Package api is the HTTP control plane surface: CRUD on servers,
// start/stop, telemetry SSE streams, backup ops, and settings. Grounded
// on manman/management-ui/main.go's stdlib http.ServeMux router, with
// dual-principal auth layered on via internal/webauth.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aypapol/panel/internal/backup"
	"github.com/aypapol/panel/internal/dockerrt"
	"github.com/aypapol/panel/internal/notify"
	"github.com/aypapol/panel/internal/scheduler"
	"github.com/aypapol/panel/internal/store"
	"github.com/aypapol/panel/internal/webauth"
)

// Server wires every dependency the HTTP handlers need.
type Server struct {
	store     *store.Store
	runtime   *dockerrt.Client
	scheduler *scheduler.Scheduler
	backups   *backup.Engine
	notifier  notify.Notifier
	auth      *webauth.Authenticator
	mw        *webauth.Middleware

	namePrefix  string
	publicURL   string
	hostDomain  string
	dataDirPath string
	backupRoot  string
	startedAt   time.Time
	logger      *slog.Logger
}

type Deps struct {
	Store      *store.Store
	Runtime    *dockerrt.Client
	Scheduler  *scheduler.Scheduler
	Backups    *backup.Engine
	Notifier   notify.Notifier
	Auth       *webauth.Authenticator
	BotAPIKey  string
	NamePrefix string
	PublicURL  string
	HostDomain string
	DataDir    string
	BackupRoot string
	Logger     *slog.Logger
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       d.Store,
		runtime:     d.Runtime,
		scheduler:   d.Scheduler,
		backups:     d.Backups,
		notifier:    d.Notifier,
		auth:        d.Auth,
		mw:          webauth.NewMiddleware(d.Auth, d.BotAPIKey),
		namePrefix:  d.NamePrefix,
		publicURL:   d.PublicURL,
		hostDomain:  d.HostDomain,
		dataDirPath: d.DataDir,
		backupRoot:  d.BackupRoot,
		startedAt:   time.Now(),
		logger:      logger,
	}
}

// Router builds the complete mux, applying CORS and auth middleware
// to the endpoints that require an authenticated principal.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Open endpoints.
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/health/status", s.handleHealthStatus)
	mux.HandleFunc("GET /api/servers", s.handleListServers)
	mux.HandleFunc("GET /api/servers/catalog", s.handleCatalog)

	// OIDC login flow.
	mux.HandleFunc("GET /auth/login", s.auth.HandleLogin)
	mux.HandleFunc("GET /auth/callback", s.auth.HandleCallback)
	mux.HandleFunc("GET /auth/logout", s.auth.HandleLogout)

	// Server management endpoints. They use the same Require middleware as
	// every other protected route, so a user session or the bot API key is
	// accepted; no route here is restricted to user sessions alone.
	mux.Handle("POST /api/servers", s.mw.Require(http.HandlerFunc(s.handleCreateServer)))
	mux.Handle("DELETE /api/servers/{id}", s.mw.Require(http.HandlerFunc(s.handleDeleteServer)))
	mux.Handle("GET /api/servers/{id}/logs", s.mw.Require(http.HandlerFunc(s.handleServerLogs)))
	mux.Handle("GET /api/servers/{id}/stats", s.mw.Require(http.HandlerFunc(s.handleServerStats)))
	mux.Handle("GET /api/servers/{id}/config", s.mw.Require(http.HandlerFunc(s.handleGetConfig)))
	mux.Handle("PUT /api/servers/{id}/config", s.mw.Require(http.HandlerFunc(s.handlePutConfig)))
	mux.Handle("GET /api/servers/{id}/history", s.mw.Require(http.HandlerFunc(s.handleHistory)))
	mux.Handle("POST /api/servers/{id}/banner", s.mw.Require(http.HandlerFunc(s.handleUploadBanner)))

	// User-or-bot endpoints.
	mux.Handle("POST /api/servers/{id}/start", s.mw.Require(http.HandlerFunc(s.handleStart)))
	mux.Handle("POST /api/servers/{id}/stop", s.mw.Require(http.HandlerFunc(s.handleStop)))

	// Backups.
	mux.Handle("GET /api/servers/{id}/backups", s.mw.Require(http.HandlerFunc(s.handleListBackups)))
	mux.Handle("POST /api/servers/{id}/backups", s.mw.Require(http.HandlerFunc(s.handleCreateBackup)))
	mux.Handle("DELETE /api/servers/{id}/backups/{bid}", s.mw.Require(http.HandlerFunc(s.handleDeleteBackup)))
	mux.Handle("POST /api/servers/{id}/backups/{bid}/restore", s.mw.Require(http.HandlerFunc(s.handleRestoreBackup)))
	mux.Handle("GET /api/servers/{id}/backups/{bid}/download", s.mw.Require(http.HandlerFunc(s.handleDownloadBackup)))

	// Settings.
	mux.Handle("GET /api/settings", s.mw.Require(http.HandlerFunc(s.handleGetSettings)))
	mux.Handle("PUT /api/settings", s.mw.Require(http.HandlerFunc(s.handlePutSettings)))
	mux.Handle("GET /api/bot/settings", s.mw.Require(http.HandlerFunc(s.handleGetBotSettings)))
	mux.Handle("PUT /api/bot/settings", s.mw.Require(http.HandlerFunc(s.handlePutBotSettings)))
	mux.Handle("GET /api/bot/channels", s.mw.Require(http.HandlerFunc(s.handleBotChannels)))

	// Notifications.
	mux.Handle("POST /api/notifications/error", s.mw.Require(http.HandlerFunc(s.handleReportError)))

	// Infra services (non-game containers managed by the surrounding
	// orchestration, monitored/restarted through the same runtime adapter).
	mux.Handle("POST /api/services/{name}/restart", s.mw.Require(http.HandlerFunc(s.handleServiceRestart)))
	mux.Handle("GET /api/services/{name}/logs", s.mw.Require(http.HandlerFunc(s.handleServiceLogs)))
	mux.Handle("GET /api/services/host/stats", s.mw.Require(http.HandlerFunc(s.handleHostStats)))
	mux.Handle("GET /api/services/stats", s.mw.Require(http.HandlerFunc(s.handleAllServiceStats)))

	return s.cors(mux)
}

// cors is a small allow-list middleware keyed off the configured public
// URL / host domain, in place of a full CORS library.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Bot-Api-Key")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if s.publicURL != "" && strings.HasPrefix(origin, s.publicURL) {
		return true
	}
	if s.hostDomain != "" && strings.Contains(origin, s.hostDomain) {
		return true
	}
	return s.publicURL == "" && s.hostDomain == ""
}
