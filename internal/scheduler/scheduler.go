// Package scheduler enforces the control plane's container-exclusivity
// policy: at most one managed game container running at a time, with
// intentional-vs-crash classification and a persistent Run ledger.
// Grounded on the session manager's Start/Stop/cleanup sequencing,
// generalized from "session+SGC" keying to one-Server/one-active-Run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aypapol/panel/internal/dockerrt"
	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
	"github.com/aypapol/panel/internal/notify"
	"github.com/aypapol/panel/internal/params"
	"github.com/aypapol/panel/internal/store"
)

// Runtime is the subset of the container runtime adapter the scheduler
// needs; satisfied by *dockerrt.Client and by fakes in tests.
type Runtime interface {
	List(ctx context.Context, includeStopped bool, labelFilters map[string]string) ([]dockerrt.Info, error)
	Inspect(ctx context.Context, name string) (*dockerrt.Info, error)
	Create(ctx context.Context, spec dockerrt.CreateSpec) (string, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string, graceSeconds int) error
	Remove(ctx context.Context, name string, force bool) error
	PullImage(ctx context.Context, logf func(format string, args ...any), imageRef string) error
}

const (
	labelManaged  = "panel.managed"
	labelServerID = "panel.server_id"

	stopGraceSeconds  = 10
	crashPollInterval = 30 * time.Second
)

// Scheduler owns every state-changing transition over managed game
// containers. Shared mutable state (active_watchers, intentional_stops) is
// private, protected by mu.
type Scheduler struct {
	runtime  Runtime
	store    *store.Store
	notifier notify.Notifier
	logger   *slog.Logger

	namePrefix string

	mu               sync.Mutex // guards activeWatchers and intentionalStops
	activeWatchers   map[string]context.CancelFunc
	intentionalStops map[string]bool

	perID sync.Map // server id -> *sync.Mutex, serializes Start/Stop per id
}

func New(runtime Runtime, st *store.Store, notifier notify.Notifier, namePrefix string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runtime:          runtime,
		store:            st,
		notifier:         notifier,
		logger:           logger,
		namePrefix:       namePrefix,
		activeWatchers:   make(map[string]context.CancelFunc),
		intentionalStops: make(map[string]bool),
	}
}

// ContainerName returns the managed container name for a server id,
// enforcing I5 (managed-name prefix isolation).
func (s *Scheduler) ContainerName(serverID string) string {
	return s.namePrefix + serverID
}

func (s *Scheduler) lockFor(serverID string) *sync.Mutex {
	v, _ := s.perID.LoadOrStore(serverID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Status derives the RuntimeStatus for a server from the container
// runtime directly; it is never persisted.
func (s *Scheduler) Status(ctx context.Context, serverID string) (model.RuntimeStatus, error) {
	info, err := s.runtime.Inspect(ctx, s.ContainerName(serverID))
	if err != nil {
		return model.StatusMissing, nil
	}
	if info.Running {
		return model.StatusRunning, nil
	}
	return model.StatusStopped, nil
}

// activeGameContainer returns the at-most-one managed, running container
// that isn't an orchestration-service container.
func (s *Scheduler) activeGameContainer(ctx context.Context) (*dockerrt.Info, error) {
	infos, err := s.runtime.List(ctx, false, map[string]string{labelManaged: "true"})
	if err != nil {
		return nil, fmt.Errorf("list active containers: %w", err)
	}
	for i := range infos {
		if infos[i].Running {
			return &infos[i], nil
		}
	}
	return nil, nil
}

func serverIDFromLabels(labels map[string]string) string {
	return labels[labelServerID]
}

// Start implementsnine-step Start protocol.
func (s *Scheduler) Start(ctx context.Context, serverID string) error {
	lock := s.lockFor(serverID)
	lock.Lock()
	defer lock.Unlock()

	srv, err := s.store.Servers.GetByID(ctx, serverID)
	if err != nil {
		return err
	}

	if active, err := s.activeGameContainer(ctx); err != nil {
		return err
	} else if active != nil {
		if otherID := serverIDFromLabels(active.Labels); otherID != "" && otherID != serverID {
			if err := s.replaceActive(ctx, otherID, active); err != nil {
				return err
			}
		}
	}

	name := s.ContainerName(serverID)
	_ = s.runtime.Remove(ctx, name, true) // clear any stale container with this name

	env := params.ToEnvList(params.ResolveEnv(srv.Env))

	memLimitGB, err := s.intSetting(ctx, model.SettingGameMemoryLimitGB)
	if err != nil {
		return err
	}
	cpuLimit, err := s.intSetting(ctx, model.SettingGameCPULimit)
	if err != nil {
		return err
	}

	volumes := make([]dockerrt.VolumeMount, 0, len(srv.Volumes))
	for host, container := range srv.Volumes {
		volumes = append(volumes, dockerrt.VolumeMount{HostPath: host, ContainerPath: container})
	}

	if err := s.runtime.PullImage(ctx, func(format string, args ...any) {
		s.logger.Info(fmt.Sprintf(format, args...))
	}, srv.Image); err != nil {
		return errs.RuntimeFailed("failed to pull image", err)
	}

	_, err = s.runtime.Create(ctx, dockerrt.CreateSpec{
		Name:  name,
		Image: srv.Image,
		Env:   env,
		Labels: map[string]string{
			labelManaged:  "true",
			labelServerID: serverID,
		},
		Volumes:          volumes,
		MemoryLimitBytes: dockerrt.ParseMemoryGB(memLimitGB),
		NanoCPUs:         dockerrt.ParseNanoCPUs(cpuLimit),
	})
	if err != nil {
		return errs.RuntimeFailed("failed to create container", err)
	}

	if err := s.runtime.Start(ctx, name); err != nil {
		return errs.RuntimeFailed("failed to start container", err)
	}

	if _, err := s.store.Runs.Start(ctx, serverID, time.Now().Unix()); err != nil {
		return err
	}

	s.registerWatcher(serverID)
	return nil
}

// replaceActive stops the currently active container belonging to
// otherServerID, marking it intentional and closing its open Run with
// stop_reason=replaced, before the caller proceeds to start the new one.
func (s *Scheduler) replaceActive(ctx context.Context, otherServerID string, active *dockerrt.Info) error {
	s.markIntentional(otherServerID)
	s.cancelWatcher(otherServerID)

	if err := s.runtime.Stop(ctx, active.Name, stopGraceSeconds); err != nil {
		s.logger.Warn("failed to stop replaced container", "server_id", otherServerID, "error", err)
	}

	if err := s.store.Runs.Stop(ctx, otherServerID, time.Now().Unix(), model.StopReasonReplaced); err != nil {
		if errs.KindOf(err) != errs.KindNotFound {
			return err
		}
	}
	return nil
}

// Stop implementsStop protocol. The pseudo-id "active"
// resolves to whatever the active-container query returns.
func (s *Scheduler) Stop(ctx context.Context, serverID string) (string, error) {
	if serverID == "active" {
		active, err := s.activeGameContainer(ctx)
		if err != nil {
			return "", err
		}
		if active == nil {
			return "No server running", nil
		}
		serverID = serverIDFromLabels(active.Labels)
		if serverID == "" {
			return "", errs.NotFound("active container has no server id label")
		}
	}

	lock := s.lockFor(serverID)
	lock.Lock()
	defer lock.Unlock()

	s.markIntentional(serverID)
	s.cancelWatcher(serverID)

	name := s.ContainerName(serverID)
	if err := s.runtime.Stop(ctx, name, stopGraceSeconds); err != nil {
		s.logger.Warn("stop failed", "server_id", serverID, "error", err)
	}

	if err := s.store.Runs.Stop(ctx, serverID, time.Now().Unix(), model.StopReasonUser); err != nil {
		if errs.KindOf(err) != errs.KindNotFound {
			return "", err
		}
	}

	return "Server stopped", nil
}

// Delete refuses while Running; else deletes Run rows then the Server row.
// Backup files/rows are intentionally not cascaded.
func (s *Scheduler) Delete(ctx context.Context, serverID string) error {
	lock := s.lockFor(serverID)
	lock.Lock()
	defer lock.Unlock()

	status, err := s.Status(ctx, serverID)
	if err != nil {
		return err
	}
	if status == model.StatusRunning {
		return errs.Conflict("cannot delete a running server")
	}

	if err := s.store.Runs.DeleteByServer(ctx, serverID); err != nil {
		return err
	}
	return s.store.Servers.DeleteByID(ctx, serverID)
}

func (s *Scheduler) intSetting(ctx context.Context, key string) (int64, error) {
	v, err := s.store.Settings.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	var n int64
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid setting %s=%q: %w", key, v, err)
	}
	return n, nil
}

func (s *Scheduler) markIntentional(serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intentionalStops[serverID] = true
}

func (s *Scheduler) clearIntentional(serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intentionalStops, serverID)
}

func (s *Scheduler) isIntentional(serverID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intentionalStops[serverID]
}
