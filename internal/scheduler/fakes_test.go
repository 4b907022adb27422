package scheduler

import (
	"context"
	"sync"

	"github.com/aypapol/panel/internal/dockerrt"
	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
	"github.com/aypapol/panel/internal/notify"
)

// fakeRuntime is a minimal in-memory double for Runtime, enough to drive
// the nine-step Start protocol and the crash watcher without Docker.
type fakeRuntime struct {
	mu         sync.Mutex
	containers map[string]*dockerrt.Info
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{containers: make(map[string]*dockerrt.Info)}
}

func (f *fakeRuntime) List(ctx context.Context, includeStopped bool, labelFilters map[string]string) ([]dockerrt.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []dockerrt.Info
	for _, info := range f.containers {
		if !includeStopped && !info.Running {
			continue
		}
		match := true
		for k, v := range labelFilters {
			if info.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, *info)
		}
	}
	return out, nil
}

func (f *fakeRuntime) Inspect(ctx context.Context, name string) (*dockerrt.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.containers[name]
	if !ok {
		return nil, errs.NotFound("no such container")
	}
	cp := *info
	return &cp, nil
}

func (f *fakeRuntime) Create(ctx context.Context, spec dockerrt.CreateSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[spec.Name] = &dockerrt.Info{
		Name:    spec.Name,
		Labels:  spec.Labels,
		Running: false,
	}
	return spec.Name, nil
}

func (f *fakeRuntime) Start(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.containers[name]; ok {
		info.Running = true
	}
	return nil
}

func (f *fakeRuntime) Stop(ctx context.Context, name string, graceSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.containers[name]; ok {
		info.Running = false
	}
	return nil
}

func (f *fakeRuntime) Remove(ctx context.Context, name string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, name)
	return nil
}

func (f *fakeRuntime) PullImage(ctx context.Context, logf func(format string, args ...any), imageRef string) error {
	return nil
}

func (f *fakeRuntime) setRunning(name string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.containers[name]; ok {
		info.Running = running
	}
}

// fakeServers is a minimal in-memory ServerStore.
type fakeServers struct {
	mu      sync.Mutex
	servers map[string]*model.Server
}

func newFakeServers(servers ...*model.Server) *fakeServers {
	m := make(map[string]*model.Server, len(servers))
	for _, s := range servers {
		m[s.ID] = s
	}
	return &fakeServers{servers: m}
}

func (f *fakeServers) GetAll(ctx context.Context) ([]*model.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Server, 0, len(f.servers))
	for _, s := range f.servers {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeServers) GetByID(ctx context.Context, id string) (*model.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.servers[id]
	if !ok {
		return nil, errs.NotFound("server not found")
	}
	return s, nil
}

func (f *fakeServers) Insert(ctx context.Context, s *model.Server) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers[s.ID] = s
	return nil
}

func (f *fakeServers) Update(ctx context.Context, s *model.Server) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers[s.ID] = s
	return nil
}

func (f *fakeServers) UpdateTheme(ctx context.Context, id string, bannerPath, accentColor *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.servers[id]
	if !ok {
		return errs.NotFound("server not found")
	}
	s.BannerPath = bannerPath
	s.AccentColor = accentColor
	return nil
}

func (f *fakeServers) DeleteByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.servers, id)
	return nil
}

// fakeRuns is a minimal in-memory RunStore, enforcing the at-most-one-open-
// run-per-table invariant the same way the real store's migration does.
type fakeRuns struct {
	mu      sync.Mutex
	nextID  int64
	runs    map[int64]*model.Run
	byOpen  string // server id with the single currently-open run, if any
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: make(map[int64]*model.Run)}
}

func (f *fakeRuns) Start(ctx context.Context, serverID string, startedAt int64) (*model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.StoppedAt == nil {
			return nil, errs.Conflict("another run is already open")
		}
	}
	f.nextID++
	run := &model.Run{ID: f.nextID, ServerID: serverID, StartedAt: startedAt}
	f.runs[run.ID] = run
	f.byOpen = serverID
	return run, nil
}

func (f *fakeRuns) Stop(ctx context.Context, serverID string, stoppedAt int64, reason model.StopReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.ServerID == serverID && r.StoppedAt == nil {
			r.StoppedAt = &stoppedAt
			r.StopReason = &reason
			if f.byOpen == serverID {
				f.byOpen = ""
			}
			return nil
		}
	}
	return errs.NotFound("no open run for server")
}

func (f *fakeRuns) StopOpenRun(ctx context.Context, stoppedAt int64, reason model.StopReason) (*model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.StoppedAt == nil {
			r.StoppedAt = &stoppedAt
			r.StopReason = &reason
			f.byOpen = ""
			return r, nil
		}
	}
	return nil, errs.NotFound("no open run")
}

func (f *fakeRuns) OpenRun(ctx context.Context) (*model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.StoppedAt == nil {
			return r, nil
		}
	}
	return nil, errs.NotFound("no open run")
}

func (f *fakeRuns) History(ctx context.Context, serverID string) ([]*model.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Run
	for _, r := range f.runs {
		if r.ServerID == serverID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuns) DeleteByServer(ctx context.Context, serverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.runs {
		if r.ServerID == serverID {
			delete(f.runs, id)
		}
	}
	return nil
}

// fakeSettings is a minimal in-memory SettingsStore seeded with the
// documented defaults.
type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	values := make(map[string]string, len(model.DefaultSettings))
	for k, v := range model.DefaultSettings {
		values[k] = v
	}
	return &fakeSettings{values: values}
}

func (f *fakeSettings) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", errs.NotFound("setting not found")
}

func (f *fakeSettings) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeSettings) Unset(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeSettings) GetAll(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

// fakeNotifier records Crash/Error calls without sending anything.
type fakeNotifier struct {
	mu      sync.Mutex
	crashes []string
}

func (f *fakeNotifier) Crash(ctx context.Context, serverName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crashes = append(f.crashes, serverName)
	return nil
}

func (f *fakeNotifier) Error(ctx context.Context, payload notify.ErrorPayload) error {
	return nil
}
