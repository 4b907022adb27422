package backup

import (
	"context"
	"sync"

	"github.com/aypapol/panel/internal/dockerrt"
	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
)

type fakeRuntime struct {
	mu      sync.Mutex
	running map[string]bool
	paused  []string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{running: make(map[string]bool)}
}

func (f *fakeRuntime) Inspect(ctx context.Context, name string) (*dockerrt.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	running, ok := f.running[name]
	if !ok {
		return nil, errs.NotFound("no such container")
	}
	return &dockerrt.Info{Name: name, Running: running}, nil
}

func (f *fakeRuntime) Pause(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = append(f.paused, name)
	return nil
}

func (f *fakeRuntime) Unpause(ctx context.Context, name string) error {
	return nil
}

func (f *fakeRuntime) setRunning(name string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[name] = running
}

type fakeServers struct {
	servers map[string]*model.Server
}

func (f *fakeServers) GetAll(ctx context.Context) ([]*model.Server, error) {
	out := make([]*model.Server, 0, len(f.servers))
	for _, s := range f.servers {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeServers) GetByID(ctx context.Context, id string) (*model.Server, error) {
	s, ok := f.servers[id]
	if !ok {
		return nil, errs.NotFound("server not found")
	}
	return s, nil
}

func (f *fakeServers) Insert(ctx context.Context, s *model.Server) error { return nil }
func (f *fakeServers) Update(ctx context.Context, s *model.Server) error { return nil }
func (f *fakeServers) UpdateTheme(ctx context.Context, id string, bannerPath, accentColor *string) error {
	return nil
}
func (f *fakeServers) DeleteByID(ctx context.Context, id string) error { return nil }

type fakeBackups struct {
	mu      sync.Mutex
	nextID  int64
	backups map[int64]*model.Backup
}

func newFakeBackups() *fakeBackups {
	return &fakeBackups{backups: make(map[int64]*model.Backup)}
}

func (f *fakeBackups) List(ctx context.Context, serverID string) ([]*model.Backup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Backup
	for _, b := range f.backups {
		if b.ServerID == serverID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBackups) ListAll(ctx context.Context) ([]*model.Backup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Backup, 0, len(f.backups))
	for _, b := range f.backups {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBackups) Count(ctx context.Context, serverID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.backups {
		if b.ServerID == serverID {
			n++
		}
	}
	return n, nil
}

func (f *fakeBackups) Oldest(ctx context.Context, serverID string) (*model.Backup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *model.Backup
	for _, b := range f.backups {
		if b.ServerID != serverID {
			continue
		}
		if oldest == nil || b.CreatedAt < oldest.CreatedAt {
			oldest = b
		}
	}
	return oldest, nil
}

func (f *fakeBackups) Insert(ctx context.Context, b *model.Backup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	f.backups[b.ID] = b
	return nil
}

func (f *fakeBackups) GetByID(ctx context.Context, id int64) (*model.Backup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.backups[id]
	if !ok {
		return nil, errs.NotFound("backup not found")
	}
	return b, nil
}

func (f *fakeBackups) DeleteByID(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.backups, id)
	return nil
}

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings(values map[string]string) *fakeSettings {
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
