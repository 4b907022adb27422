package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aypapol/panel/internal/model"
	"github.com/aypapol/panel/internal/store"
)

func newTestEngine(t *testing.T, srv *model.Server, settings map[string]string) (*Engine, *fakeRuntime, *fakeBackups, string, string) {
	t.Helper()
	dataDir := t.TempDir()
	backupRoot := t.TempDir()

	runtime := newFakeRuntime()
	backups := newFakeBackups()

	st := &store.Store{
		Servers:  &fakeServers{servers: map[string]*model.Server{srv.ID: srv}},
		Backups:  backups,
		Settings: newFakeSettings(settings),
	}

	containerName := func(id string) string { return "game-panel-" + id }
	e := New(st, runtime, nil, backupRoot, dataDir, containerName, nil)
	return e, runtime, backups, dataDir, backupRoot
}

func TestCreateRejectsServerWithNoDataVolumes(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival"}
	e, _, _, _, _ := newTestEngine(t, srv, map[string]string{model.SettingMaxBackupsPerServer: "5"})

	_, err := e.Create(context.Background(), "s1")
	assert.Error(t, err)
}

func TestCreatePausesRunningContainerAndArchives(t *testing.T) {
	srv := &model.Server{
		ID:      "s1",
		Name:    "Survival",
		Volumes: map[string]string{},
	}
	e, runtime, backups, dataDir, backupRoot := newTestEngine(t, srv, map[string]string{model.SettingMaxBackupsPerServer: "5"})

	worldDir := filepath.Join(dataDir, "world")
	require.NoError(t, os.MkdirAll(worldDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "level.dat"), []byte("world data"), 0o644))
	srv.Volumes[filepath.Join(dataDir, "world")] = "/data"

	runtime.setRunning("game-panel-s1", true)

	b, err := e.Create(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", b.ServerID)
	assert.Greater(t, b.SizeBytes, int64(0))

	runtime.mu.Lock()
	assert.Contains(t, runtime.paused, "game-panel-s1")
	runtime.mu.Unlock()

	archivePath := filepath.Join(backupRoot, "s1", b.Filename)
	_, err = os.Stat(archivePath)
	assert.NoError(t, err)

	all, err := backups.List(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEnforceRetentionPrunesOldest(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival"}
	e, _, backups, _, backupRoot := newTestEngine(t, srv, map[string]string{model.SettingMaxBackupsPerServer: "2"})

	require.NoError(t, os.MkdirAll(filepath.Join(backupRoot, "s1"), 0o755))

	for i, createdAt := range []int64{100, 200, 300} {
		filename := filepath.Join("s1", "backup.tar.gz")
		_ = i
		path := filepath.Join(backupRoot, filename)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, backups.Insert(context.Background(), &model.Backup{
			ServerID:  "s1",
			Filename:  filepath.Base(filename),
			CreatedAt: createdAt,
		}))
	}

	require.NoError(t, e.enforceRetention(context.Background(), "s1"))

	count, err := backups.Count(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRestoreRefusesWhileRunning(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival"}
	e, runtime, backups, _, backupRoot := newTestEngine(t, srv, nil)

	require.NoError(t, os.MkdirAll(filepath.Join(backupRoot, "s1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(backupRoot, "s1", "b.tar.gz"), []byte("x"), 0o644))
	require.NoError(t, backups.Insert(context.Background(), &model.Backup{ServerID: "s1", Filename: "b.tar.gz"}))

	runtime.setRunning("game-panel-s1", true)

	err := e.Restore(context.Background(), 1)
	assert.Error(t, err)
}

func TestCreateThenRestoreRoundTrips(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Volumes: map[string]string{}}
	e, _, _, dataDir, _ := newTestEngine(t, srv, map[string]string{model.SettingMaxBackupsPerServer: "5"})

	worldDir := filepath.Join(dataDir, "world")
	require.NoError(t, os.MkdirAll(worldDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "level.dat"), []byte("original"), 0o644))
	srv.Volumes[worldDir] = "/data"

	b, err := e.Create(context.Background(), "s1")
	require.NoError(t, err)

	// Mutate the live data, then restore and confirm the original content
	// comes back.
	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "level.dat"), []byte("corrupted"), 0o644))

	require.NoError(t, e.Restore(context.Background(), b.ID))

	restored, err := os.ReadFile(filepath.Join(worldDir, "level.dat"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(restored))
}

func TestDeleteRemovesFileAndRow(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival"}
	e, _, backups, _, backupRoot := newTestEngine(t, srv, nil)

	require.NoError(t, os.MkdirAll(filepath.Join(backupRoot, "s1"), 0o755))
	path := filepath.Join(backupRoot, "s1", "b.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, backups.Insert(context.Background(), &model.Backup{ServerID: "s1", Filename: "b.tar.gz"}))

	require.NoError(t, e.Delete(context.Background(), 1))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = backups.GetByID(context.Background(), 1)
	assert.Error(t, err)
}

func TestExtractArchiveRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.tar.gz")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../outside.txt",
		Typeflag: tar.TypeReg,
		Size:     4,
		Mode:     0o644,
	}))
	_, err = tw.Write([]byte("boom"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	baseDir := filepath.Join(dir, "restore-target")
	require.NoError(t, os.MkdirAll(baseDir, 0o755))

	err = extractArchive(archivePath, baseDir)
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "outside.txt"))
	assert.True(t, os.IsNotExist(statErr))
}
