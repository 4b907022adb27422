package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aypapol/panel/internal/model"
	"github.com/aypapol/panel/internal/store"
)

func newTestScheduler(servers ...*model.Server) (*Scheduler, *fakeRuntime, *fakeRuns, *fakeNotifier) {
	runtime := newFakeRuntime()
	runs := newFakeRuns()
	notifier := &fakeNotifier{}

	st := &store.Store{
		Servers:  newFakeServers(servers...),
		Runs:     runs,
		Settings: newFakeSettings(),
	}

	return New(runtime, st, notifier, "game-panel-", nil), runtime, runs, notifier
}

func TestStartRegistersOpenRun(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Image: "itzg/minecraft-server"}
	sched, runtime, runs, _ := newTestScheduler(srv)

	err := sched.Start(context.Background(), "s1")
	require.NoError(t, err)

	info, err := runtime.Inspect(context.Background(), sched.ContainerName("s1"))
	require.NoError(t, err)
	assert.True(t, info.Running)

	open, err := runs.OpenRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s1", open.ServerID)
}

func TestStartReplacesOtherActiveServer(t *testing.T) {
	a := &model.Server{ID: "a", Name: "Server A", Image: "itzg/minecraft-server"}
	b := &model.Server{ID: "b", Name: "Server B", Image: "itzg/minecraft-server"}
	sched, runtime, runs, _ := newTestScheduler(a, b)

	require.NoError(t, sched.Start(context.Background(), "a"))
	require.NoError(t, sched.Start(context.Background(), "b"))

	infoA, err := runtime.Inspect(context.Background(), sched.ContainerName("a"))
	require.NoError(t, err)
	assert.False(t, infoA.Running, "starting b must stop the previously active a")

	infoB, err := runtime.Inspect(context.Background(), sched.ContainerName("b"))
	require.NoError(t, err)
	assert.True(t, infoB.Running)

	history, err := runs.History(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].StopReason)
	assert.Equal(t, model.StopReasonReplaced, *history[0].StopReason)
}

func TestStopActiveResolvesPseudoID(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Image: "itzg/minecraft-server"}
	sched, runtime, runs, _ := newTestScheduler(srv)

	require.NoError(t, sched.Start(context.Background(), "s1"))

	msg, err := sched.Stop(context.Background(), "active")
	require.NoError(t, err)
	assert.Equal(t, "Server stopped", msg)

	info, err := runtime.Inspect(context.Background(), sched.ContainerName("s1"))
	require.NoError(t, err)
	assert.False(t, info.Running)

	history, err := runs.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].StopReason)
	assert.Equal(t, model.StopReasonUser, *history[0].StopReason)
}

func TestStopActiveWithNothingRunning(t *testing.T) {
	sched, _, _, _ := newTestScheduler()

	msg, err := sched.Stop(context.Background(), "active")
	require.NoError(t, err)
	assert.Equal(t, "No server running", msg)
}

func TestDeleteRefusesWhileRunning(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Image: "itzg/minecraft-server"}
	sched, _, _, _ := newTestScheduler(srv)

	require.NoError(t, sched.Start(context.Background(), "s1"))

	err := sched.Delete(context.Background(), "s1")
	assert.Error(t, err)
}

func TestDeleteSucceedsWhileStopped(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Image: "itzg/minecraft-server"}
	sched, _, _, _ := newTestScheduler(srv)

	require.NoError(t, sched.Start(context.Background(), "s1"))
	_, err := sched.Stop(context.Background(), "s1")
	require.NoError(t, err)

	err = sched.Delete(context.Background(), "s1")
	assert.NoError(t, err)

	_, err = sched.store.Servers.GetByID(context.Background(), "s1")
	assert.Error(t, err)
}

func TestWatchCrashClassifiesUnintentionalStopAsCrash(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Image: "itzg/minecraft-server"}
	sched, runtime, runs, notifier := newTestScheduler(srv)

	require.NoError(t, sched.Start(context.Background(), "s1"))

	// Simulate the container dying on its own, bypassing Stop entirely,
	// then invoke the watcher's crash handler directly instead of waiting
	// out the real 30s poll interval.
	runtime.setRunning(sched.ContainerName("s1"), false)
	sched.cancelWatcher("s1")
	sched.handleCrash("s1")

	history, err := runs.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].StopReason)
	assert.Equal(t, model.StopReasonCrash, *history[0].StopReason)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Contains(t, notifier.crashes, "Survival")
}

func TestStatusReflectsRuntimeNotPersistence(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Image: "itzg/minecraft-server"}
	sched, _, _, _ := newTestScheduler(srv)

	status, err := sched.Status(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusMissing, status)

	require.NoError(t, sched.Start(context.Background(), "s1"))
	status, err = sched.Status(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, status)
}

func TestRecoverOrphansReregistersWatcherForRunningContainer(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Image: "itzg/minecraft-server"}
	sched, _, _, _ := newTestScheduler(srv)

	require.NoError(t, sched.Start(context.Background(), "s1"))
	sched.cancelWatcher("s1") // simulate a fresh process with no in-memory watchers

	require.NoError(t, sched.RecoverOrphans(context.Background()))

	sched.mu.Lock()
	_, ok := sched.activeWatchers["s1"]
	sched.mu.Unlock()
	assert.True(t, ok)
}

func TestContainerNameUsesConfiguredPrefix(t *testing.T) {
	sched, _, _, _ := newTestScheduler()
	assert.Equal(t, "game-panel-abc", sched.ContainerName("abc"))
}
