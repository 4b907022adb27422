package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aypapol/panel/internal/model"
)

func TestIsDueWithNoPriorBackups(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival"}
	e, _, _, _, _ := newTestEngine(t, srv, map[string]string{model.SettingAutoBackupIntervalHours: "6"})

	due, err := e.isDue(context.Background(), "s1", 6*time.Hour, time.Now())
	require.NoError(t, err)
	assert.True(t, due)
}

func TestIsDueBeforeThresholdElapsed(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival"}
	e, _, backups, _, _ := newTestEngine(t, srv, nil)

	now := time.Now()
	require.NoError(t, backups.Insert(context.Background(), &model.Backup{
		ServerID:  "s1",
		Filename:  "recent.tar.gz",
		CreatedAt: now.Add(-1 * time.Hour).Unix(),
	}))

	due, err := e.isDue(context.Background(), "s1", 6*time.Hour, now)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDueAfterThresholdElapsed(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival"}
	e, _, backups, _, _ := newTestEngine(t, srv, nil)

	now := time.Now()
	require.NoError(t, backups.Insert(context.Background(), &model.Backup{
		ServerID:  "s1",
		Filename:  "stale.tar.gz",
		CreatedAt: now.Add(-8 * time.Hour).Unix(),
	}))

	due, err := e.isDue(context.Background(), "s1", 6*time.Hour, now)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestTickOnceSkipsWhenAutoBackupDisabled(t *testing.T) {
	srv := &model.Server{ID: "s1", Name: "Survival", Volumes: map[string]string{}}
	e, _, backups, _, _ := newTestEngine(t, srv, map[string]string{model.SettingAutoBackupIntervalHours: "0"})

	e.tickOnce(context.Background())

	all, err := backups.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
