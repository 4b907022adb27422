// Package backup implements the pause-freeze-archive-resume snapshot
// pipeline: create, restore, delete, and retention pruning
// for a server's persistent game data.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aypapol/panel/internal/dockerrt"
	"github.com/aypapol/panel/internal/errs"
	"github.com/aypapol/panel/internal/model"
	"github.com/aypapol/panel/internal/store"
)

// Runtime is the subset of the container runtime the backup engine needs
// to freeze a container during archiving.
type Runtime interface {
	Inspect(ctx context.Context, name string) (*dockerrt.Info, error)
	Pause(ctx context.Context, name string) error
	Unpause(ctx context.Context, name string) error
}

// Uploader optionally offloads a freshly created archive to object
// storage; a nil Uploader on Engine disables this.
type Uploader interface {
	Upload(ctx context.Context, key string, path string) error
}

// Engine owns the <BACKUP_ROOT> directory tree; the Store owns Backup
// rows.
type Engine struct {
	store         *store.Store
	runtime       Runtime
	uploader      Uploader
	backupRoot    string
	dataDir       string
	containerName func(serverID string) string
	logger        *slog.Logger

	perServer sync.Map // server id -> *sync.Mutex
}

func New(st *store.Store, runtime Runtime, uploader Uploader, backupRoot, dataDir string, containerName func(string) string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:         st,
		runtime:       runtime,
		uploader:      uploader,
		backupRoot:    backupRoot,
		dataDir:       dataDir,
		containerName: containerName,
		logger:        logger,
	}
}

func (e *Engine) lockFor(serverID string) *sync.Mutex {
	v, _ := e.perServer.LoadOrStore(serverID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// relevantDirs returns the relative-to-dataDir directories to archive,
// derived from srv.Volumes host paths that live under dataDir.
func (e *Engine) relevantDirs(srv *model.Server) []string {
	prefix := strings.TrimRight(e.dataDir, "/") + "/"
	var dirs []string
	for hostPath := range srv.Volumes {
		if strings.HasPrefix(hostPath, prefix) {
			dirs = append(dirs, strings.TrimPrefix(hostPath, prefix))
		}
	}
	return dirs
}

// Create runs the freeze-archive-resume pipeline for serverID and prunes
// retention afterward.
func (e *Engine) Create(ctx context.Context, serverID string) (*model.Backup, error) {
	lock := e.lockFor(serverID)
	lock.Lock()
	defer lock.Unlock()

	srv, err := e.store.Servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	dirs := e.relevantDirs(srv)
	if len(dirs) == 0 {
		return nil, errs.Validation("No /data/ volumes configured")
	}

	destDir := filepath.Join(e.backupRoot, serverID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, errs.RuntimeFailed("failed to create backup directory", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s_%s.tar.gz", serverID, now.Format("2006-01-02_15-04-05"), uuid.NewString()[:8])
	destPath := filepath.Join(destDir, filename)

	name := e.containerName(serverID)
	paused := false
	if info, err := e.runtime.Inspect(ctx, name); err == nil && info.Running {
		if err := e.runtime.Pause(ctx, name); err != nil {
			e.logger.Warn("pause failed before backup, proceeding unfrozen", "server_id", serverID, "error", err)
		} else {
			paused = true
		}
	}

	archiveErr := func() error {
		defer func() {
			if paused {
				if err := e.runtime.Unpause(ctx, name); err != nil {
					e.logger.Error("failed to unpause after backup", "server_id", serverID, "error", err)
				}
			}
		}()
		return archiveDirs(destPath, e.dataDir, dirs)
	}()
	if archiveErr != nil {
		os.Remove(destPath)
		return nil, errs.RuntimeFailed("archive failed", archiveErr)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return nil, errs.RuntimeFailed("failed to stat archive", err)
	}

	b := &model.Backup{
		ServerID:  serverID,
		Filename:  filename,
		SizeBytes: info.Size(),
		CreatedAt: now.Unix(),
	}
	if err := e.store.Backups.Insert(ctx, b); err != nil {
		return nil, err
	}

	if e.uploader != nil {
		key := serverID + "/" + filename
		if err := e.uploader.Upload(ctx, key, destPath); err != nil {
			e.logger.Warn("s3 offload failed, local archive remains authoritative", "server_id", serverID, "error", err)
		}
	}

	if err := e.enforceRetention(ctx, serverID); err != nil {
		e.logger.Error("retention pruning failed", "server_id", serverID, "error", err)
	}

	return b, nil
}

func (e *Engine) enforceRetention(ctx context.Context, serverID string) error {
	maxStr, err := e.store.Settings.Get(ctx, model.SettingMaxBackupsPerServer)
	if err != nil {
		return err
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max <= 0 {
		return nil
	}

	for {
		count, err := e.store.Backups.Count(ctx, serverID)
		if err != nil {
			return err
		}
		if count <= max {
			return nil
		}

		oldest, err := e.store.Backups.Oldest(ctx, serverID)
		if err != nil {
			return err
		}
		if oldest == nil {
			return nil
		}

		path := filepath.Join(e.backupRoot, serverID, oldest.Filename)
		os.Remove(path) // best-effort; the row delete below is authoritative
		if err := e.store.Backups.DeleteByID(ctx, oldest.ID); err != nil {
			return err
		}
	}
}

// Delete best-effort unlinks the archive file, always deleting the DB row.
func (e *Engine) Delete(ctx context.Context, backupID int64) error {
	b, err := e.store.Backups.GetByID(ctx, backupID)
	if err != nil {
		return err
	}
	path := filepath.Join(e.backupRoot, b.ServerID, b.Filename)
	os.Remove(path)
	return e.store.Backups.DeleteByID(ctx, backupID)
}

// Restore extracts a backup's archive into dataDir, refusing while the
// container is running.
func (e *Engine) Restore(ctx context.Context, backupID int64) error {
	b, err := e.store.Backups.GetByID(ctx, backupID)
	if err != nil {
		return err
	}

	name := e.containerName(b.ServerID)
	if info, err := e.runtime.Inspect(ctx, name); err == nil && info.Running {
		return errs.Conflict("Cannot restore while server is running")
	}

	path := filepath.Join(e.backupRoot, b.ServerID, b.Filename)
	if _, err := os.Stat(path); err != nil {
		return errs.NotFound("backup file not found")
	}

	return extractArchive(path, e.dataDir)
}

// archiveDirs writes dirs (relative to baseDir) into a gzip-compressed tar
// at destPath.
func archiveDirs(destPath, baseDir string, dirs []string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	for _, rel := range dirs {
		root := filepath.Join(baseDir, rel)
		err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}

			relPath, err := filepath.Rel(baseDir, path)
			if err != nil {
				return err
			}

			hdr, err := tar.FileInfoHeader(fi, "")
			if err != nil {
				return err
			}
			hdr.Name = relPath
			if fi.IsDir() {
				hdr.Name += "/"
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}

			src, err := os.Open(path)
			if err != nil {
				return err
			}
			defer src.Close()

			_, err = io.Copy(tw, src)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// extractArchive restores a gzip-compressed tar into baseDir, recreating
// the same relative paths it was archived with.
func extractArchive(archivePath, baseDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(baseDir, hdr.Name)
		if !strings.HasPrefix(target, filepath.Clean(baseDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes base directory: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}
