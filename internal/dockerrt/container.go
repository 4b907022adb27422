package dockerrt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-units"
)

// VolumeMount is a single host-path-to-container-path bind mount.
type VolumeMount struct {
	HostPath      string
	ContainerPath string
}

// CreateSpec describes a managed game container.
type CreateSpec struct {
	Name     string
	Image    string
	Env      []string
	Labels   map[string]string
	Volumes  []VolumeMount

	// MemoryLimitBytes and NanoCPUs come from settings.game_memory_limit_gb
	// and settings.game_cpu_limit, converted by the caller via go-units.
	MemoryLimitBytes int64
	NanoCPUs         int64
}

const (
	memoryReservationBytes = 512 * 1024 * 1024 // 512 MiB
	logMaxSize             = "50m"
	logMaxFile             = "3"
)

// Create creates a container using host networking, a bounded log driver,
// and restart-policy unless-stopped.
func (c *Client) Create(ctx context.Context, spec CreateSpec) (string, error) {
	mounts := make([]mount.Mount, 0, len(spec.Volumes))
	for _, v := range spec.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: v.HostPath,
			Target: v.ContainerPath,
		})
	}

	containerConfig := &container.Config{
		Image:  spec.Image,
		Env:    spec.Env,
		Labels: spec.Labels,
	}

	hostConfig := &container.HostConfig{
		Mounts:        mounts,
		NetworkMode:   "host",
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		Resources: container.Resources{
			Memory:            spec.MemoryLimitBytes,
			MemoryReservation: memoryReservationBytes,
			NanoCPUs:          spec.NanoCPUs,
		},
		LogConfig: container.LogConfig{
			Type: "json-file",
			Config: map[string]string{
				"max-size": logMaxSize,
				"max-file": logMaxFile,
			},
		},
	}

	resp, err := c.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

// Start starts a previously created container.
func (c *Client) Start(ctx context.Context, name string) error {
	return c.cli.ContainerStart(ctx, name, container.StartOptions{})
}

// Stop stops a container, giving it graceSeconds to exit cleanly.
func (c *Client) Stop(ctx context.Context, name string, graceSeconds int) error {
	secs := graceSeconds
	return c.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &secs})
}

// Restart stops then starts a container with the given grace period.
func (c *Client) Restart(ctx context.Context, name string, graceSeconds int) error {
	secs := graceSeconds
	return c.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &secs})
}

// Pause freezes all processes in a container, used during backup archiving.
func (c *Client) Pause(ctx context.Context, name string) error {
	return c.cli.ContainerPause(ctx, name)
}

// Unpause resumes a previously paused container.
func (c *Client) Unpause(ctx context.Context, name string) error {
	return c.cli.ContainerUnpause(ctx, name)
}

// Remove deletes a container, optionally forcing removal of a running one.
func (c *Client) Remove(ctx context.Context, name string, force bool) error {
	return c.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: force})
}

// PullImage pulls an image, blocking until the pull completes.
func (c *Client) PullImage(ctx context.Context, logf func(format string, args ...any), imageRef string) error {
	reader, err := c.cli.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", imageRef, err)
	}
	defer reader.Close()
	// Drain the progress stream; detailed progress parsing isn't needed by
	// the core, only that the pull completed without error.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull image %s: %w", imageRef, err)
	}
	if logf != nil {
		logf("pulled image %s", imageRef)
	}
	return nil
}

// Info is the lightweight container status the scheduler and telemetry
// fabric consume.
type Info struct {
	ID            string
	Name          string
	Status        string
	Running       bool
	HasTTY        bool
	RestartCount  int
	StartedAt     *time.Time
	ExitCode      int
	Labels        map[string]string
}

// Inspect returns detailed state for a single container by name or ID.
func (c *Client) Inspect(ctx context.Context, name string) (*Info, error) {
	info, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("inspect container %s: %w", name, err)
	}

	out := &Info{
		ID:           info.ID,
		Name:         strings.TrimPrefix(info.Name, "/"),
		Status:       info.State.Status,
		Running:      info.State.Running,
		ExitCode:     info.State.ExitCode,
		RestartCount: info.RestartCount,
		Labels:       info.Config.Labels,
	}
	if info.Config != nil {
		out.HasTTY = info.Config.Tty
	}
	if info.State.StartedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, info.State.StartedAt); err == nil {
			out.StartedAt = &t
		}
	}
	return out, nil
}

// List lists containers (including stopped ones when includeStopped is
// true) matching the given label filters.
func (c *Client) List(ctx context.Context, includeStopped bool, labelFilters map[string]string) ([]Info, error) {
	args := filters.NewArgs()
	for k, v := range labelFilters {
		args.Add("label", fmt.Sprintf("%s=%s", k, v))
	}

	containers, err := c.cli.ContainerList(ctx, container.ListOptions{
		All:     includeStopped,
		Filters: args,
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]Info, 0, len(containers))
	for _, ct := range containers {
		name := ""
		if len(ct.Names) > 0 {
			name = strings.TrimPrefix(ct.Names[0], "/")
		}
		out = append(out, Info{
			ID:      ct.ID,
			Name:    name,
			Status:  ct.Status,
			Running: ct.State == "running",
			Labels:  ct.Labels,
		})
	}
	return out, nil
}

// FormatMemory renders a byte count the way Docker's own CLI does, using
// docker/go-units.
func FormatMemory(bytes int64) string {
	return units.BytesSize(float64(bytes))
}

// ParseMemoryGB converts a whole-gigabyte setting value into bytes using
// go-units, matching Docker CLI's own unit parsing semantics.
func ParseMemoryGB(gb int64) int64 {
	return gb * units.GiB
}

// ParseNanoCPUs converts a whole-CPU setting value into the nano-CPU units
// the Engine API's Resources.NanoCPUs field expects.
func ParseNanoCPUs(cpus int64) int64 {
	return cpus * 1_000_000_000
}
