package dockerrt

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/container"
)

// LogsStream returns the raw log byte stream for a container. When the
// container has no TTY, the bytes are Docker's multiplexed stdout/stderr
// frame format (see internal/telemetry); with a TTY, it is a raw byte
// stream. The caller must Close the returned reader to release the
// underlying connection.
func (c *Client) LogsStream(ctx context.Context, name string, follow bool, tail string) (io.ReadCloser, error) {
	return c.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       tail,
	})
}

// StatsStream returns the newline-delimited JSON stats stream for a
// container. The caller must Close the returned reader to release the
// underlying connection.
func (c *Client) StatsStream(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := c.cli.ContainerStats(ctx, name, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
