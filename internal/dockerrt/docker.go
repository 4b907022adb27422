// Package dockerrt wraps the Docker Engine API the way the monorepo's
// shared docker client library does: a typed Client over a Unix socket,
// pinging once at construction to fail fast on a bad socket path.
package dockerrt

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// Client is a thin, typed wrapper over the Docker Engine API.
type Client struct {
	cli *client.Client
}

// New dials the Docker daemon over a Unix socket and verifies it is
// reachable before returning.
func New(socketPath string) (*Client, error) {
	if socketPath == "" {
		socketPath = "/var/run/docker.sock"
	}

	cli, err := client.NewClientWithOpts(
		client.WithHost(fmt.Sprintf("unix://%s", socketPath)),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	ctx := context.Background()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("ping docker daemon: %w", err)
	}

	return &Client{cli: cli}, nil
}

// Close releases the underlying client connection.
func (c *Client) Close() error {
	return c.cli.Close()
}
