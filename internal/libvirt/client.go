package libvirt

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
)

// Defaults for the local qemu:///system daemon.
const (
	DefaultSocketPath  = "/var/run/libvirt/libvirt-sock"
	DefaultDialTimeout = 5 * time.Second
)

// Client owns the libvirt connection for one apply run. The translation
// and apply layers never dial sockets themselves.
type Client struct {
	libvirt *libvirt.Libvirt
}

// ConnectWithContext dials the libvirt daemon over its local socket.
// Empty socketPath and zero timeout select the defaults. The context
// bounds the dial only, not the connection's lifetime.
func ConnectWithContext(ctx context.Context, socketPath string, timeout time.Duration) (*Client, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	type result struct {
		client *Client
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		l := libvirt.NewWithDialer(dialers.NewLocal(
			dialers.WithSocket(socketPath),
			dialers.WithLocalTimeout(timeout),
		))
		if err := l.Connect(); err != nil {
			resultCh <- result{err: fmt.Errorf("failed to connect to libvirt at %s: %w", socketPath, err)}
			return
		}
		resultCh <- result{client: &Client{libvirt: l}}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
	case res := <-resultCh:
		return res.client, res.err
	}
}

// Close disconnects from the daemon. Safe to call on a zero Client.
func (c *Client) Close() error {
	if c.libvirt == nil {
		return nil
	}

	if err := c.libvirt.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from libvirt: %w", err)
	}

	return nil
}

// Libvirt exposes the underlying go-libvirt client for direct API calls.
func (c *Client) Libvirt() *libvirt.Libvirt {
	return c.libvirt
}
