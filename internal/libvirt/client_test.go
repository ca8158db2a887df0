package libvirt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithContext_MissingSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "no-such.sock")

	_, err := ConnectWithContext(context.Background(), socket, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), socket)
}

func TestConnectWithContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectWithContext(ctx, filepath.Join(t.TempDir(), "no-such.sock"), time.Second)
	require.Error(t, err)
}

func TestClientClose_NotConnected(t *testing.T) {
	c := &Client{}
	assert.NoError(t, c.Close())
}
