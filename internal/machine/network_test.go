package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNetwork_Private(t *testing.T) {
	d := NewDefinition("web")

	err := d.AddNetwork(NetworkPrivate, []Setting{
		{Key: "ip", Value: "10.20.30.40"},
		{Key: "netmask", Value: "255.255.255.0"},
	})
	require.NoError(t, err)

	require.Len(t, d.Networks, 1)
	n := d.Networks[0]
	assert.Equal(t, NetworkPrivate, n.Kind)
	assert.Equal(t, "10.20.30.40", n.IP)
	assert.Equal(t, "255.255.255.0", n.Netmask)
	assert.False(t, n.DHCP)
}

func TestAddNetwork_PrivateDHCP(t *testing.T) {
	d := NewDefinition("web")

	err := d.AddNetwork(NetworkPrivate, []Setting{
		{Key: "type", Value: "dhcp"},
		{Key: "mac", Value: "52:54:00:12:34:56"},
	})
	require.NoError(t, err)

	require.Len(t, d.Networks, 1)
	assert.True(t, d.Networks[0].DHCP)
	assert.Equal(t, "52:54:00:12:34:56", d.Networks[0].MAC)
}

func TestAddNetwork_PrivateBadType(t *testing.T) {
	d := NewDefinition("web")

	err := d.AddNetwork(NetworkPrivate, []Setting{
		{Key: "type", Value: "bootp"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAssignment)
}

func TestAddNetwork_Public(t *testing.T) {
	d := NewDefinition("web")

	err := d.AddNetwork(NetworkPublic, []Setting{
		{Key: "dev", Value: "eth0"},
		{Key: "mode", Value: "bridge"},
	})
	require.NoError(t, err)

	require.Len(t, d.Networks, 1)
	assert.Equal(t, NetworkPublic, d.Networks[0].Kind)
	assert.Equal(t, "eth0", d.Networks[0].Dev)
	assert.Equal(t, "bridge", d.Networks[0].Mode)
}

func TestAddNetwork_ForwardedPortRouting(t *testing.T) {
	d := NewDefinition("web")

	err := d.AddNetwork(NetworkForwarded, []Setting{
		{Key: "guest", Value: 80},
		{Key: "host", Value: 8080},
	})
	require.NoError(t, err)

	// Forwarded ports never become interfaces.
	assert.Empty(t, d.Networks)
	require.Len(t, d.ForwardedPorts, 1)
	assert.Equal(t, ForwardedPort{Guest: 80, Host: 8080, Protocol: "tcp"}, d.ForwardedPorts[0])
}

func TestAddNetwork_ForwardedPortUDP(t *testing.T) {
	d := NewDefinition("web")

	err := d.AddNetwork(NetworkForwarded, []Setting{
		{Key: "guest", Value: 53},
		{Key: "host", Value: 5353},
		{Key: "protocol", Value: "udp"},
		{Key: "host_ip", Value: "127.0.0.1"},
	})
	require.NoError(t, err)

	require.Len(t, d.ForwardedPorts, 1)
	p := d.ForwardedPorts[0]
	assert.Equal(t, "udp", p.Protocol)
	assert.Equal(t, "127.0.0.1", p.HostIP)
}

func TestAddNetwork_UnknownKind(t *testing.T) {
	d := NewDefinition("web")

	err := d.AddNetwork("mesh_network", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAssignment)
}

func TestAddNetwork_UnknownKey(t *testing.T) {
	d := NewDefinition("web")

	// mode is a public_network key, not a private one.
	err := d.AddNetwork(NetworkPrivate, []Setting{
		{Key: "mode", Value: "bridge"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAssignment)
	assert.Empty(t, d.Networks)
}

func TestAddNetwork_OrderPreserved(t *testing.T) {
	d := NewDefinition("web")

	require.NoError(t, d.AddNetwork(NetworkPrivate, []Setting{{Key: "ip", Value: "10.0.0.2"}}))
	require.NoError(t, d.AddNetwork(NetworkPublic, []Setting{{Key: "bridge", Value: "br0"}}))
	require.NoError(t, d.AddNetwork(NetworkPrivate, []Setting{{Key: "ip", Value: "10.0.1.2"}}))

	require.Len(t, d.Networks, 3)
	assert.Equal(t, "10.0.0.2", d.Networks[0].IP)
	assert.Equal(t, NetworkPublic, d.Networks[1].Kind)
	assert.Equal(t, "10.0.1.2", d.Networks[2].IP)
}
