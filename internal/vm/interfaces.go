package vm

import (
	"context"

	"github.com/digitalocean/go-libvirt"

	"github.com/corralvm/corral/internal/storage"
)

// libvirtClient defines the libvirt operations the apply path needs.
//
// In production this is satisfied by *libvirt.Libvirt directly; tests use
// mock implementations.
type libvirtClient interface {
	// DomainLookupByName looks up a domain by name.
	DomainLookupByName(name string) (libvirt.Domain, error)

	// DomainDefineXML defines a domain from XML without starting it.
	DomainDefineXML(xml string) (libvirt.Domain, error)

	// DomainSetAutostart sets autostart for a domain.
	DomainSetAutostart(dom libvirt.Domain, autostart int32) error
}

// storageManager defines the storage operations the apply path needs.
//
// In production this is satisfied by *storage.Manager; tests use mock
// implementations.
type storageManager interface {
	// EnsureDefaultPools ensures the corral-images and corral-vms pools exist.
	EnsureDefaultPools(ctx context.Context) error

	// VolumeExists checks if a volume exists in a pool.
	VolumeExists(ctx context.Context, poolName, volumeName string) (bool, error)

	// CreateVolume creates a new volume in a pool.
	CreateVolume(ctx context.Context, poolName string, spec storage.VolumeSpec) error

	// UploadVolume creates a raw volume and uploads data into it.
	UploadVolume(ctx context.Context, poolName, volumeName string, data []byte) error
}
