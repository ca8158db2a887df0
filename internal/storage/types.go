package storage

import "fmt"

// PoolType identifies the kind of storage pool.
type PoolType string

const (
	// PoolTypeDir is a directory-backed pool.
	PoolTypeDir PoolType = "dir"
)

// Default pools: box images live in one pool, per-node volumes (boot disks
// and seed ISOs) in another.
const (
	DefaultImagesPool = "corral-images"
	DefaultVMsPool    = "corral-vms"

	DefaultImagesPath = "/var/lib/libvirt/corral/images"
	DefaultVMsPath    = "/var/lib/libvirt/corral/vms"
)

// VolumeSpec describes a volume to create.
type VolumeSpec struct {
	Name string
	// CapacityBytes is the volume capacity. Zero is allowed only with a
	// backing volume, where capacity follows the backing image.
	CapacityBytes uint64
	// Format is the volume format, e.g. "qcow2" or "raw".
	Format string
	// BackingPool/BackingVolume reference a base image to back a qcow2
	// volume with. Both empty means no backing store.
	BackingPool   string
	BackingVolume string
}

// Validate checks the volume spec.
func (s *VolumeSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("volume name is required")
	}
	if s.Format == "" {
		return fmt.Errorf("volume format is required")
	}
	if (s.BackingPool == "") != (s.BackingVolume == "") {
		return fmt.Errorf("backing pool and backing volume must be set together")
	}
	if s.CapacityBytes == 0 && s.BackingVolume == "" {
		return fmt.Errorf("capacity is required without a backing volume")
	}
	return nil
}
