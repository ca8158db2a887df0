// Package storage manages the libvirt storage pools and volumes the apply
// path needs: the box image pool, per-node boot volumes backed by box
// images, and seed ISO volumes.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/digitalocean/go-libvirt"
	libvirtxml "libvirt.org/go/libvirtxml"
)

// LibvirtClient is the subset of libvirt storage operations the manager
// uses. In production it is satisfied by *libvirt.Libvirt; tests supply
// mocks.
type LibvirtClient interface {
	StoragePoolLookupByName(Name string) (libvirt.StoragePool, error)
	StoragePoolDefineXML(XML string, Flags uint32) (libvirt.StoragePool, error)
	StoragePoolCreate(Pool libvirt.StoragePool, Flags libvirt.StoragePoolCreateFlags) error
	StoragePoolBuild(Pool libvirt.StoragePool, Flags libvirt.StoragePoolBuildFlags) error
	StoragePoolSetAutostart(Pool libvirt.StoragePool, Autostart int32) error
	StoragePoolUndefine(Pool libvirt.StoragePool) error
	StorageVolLookupByName(Pool libvirt.StoragePool, Name string) (libvirt.StorageVol, error)
	StorageVolGetPath(Vol libvirt.StorageVol) (string, error)
	StorageVolCreateXML(Pool libvirt.StoragePool, XML string, Flags libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error)
	StorageVolUpload(Vol libvirt.StorageVol, outStream io.Reader, Offset uint64, Length uint64, Flags libvirt.StorageVolUploadFlags) error
}

// Manager coordinates pool and volume operations.
type Manager struct {
	client LibvirtClient
}

// NewManager creates a storage manager over a libvirt client.
func NewManager(client LibvirtClient) *Manager {
	return &Manager{client: client}
}

// EnsureDefaultPools ensures the corral-images and corral-vms pools exist.
func (m *Manager) EnsureDefaultPools(ctx context.Context) error {
	if err := m.EnsurePool(ctx, DefaultImagesPool, PoolTypeDir, DefaultImagesPath); err != nil {
		return fmt.Errorf("failed to ensure images pool: %w", err)
	}

	if err := m.EnsurePool(ctx, DefaultVMsPool, PoolTypeDir, DefaultVMsPath); err != nil {
		return fmt.Errorf("failed to ensure VMs pool: %w", err)
	}

	return nil
}

// EnsurePool ensures a storage pool exists, creating it if necessary.
func (m *Manager) EnsurePool(ctx context.Context, name string, poolType PoolType, path string) error {
	if _, err := m.client.StoragePoolLookupByName(name); err == nil {
		return nil
	}

	return m.createPool(ctx, name, poolType, path)
}

func (m *Manager) createPool(ctx context.Context, name string, poolType PoolType, path string) error {
	if poolType != PoolTypeDir {
		return fmt.Errorf("unsupported pool type: %s", poolType)
	}

	poolXML, err := generateDirPoolXML(name, path)
	if err != nil {
		return fmt.Errorf("failed to generate pool XML: %w", err)
	}

	pool, err := m.client.StoragePoolDefineXML(poolXML, 0)
	if err != nil {
		return fmt.Errorf("failed to define pool: %w", err)
	}

	if err := m.client.StoragePoolBuild(pool, 0); err != nil {
		_ = m.client.StoragePoolUndefine(pool)
		return fmt.Errorf("failed to build pool: %w", err)
	}

	if err := m.client.StoragePoolCreate(pool, 0); err != nil {
		_ = m.client.StoragePoolUndefine(pool)
		return fmt.Errorf("failed to start pool: %w", err)
	}

	if err := m.client.StoragePoolSetAutostart(pool, 1); err != nil {
		return fmt.Errorf("pool created but failed to set autostart: %w", err)
	}

	return nil
}

// VolumeExists checks whether a volume exists in a pool.
func (m *Manager) VolumeExists(ctx context.Context, poolName, volumeName string) (bool, error) {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return false, fmt.Errorf("pool not found: %w", err)
	}

	if _, err := m.client.StorageVolLookupByName(pool, volumeName); err != nil {
		// Lookup failure means the volume is absent.
		return false, nil
	}

	return true, nil
}

// CreateVolume creates a volume in the given pool, optionally backed by an
// existing image volume.
func (m *Manager) CreateVolume(ctx context.Context, poolName string, spec VolumeSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid volume spec: %w", err)
	}

	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return fmt.Errorf("pool not found: %w", err)
	}

	volumeXML, err := m.generateVolumeXML(spec)
	if err != nil {
		return fmt.Errorf("failed to generate volume XML: %w", err)
	}

	if _, err := m.client.StorageVolCreateXML(pool, volumeXML, 0); err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}

	return nil
}

// UploadVolume creates a raw volume of exactly len(data) bytes and uploads
// the data into it. Used for seed ISOs.
func (m *Manager) UploadVolume(ctx context.Context, poolName, volumeName string, data []byte) error {
	pool, err := m.client.StoragePoolLookupByName(poolName)
	if err != nil {
		return fmt.Errorf("pool not found: %w", err)
	}

	volumeXML, err := m.generateVolumeXML(VolumeSpec{
		Name:          volumeName,
		CapacityBytes: uint64(len(data)),
		Format:        "raw",
	})
	if err != nil {
		return fmt.Errorf("failed to generate volume XML: %w", err)
	}

	vol, err := m.client.StorageVolCreateXML(pool, volumeXML, 0)
	if err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}

	if err := m.client.StorageVolUpload(vol, bytes.NewReader(data), 0, uint64(len(data)), 0); err != nil {
		return fmt.Errorf("failed to upload volume data: %w", err)
	}

	return nil
}

func generateDirPoolXML(name, path string) (string, error) {
	pool := &libvirtxml.StoragePool{
		Type: string(PoolTypeDir),
		Name: name,
		Target: &libvirtxml.StoragePoolTarget{
			Path: path,
		},
	}

	return pool.Marshal()
}

func (m *Manager) generateVolumeXML(spec VolumeSpec) (string, error) {
	volume := &libvirtxml.StorageVolume{
		Name: spec.Name,
		Capacity: &libvirtxml.StorageVolumeSize{
			Value: spec.CapacityBytes,
			Unit:  "bytes",
		},
		Target: &libvirtxml.StorageVolumeTarget{
			Format: &libvirtxml.StorageVolumeTargetFormat{Type: spec.Format},
		},
	}

	if spec.BackingVolume != "" {
		backingPool, err := m.client.StoragePoolLookupByName(spec.BackingPool)
		if err != nil {
			return "", fmt.Errorf("backing pool not found: %w", err)
		}

		backingVol, err := m.client.StorageVolLookupByName(backingPool, spec.BackingVolume)
		if err != nil {
			return "", fmt.Errorf("backing volume not found: %w", err)
		}

		backingPath, err := m.client.StorageVolGetPath(backingVol)
		if err != nil {
			return "", fmt.Errorf("failed to resolve backing volume path: %w", err)
		}

		volume.BackingStore = &libvirtxml.StorageVolumeBackingStore{
			Path:   backingPath,
			Format: &libvirtxml.StorageVolumeTargetFormat{Type: "qcow2"},
		}
	}

	return volume.Marshal()
}
