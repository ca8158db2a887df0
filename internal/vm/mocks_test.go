package vm

import (
	"context"
	"fmt"

	"github.com/digitalocean/go-libvirt"

	"github.com/corralvm/corral/internal/storage"
)

// mockLibvirtClient implements libvirtClient, recording defined domains.
type mockLibvirtClient struct {
	existingDomains map[string]bool

	defineErr    error
	autostartErr error

	definedXML []string
	autostart  []string
}

func newMockLibvirtClient() *mockLibvirtClient {
	return &mockLibvirtClient{existingDomains: map[string]bool{}}
}

func (m *mockLibvirtClient) DomainLookupByName(name string) (libvirt.Domain, error) {
	if !m.existingDomains[name] {
		return libvirt.Domain{}, fmt.Errorf("domain not found: %s", name)
	}
	return libvirt.Domain{Name: name}, nil
}

func (m *mockLibvirtClient) DomainDefineXML(xml string) (libvirt.Domain, error) {
	if m.defineErr != nil {
		return libvirt.Domain{}, m.defineErr
	}
	m.definedXML = append(m.definedXML, xml)
	return libvirt.Domain{Name: fmt.Sprintf("defined-%d", len(m.definedXML))}, nil
}

func (m *mockLibvirtClient) DomainSetAutostart(dom libvirt.Domain, autostart int32) error {
	if m.autostartErr != nil {
		return m.autostartErr
	}
	m.autostart = append(m.autostart, dom.Name)
	return nil
}

type createdVolume struct {
	pool string
	spec storage.VolumeSpec
}

type uploadedVolume struct {
	pool string
	name string
	size int
}

// mockStorageManager implements storageManager over in-memory state.
type mockStorageManager struct {
	existingVolumes map[string]bool

	ensureErr error
	createErr error
	uploadErr error

	ensured  int
	created  []createdVolume
	uploaded []uploadedVolume
}

func newMockStorageManager() *mockStorageManager {
	return &mockStorageManager{existingVolumes: map[string]bool{}}
}

func (m *mockStorageManager) addVolume(pool, name string) {
	m.existingVolumes[pool+"/"+name] = true
}

func (m *mockStorageManager) EnsureDefaultPools(ctx context.Context) error {
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.ensured++
	return nil
}

func (m *mockStorageManager) VolumeExists(ctx context.Context, poolName, volumeName string) (bool, error) {
	return m.existingVolumes[poolName+"/"+volumeName], nil
}

func (m *mockStorageManager) CreateVolume(ctx context.Context, poolName string, spec storage.VolumeSpec) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, createdVolume{pool: poolName, spec: spec})
	return nil
}

func (m *mockStorageManager) UploadVolume(ctx context.Context, poolName, volumeName string, data []byte) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.uploaded = append(m.uploaded, uploadedVolume{pool: poolName, name: volumeName, size: len(data)})
	return nil
}
