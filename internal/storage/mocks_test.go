package storage

import (
	"fmt"
	"io"

	"github.com/digitalocean/go-libvirt"
)

// mockLibvirtClient implements LibvirtClient, recording calls and serving
// canned state.
type mockLibvirtClient struct {
	// pools that lookups succeed for
	pools map[string]bool
	// volumes present per pool: pool name -> volume name -> path
	volumes map[string]map[string]string

	defineErr    error
	buildErr     error
	createErr    error
	autostartErr error
	volCreateErr error
	uploadErr    error

	definedXML   []string
	builtPools   []string
	startedPools []string
	autostarted  []string
	undefined    []string

	createdVolXML []string
	uploadedData  map[string][]byte
}

func newMockLibvirtClient() *mockLibvirtClient {
	return &mockLibvirtClient{
		pools:        map[string]bool{},
		volumes:      map[string]map[string]string{},
		uploadedData: map[string][]byte{},
	}
}

func (m *mockLibvirtClient) addPool(name string) {
	m.pools[name] = true
}

func (m *mockLibvirtClient) addVolume(pool, name, path string) {
	if m.volumes[pool] == nil {
		m.volumes[pool] = map[string]string{}
	}
	m.volumes[pool][name] = path
}

func (m *mockLibvirtClient) StoragePoolLookupByName(name string) (libvirt.StoragePool, error) {
	if !m.pools[name] {
		return libvirt.StoragePool{}, fmt.Errorf("storage pool not found: %s", name)
	}
	return libvirt.StoragePool{Name: name}, nil
}

func (m *mockLibvirtClient) StoragePoolDefineXML(xml string, flags uint32) (libvirt.StoragePool, error) {
	if m.defineErr != nil {
		return libvirt.StoragePool{}, m.defineErr
	}
	m.definedXML = append(m.definedXML, xml)
	return libvirt.StoragePool{Name: "defined"}, nil
}

func (m *mockLibvirtClient) StoragePoolCreate(pool libvirt.StoragePool, flags libvirt.StoragePoolCreateFlags) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.startedPools = append(m.startedPools, pool.Name)
	return nil
}

func (m *mockLibvirtClient) StoragePoolBuild(pool libvirt.StoragePool, flags libvirt.StoragePoolBuildFlags) error {
	if m.buildErr != nil {
		return m.buildErr
	}
	m.builtPools = append(m.builtPools, pool.Name)
	return nil
}

func (m *mockLibvirtClient) StoragePoolSetAutostart(pool libvirt.StoragePool, autostart int32) error {
	if m.autostartErr != nil {
		return m.autostartErr
	}
	m.autostarted = append(m.autostarted, pool.Name)
	return nil
}

func (m *mockLibvirtClient) StoragePoolUndefine(pool libvirt.StoragePool) error {
	m.undefined = append(m.undefined, pool.Name)
	return nil
}

func (m *mockLibvirtClient) StorageVolLookupByName(pool libvirt.StoragePool, name string) (libvirt.StorageVol, error) {
	if _, ok := m.volumes[pool.Name][name]; !ok {
		return libvirt.StorageVol{}, fmt.Errorf("storage vol not found: %s", name)
	}
	return libvirt.StorageVol{Pool: pool.Name, Name: name}, nil
}

func (m *mockLibvirtClient) StorageVolGetPath(vol libvirt.StorageVol) (string, error) {
	path, ok := m.volumes[vol.Pool][vol.Name]
	if !ok {
		return "", fmt.Errorf("storage vol not found: %s", vol.Name)
	}
	return path, nil
}

func (m *mockLibvirtClient) StorageVolCreateXML(pool libvirt.StoragePool, xml string, flags libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error) {
	if m.volCreateErr != nil {
		return libvirt.StorageVol{}, m.volCreateErr
	}
	m.createdVolXML = append(m.createdVolXML, xml)
	return libvirt.StorageVol{Pool: pool.Name, Name: "created"}, nil
}

func (m *mockLibvirtClient) StorageVolUpload(vol libvirt.StorageVol, outStream io.Reader, offset uint64, length uint64, flags libvirt.StorageVolUploadFlags) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(outStream)
	if err != nil {
		return err
	}
	m.uploadedData[vol.Name] = data
	return nil
}
