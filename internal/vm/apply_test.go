package vm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libvirt.org/go/libvirtxml"

	"github.com/corralvm/corral/internal/config"
	"github.com/corralvm/corral/internal/hooks"
	"github.com/corralvm/corral/internal/machine"
	"github.com/corralvm/corral/internal/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "corral.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPlan(t *testing.T) {
	path := writeConfig(t, `boxes:
  ubuntu/noble: https://images.example.com/noble.qcow2
nodes:
  web:
    box: ubuntu/noble
    memory: 512
  db:
    box: ubuntu/noble
`)

	defs, err := Plan(path, hooks.DefaultRegistry())
	require.NoError(t, err)

	require.Len(t, defs, 2)
	assert.Equal(t, "web", defs[0].Name)
	assert.Equal(t, "db", defs[1].Name)
	assert.Equal(t, 512, defs[0].Memory)
}

func TestPlan_MissingConfig(t *testing.T) {
	_, err := Plan(filepath.Join(t.TempDir(), "no-such.yaml"), hooks.DefaultRegistry())
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfigMissing)
}

func planDefs(t *testing.T, content string) []*machine.Definition {
	t.Helper()

	defs, err := Plan(writeConfig(t, content), hooks.DefaultRegistry())
	require.NoError(t, err)
	return defs
}

func TestApply_DefinesDomains(t *testing.T) {
	defs := planDefs(t, `boxes:
  ubuntu/noble: https://images.example.com/noble.qcow2
nodes:
  web:
    box: ubuntu/noble
    hostname: web1
  db:
    box: ubuntu/noble
`)

	lv := newMockLibvirtClient()
	sm := newMockStorageManager()
	sm.addVolume(storage.DefaultImagesPool, "ubuntu-noble.qcow2")

	require.NoError(t, applyWithDeps(context.Background(), defs, lv, sm))

	assert.Equal(t, 1, sm.ensured)

	// One boot volume per node, backed by the box image.
	require.Len(t, sm.created, 2)
	assert.Equal(t, storage.DefaultVMsPool, sm.created[0].pool)
	assert.Equal(t, "web_boot.qcow2", sm.created[0].spec.Name)
	assert.Equal(t, "ubuntu-noble.qcow2", sm.created[0].spec.BackingVolume)
	assert.Equal(t, "db_boot.qcow2", sm.created[1].spec.Name)

	// web has a hostname, so it gets a seed; db carries nothing to
	// provision.
	require.Len(t, sm.uploaded, 1)
	assert.Equal(t, "web_seed.iso", sm.uploaded[0].name)
	assert.Greater(t, sm.uploaded[0].size, 0)

	require.Len(t, lv.definedXML, 2)
	var first libvirtxml.Domain
	require.NoError(t, first.Unmarshal(lv.definedXML[0]))
	assert.Equal(t, "web", first.Name)

	assert.Empty(t, lv.autostart)
}

func TestApply_DomainAlreadyExists(t *testing.T) {
	defs := planDefs(t, `nodes:
  web: {}
`)

	lv := newMockLibvirtClient()
	lv.existingDomains["web"] = true
	sm := newMockStorageManager()

	err := applyWithDeps(context.Background(), defs, lv, sm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "web"`)
	assert.Contains(t, err.Error(), "already exists")
	assert.Empty(t, lv.definedXML)
}

func TestApply_MissingBoxImage(t *testing.T) {
	defs := planDefs(t, `boxes:
  ubuntu/noble: https://images.example.com/noble.qcow2
nodes:
  web:
    box: ubuntu/noble
`)

	lv := newMockLibvirtClient()
	sm := newMockStorageManager()

	err := applyWithDeps(context.Background(), defs, lv, sm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `box image "ubuntu-noble.qcow2" not found`)
	// The box URL override improves the error.
	assert.Contains(t, err.Error(), "https://images.example.com/noble.qcow2")
	assert.Empty(t, sm.created)
}

func TestApply_MissingBoxImageWithoutURL(t *testing.T) {
	defs := planDefs(t, `nodes:
  web:
    box: custombox
`)

	lv := newMockLibvirtClient()
	sm := newMockStorageManager()

	err := applyWithDeps(context.Background(), defs, lv, sm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `box image "custombox.qcow2" not found`)
	assert.NotContains(t, err.Error(), "fetch it from")
}

func TestApply_NoBoxSkipsVolumes(t *testing.T) {
	defs := planDefs(t, `nodes:
  web: {}
`)

	lv := newMockLibvirtClient()
	sm := newMockStorageManager()

	require.NoError(t, applyWithDeps(context.Background(), defs, lv, sm))

	assert.Empty(t, sm.created)
	assert.Empty(t, sm.uploaded)
	assert.Len(t, lv.definedXML, 1)
}

func TestApply_Autostart(t *testing.T) {
	defs := planDefs(t, `nodes:
  web:
    external_functions:
      - autostart
`)

	lv := newMockLibvirtClient()
	sm := newMockStorageManager()

	require.NoError(t, applyWithDeps(context.Background(), defs, lv, sm))
	assert.Equal(t, []string{"defined-1"}, lv.autostart)
}

func TestApply_FirstErrorAborts(t *testing.T) {
	defs := planDefs(t, `nodes:
  web: {}
  db: {}
`)

	lv := newMockLibvirtClient()
	lv.existingDomains["db"] = false
	sm := newMockStorageManager()
	sm.ensureErr = errors.New("no socket")

	err := applyWithDeps(context.Background(), defs, lv, sm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure storage pools")
	assert.Empty(t, lv.definedXML)
}

func TestApply_DefineFailure(t *testing.T) {
	defs := planDefs(t, `nodes:
  web: {}
  db: {}
`)

	lv := newMockLibvirtClient()
	lv.defineErr = errors.New("xml rejected")
	sm := newMockStorageManager()

	err := applyWithDeps(context.Background(), defs, lv, sm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "web"`)
	assert.Contains(t, err.Error(), "failed to define domain")
}
