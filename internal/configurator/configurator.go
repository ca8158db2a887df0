// Package configurator projects parsed fleet configuration onto per-node
// VM definitions.
package configurator

import (
	"fmt"

	"github.com/corralvm/corral/internal/config"
	"github.com/corralvm/corral/internal/hooks"
	"github.com/corralvm/corral/internal/machine"
)

// Configurator turns node declarations into VM definitions. The hook
// registry is injected at construction; the configurator owns no globals.
type Configurator struct {
	hooks *hooks.Registry
}

// New returns a configurator using the given hook registry.
func New(registry *hooks.Registry) *Configurator {
	return &Configurator{hooks: registry}
}

// Configure builds one VM definition per node entry, in document order.
// The first error aborts the whole pass; there is no per-node isolation.
func (c *Configurator) Configure(doc *config.Document) ([]*machine.Definition, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	defs := make([]*machine.Definition, 0, len(doc.Nodes))
	for _, node := range doc.Nodes {
		def, err := c.configureNode(doc, node)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", node.Name, err)
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// configureNode runs every projection for a single node against a fresh
// definition. Each projection is independent; an absent field skips its
// projection entirely.
func (c *Configurator) configureNode(doc *config.Document, node config.Node) (*machine.Definition, error) {
	def := machine.NewDefinition(node.Name)
	spec := node.Spec

	// Basic info. The box URL override applies only when the box
	// identifier is a key of the boxes mapping.
	if spec.Box != "" {
		def.SetBox(spec.Box)
		if url, ok := doc.Boxes[spec.Box]; ok {
			def.SetBoxURL(url)
		}
	}
	if spec.Hostname != "" {
		def.SetHostname(spec.Hostname)
	}
	def.Memory = spec.Memory
	def.CPUs = spec.CPUs
	def.SSHKeys = append(def.SSHKeys, spec.SSHKeys...)

	// Networks, in declaration order.
	for i, entry := range spec.Networks {
		if err := def.AddNetwork(entry.Kind, toSettings(entry.Params)); err != nil {
			return nil, fmt.Errorf("networks[%d]: %w", i, err)
		}
	}

	// Synced folders. An empty type defers to the hypervisor default.
	for _, folder := range spec.SyncedFolders {
		def.AddSyncedFolder(folder.Host, folder.Guest, folder.Type)
	}

	// Forwarded ports.
	for _, port := range spec.ForwardedPorts {
		def.AddForwardedPort(machine.ForwardedPort{
			Guest:    port.Guest,
			Host:     port.Host,
			Protocol: port.Protocol,
			HostIP:   port.HostIP,
		})
	}

	// Provisioners: a scoped context per entry, settings via closed
	// dispatch, the reserved "arguments" key flattened positionally.
	for i, entry := range spec.Provisioners {
		prov, err := def.AddProvisioner(entry.Kind)
		if err != nil {
			return nil, fmt.Errorf("provisioners[%d]: %w", i, err)
		}

		for _, param := range entry.Params {
			if machine.NormalizeKey(param.Key) == "arguments" {
				args, err := machine.FlattenArguments(param.Value)
				if err != nil {
					return nil, fmt.Errorf("provisioners[%d]: %w", i, err)
				}
				prov.SetArguments(args)
				continue
			}

			if err := prov.Assign(param.Key, param.Value); err != nil {
				return nil, fmt.Errorf("provisioners[%d]: %w", i, err)
			}
		}
	}

	// User-declared providers.
	for _, entry := range spec.Providers {
		prov, err := def.ConfigureProvider(entry.Kind)
		if err != nil {
			return nil, fmt.Errorf("providers.%s: %w", entry.Kind, err)
		}

		for _, param := range entry.Params {
			if err := prov.Assign(param.Key, param.Value); err != nil {
				return nil, fmt.Errorf("providers.%s: %w", entry.Kind, err)
			}
		}
	}

	// Built-in provider integrations, applied unconditionally after the
	// generic loop so their display name and memory/cpu values win.
	if err := c.applyBuiltinProviders(def, node.Name, spec); err != nil {
		return nil, err
	}

	// External hooks, resolved through the registry.
	for _, name := range spec.ExternalFunctions {
		if err := c.hooks.Invoke(name, def); err != nil {
			return nil, err
		}
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return def, nil
}

func (c *Configurator) applyBuiltinProviders(def *machine.Definition, name string, spec config.NodeSpec) error {
	for _, kind := range []string{machine.ProviderLibvirt, machine.ProviderQEMU} {
		prov, err := def.ConfigureProvider(kind)
		if err != nil {
			return fmt.Errorf("providers.%s: %w", kind, err)
		}

		prov.SetDisplayName(name)
		if spec.Memory > 0 {
			prov.SetMemory(spec.Memory)
		}
		if spec.CPUs > 0 {
			prov.SetCPUs(spec.CPUs)
		}
	}
	return nil
}

func toSettings(params []config.Param) []machine.Setting {
	settings := make([]machine.Setting, len(params))
	for i, p := range params {
		settings[i] = machine.Setting{Key: p.Key, Value: p.Value}
	}
	return settings
}
