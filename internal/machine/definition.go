// Package machine models the per-node VM definition that the configurator
// builds and the hypervisor layer translates. All projections from the
// fleet configuration land here as typed setter calls; unknown keys fail
// with ErrInvalidAssignment at this boundary rather than at the
// hypervisor's.
package machine

import "fmt"

// Setting is one key/value pair headed for a dispatch table, in
// declaration order.
type Setting struct {
	Key   string
	Value any
}

// Definition is the VM definition object for a single node. One Definition
// is built per node entry; nothing is shared between nodes.
type Definition struct {
	Name     string `yaml:"name" json:"name"`
	Box      string `yaml:"box,omitempty" json:"box,omitempty"`
	BoxURL   string `yaml:"box_url,omitempty" json:"box_url,omitempty"`
	Hostname string `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	Memory   int    `yaml:"memory,omitempty" json:"memory,omitempty"`
	CPUs     int    `yaml:"cpus,omitempty" json:"cpus,omitempty"`

	Networks       []*Network      `yaml:"networks,omitempty" json:"networks,omitempty"`
	SyncedFolders  []SyncedFolder  `yaml:"synced_folders,omitempty" json:"synced_folders,omitempty"`
	ForwardedPorts []ForwardedPort `yaml:"forwarded_ports,omitempty" json:"forwarded_ports,omitempty"`
	Provisioners   []Provisioner   `yaml:"provisioners,omitempty" json:"provisioners,omitempty"`
	Providers      []Provider      `yaml:"providers,omitempty" json:"providers,omitempty"`

	SSHKeys []string `yaml:"ssh_keys,omitempty" json:"ssh_keys,omitempty"`

	// Hook-controlled extras. Hooks receive the definition and may toggle
	// these before translation.
	Autostart bool `yaml:"autostart,omitempty" json:"autostart,omitempty"`
	RNGDevice bool `yaml:"rng_device,omitempty" json:"rng_device,omitempty"`
	Graphics  bool `yaml:"graphics,omitempty" json:"graphics,omitempty"`
}

// NewDefinition returns a fresh definition for the named node.
func NewDefinition(name string) *Definition {
	return &Definition{Name: name}
}

// SetBox sets the box identifier the boot disk is backed by.
func (d *Definition) SetBox(box string) {
	d.Box = box
}

// SetBoxURL overrides the box image source URL.
func (d *Definition) SetBoxURL(url string) {
	d.BoxURL = url
}

// SetHostname sets the guest hostname.
func (d *Definition) SetHostname(hostname string) {
	d.Hostname = hostname
}

// SyncedFolder mounts a host path at a guest path.
type SyncedFolder struct {
	Host  string `yaml:"host" json:"host"`
	Guest string `yaml:"guest" json:"guest"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
}

// AddSyncedFolder appends a synced folder. An empty syncType leaves the
// mechanism to the hypervisor default.
func (d *Definition) AddSyncedFolder(host, guest, syncType string) {
	d.SyncedFolders = append(d.SyncedFolders, SyncedFolder{Host: host, Guest: guest, Type: syncType})
}

// ForwardedPort forwards a guest port to a host port.
type ForwardedPort struct {
	Guest    int    `yaml:"guest" json:"guest"`
	Host     int    `yaml:"host" json:"host"`
	Protocol string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	HostIP   string `yaml:"host_ip,omitempty" json:"host_ip,omitempty"`
}

// AddForwardedPort appends a forwarded port.
func (d *Definition) AddForwardedPort(p ForwardedPort) {
	if p.Protocol == "" {
		p.Protocol = "tcp"
	}
	d.ForwardedPorts = append(d.ForwardedPorts, p)
}

// AddProvisioner opens a scoped provisioner context of the given kind and
// appends it to the definition.
func (d *Definition) AddProvisioner(kind string) (Provisioner, error) {
	p, err := newProvisioner(kind)
	if err != nil {
		return nil, err
	}
	d.Provisioners = append(d.Provisioners, p)
	return p, nil
}

// ConfigureProvider returns the provider context of the given kind,
// creating and appending it on first use. Repeated configuration of the
// same provider type targets the same context, which is how the built-in
// integrations override earlier generic entries.
func (d *Definition) ConfigureProvider(kind string) (Provider, error) {
	for _, p := range d.Providers {
		if p.ProviderKind() == kind {
			return p, nil
		}
	}

	p, err := newProvider(kind)
	if err != nil {
		return nil, err
	}
	d.Providers = append(d.Providers, p)
	return p, nil
}

// Provider returns the provider context of the given kind, or nil if the
// definition never configured one.
func (d *Definition) Provider(kind string) Provider {
	for _, p := range d.Providers {
		if p.ProviderKind() == kind {
			return p
		}
	}
	return nil
}

// Validate checks the definition for internal consistency before
// translation.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("definition has no name")
	}
	for i, p := range d.ForwardedPorts {
		if p.Guest <= 0 || p.Host <= 0 {
			return fmt.Errorf("forwarded_ports[%d]: guest and host ports must be > 0", i)
		}
	}
	for i, f := range d.SyncedFolders {
		if f.Host == "" || f.Guest == "" {
			return fmt.Errorf("synced_folders[%d]: host and guest paths are required", i)
		}
	}
	return nil
}
