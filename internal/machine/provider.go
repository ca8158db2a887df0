package machine

import "fmt"

// Provider type tags recognized by ConfigureProvider. Libvirt and QEMU are
// the two built-in integrations: the configurator always applies the node's
// display name, memory and cpu count to both, whether or not the user
// declared them.
const (
	ProviderLibvirt = "libvirt"
	ProviderQEMU    = "qemu"
)

// Provider is a scoped provider-configuration context. Settings land
// through Assign (closed dispatch) and can be read back via Settings.
type Provider interface {
	ProviderKind() string
	Assign(key string, value any) error
	SetDisplayName(name string)
	SetMemory(mib int)
	SetCPUs(count int)
	Settings() map[string]any
}

func newProvider(kind string) (Provider, error) {
	switch kind {
	case ProviderLibvirt:
		return &LibvirtProvider{}, nil
	case ProviderQEMU:
		return &QEMUProvider{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider type %q", ErrInvalidAssignment, kind)
	}
}

// LibvirtProvider carries libvirt-specific domain settings.
type LibvirtProvider struct {
	DisplayName string `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Memory      int    `yaml:"memory,omitempty" json:"memory,omitempty"`
	CPUs        int    `yaml:"cpus,omitempty" json:"cpus,omitempty"`
	CPUMode     string `yaml:"cpu_mode,omitempty" json:"cpu_mode,omitempty"`
	Machine     string `yaml:"machine,omitempty" json:"machine,omitempty"`
	Driver      string `yaml:"driver,omitempty" json:"driver,omitempty"`
	VideoType   string `yaml:"video_type,omitempty" json:"video_type,omitempty"`
	Nested      bool   `yaml:"nested,omitempty" json:"nested,omitempty"`
}

// ProviderKind implements Provider.
func (p *LibvirtProvider) ProviderKind() string { return ProviderLibvirt }

// Assign implements Provider.
func (p *LibvirtProvider) Assign(key string, value any) error {
	table := map[string]func(any) error{
		"memory":     func(v any) (err error) { p.Memory, err = intValue(v); return },
		"cpus":       func(v any) (err error) { p.CPUs, err = intValue(v); return },
		"cpu_mode":   func(v any) (err error) { p.CPUMode, err = stringValue(v); return },
		"machine":    func(v any) (err error) { p.Machine, err = stringValue(v); return },
		"driver":     func(v any) (err error) { p.Driver, err = stringValue(v); return },
		"video_type": func(v any) (err error) { p.VideoType, err = stringValue(v); return },
		"nested":     func(v any) (err error) { p.Nested, err = boolValue(v); return },
	}
	return applySettings(ProviderLibvirt, table, []Setting{{Key: key, Value: value}})
}

// SetDisplayName implements Provider.
func (p *LibvirtProvider) SetDisplayName(name string) { p.DisplayName = name }

// SetMemory implements Provider.
func (p *LibvirtProvider) SetMemory(mib int) { p.Memory = mib }

// SetCPUs implements Provider.
func (p *LibvirtProvider) SetCPUs(count int) { p.CPUs = count }

// Settings implements Provider.
func (p *LibvirtProvider) Settings() map[string]any {
	s := map[string]any{}
	if p.Memory != 0 {
		s["memory"] = p.Memory
	}
	if p.CPUs != 0 {
		s["cpus"] = p.CPUs
	}
	if p.CPUMode != "" {
		s["cpu_mode"] = p.CPUMode
	}
	if p.Machine != "" {
		s["machine"] = p.Machine
	}
	if p.Driver != "" {
		s["driver"] = p.Driver
	}
	if p.VideoType != "" {
		s["video_type"] = p.VideoType
	}
	if p.Nested {
		s["nested"] = true
	}
	return s
}

// QEMUProvider carries QEMU-specific domain settings.
type QEMUProvider struct {
	DisplayName string `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Memory      int    `yaml:"memory,omitempty" json:"memory,omitempty"`
	CPUs        int    `yaml:"cpus,omitempty" json:"cpus,omitempty"`
	Arch        string `yaml:"arch,omitempty" json:"arch,omitempty"`
	Machine     string `yaml:"machine,omitempty" json:"machine,omitempty"`
	Accel       string `yaml:"accel,omitempty" json:"accel,omitempty"`
	SSHPort     int    `yaml:"ssh_port,omitempty" json:"ssh_port,omitempty"`
}

// ProviderKind implements Provider.
func (p *QEMUProvider) ProviderKind() string { return ProviderQEMU }

// Assign implements Provider.
func (p *QEMUProvider) Assign(key string, value any) error {
	table := map[string]func(any) error{
		"memory":   func(v any) (err error) { p.Memory, err = intValue(v); return },
		"cpus":     func(v any) (err error) { p.CPUs, err = intValue(v); return },
		"arch":     func(v any) (err error) { p.Arch, err = stringValue(v); return },
		"machine":  func(v any) (err error) { p.Machine, err = stringValue(v); return },
		"accel":    func(v any) (err error) { p.Accel, err = stringValue(v); return },
		"ssh_port": func(v any) (err error) { p.SSHPort, err = intValue(v); return },
	}
	return applySettings(ProviderQEMU, table, []Setting{{Key: key, Value: value}})
}

// SetDisplayName implements Provider.
func (p *QEMUProvider) SetDisplayName(name string) { p.DisplayName = name }

// SetMemory implements Provider.
func (p *QEMUProvider) SetMemory(mib int) { p.Memory = mib }

// SetCPUs implements Provider.
func (p *QEMUProvider) SetCPUs(count int) { p.CPUs = count }

// Settings implements Provider.
func (p *QEMUProvider) Settings() map[string]any {
	s := map[string]any{}
	if p.Memory != 0 {
		s["memory"] = p.Memory
	}
	if p.CPUs != 0 {
		s["cpus"] = p.CPUs
	}
	if p.Arch != "" {
		s["arch"] = p.Arch
	}
	if p.Machine != "" {
		s["machine"] = p.Machine
	}
	if p.Accel != "" {
		s["accel"] = p.Accel
	}
	if p.SSHPort != 0 {
		s["ssh_port"] = p.SSHPort
	}
	return s
}
