package machine

import "fmt"

// Provisioner type tags recognized by AddProvisioner.
const (
	ProvisionerShell   = "shell"
	ProvisionerAnsible = "ansible"
	ProvisionerFile    = "file"
)

// Provisioner is a scoped provisioner-configuration context. Settings land
// through Assign (closed dispatch); the reserved "arguments" key lands
// through SetArguments after flattening.
type Provisioner interface {
	ProvisionerKind() string
	Assign(key string, value any) error
	SetArguments(args []string)
	Arguments() []string
	Settings() map[string]any
}

func newProvisioner(kind string) (Provisioner, error) {
	switch kind {
	case ProvisionerShell:
		return &ShellProvisioner{}, nil
	case ProvisionerAnsible:
		return &AnsibleProvisioner{}, nil
	case ProvisionerFile:
		return &FileProvisioner{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provisioner type %q", ErrInvalidAssignment, kind)
	}
}

// FlattenArguments converts a sequence of {name, value} pairs into a flat
// positional argument list: for each pair, name if present, then value if
// present, preserving pair order.
func FlattenArguments(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: arguments must be a sequence of name/value pairs, got %T", ErrInvalidAssignment, v)
	}

	var args []string
	for i, item := range list {
		pair, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: arguments[%d] must be a name/value mapping, got %T", ErrInvalidAssignment, i, item)
		}

		for key := range pair {
			if key != "name" && key != "value" {
				return nil, fmt.Errorf("%w: arguments[%d] has unexpected key %q", ErrInvalidAssignment, i, key)
			}
		}

		if name, ok := pair["name"]; ok {
			s, err := scalarString(name)
			if err != nil {
				return nil, fmt.Errorf("arguments[%d].name: %w", i, err)
			}
			args = append(args, s)
		}
		if value, ok := pair["value"]; ok {
			s, err := scalarString(value)
			if err != nil {
				return nil, fmt.Errorf("arguments[%d].value: %w", i, err)
			}
			args = append(args, s)
		}
	}

	return args, nil
}

// ShellProvisioner runs an inline command or an uploaded script in the
// guest.
type ShellProvisioner struct {
	Inline     string            `yaml:"inline,omitempty" json:"inline,omitempty"`
	Path       string            `yaml:"path,omitempty" json:"path,omitempty"`
	UploadPath string            `yaml:"upload_path,omitempty" json:"upload_path,omitempty"`
	Privileged bool              `yaml:"privileged,omitempty" json:"privileged,omitempty"`
	Env        map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Args       []string          `yaml:"args,omitempty" json:"args,omitempty"`
}

// ProvisionerKind implements Provisioner.
func (p *ShellProvisioner) ProvisionerKind() string { return ProvisionerShell }

// Assign implements Provisioner.
func (p *ShellProvisioner) Assign(key string, value any) error {
	table := map[string]func(any) error{
		"inline":      func(v any) (err error) { p.Inline, err = stringValue(v); return },
		"path":        func(v any) (err error) { p.Path, err = stringValue(v); return },
		"upload_path": func(v any) (err error) { p.UploadPath, err = stringValue(v); return },
		"privileged":  func(v any) (err error) { p.Privileged, err = boolValue(v); return },
		"env":         func(v any) (err error) { p.Env, err = stringMapValue(v); return },
	}
	return applySettings(ProvisionerShell, table, []Setting{{Key: key, Value: value}})
}

// SetArguments implements Provisioner.
func (p *ShellProvisioner) SetArguments(args []string) { p.Args = args }

// Arguments implements Provisioner.
func (p *ShellProvisioner) Arguments() []string { return p.Args }

// Settings implements Provisioner.
func (p *ShellProvisioner) Settings() map[string]any {
	s := map[string]any{}
	if p.Inline != "" {
		s["inline"] = p.Inline
	}
	if p.Path != "" {
		s["path"] = p.Path
	}
	if p.UploadPath != "" {
		s["upload_path"] = p.UploadPath
	}
	if p.Privileged {
		s["privileged"] = true
	}
	if len(p.Env) > 0 {
		s["env"] = p.Env
	}
	return s
}

// AnsibleProvisioner runs a playbook against the guest.
type AnsibleProvisioner struct {
	Playbook  string            `yaml:"playbook,omitempty" json:"playbook,omitempty"`
	Limit     string            `yaml:"limit,omitempty" json:"limit,omitempty"`
	Verbose   bool              `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	ExtraVars map[string]string `yaml:"extra_vars,omitempty" json:"extra_vars,omitempty"`
	Args      []string          `yaml:"args,omitempty" json:"args,omitempty"`
}

// ProvisionerKind implements Provisioner.
func (p *AnsibleProvisioner) ProvisionerKind() string { return ProvisionerAnsible }

// Assign implements Provisioner.
func (p *AnsibleProvisioner) Assign(key string, value any) error {
	table := map[string]func(any) error{
		"playbook":   func(v any) (err error) { p.Playbook, err = stringValue(v); return },
		"limit":      func(v any) (err error) { p.Limit, err = stringValue(v); return },
		"verbose":    func(v any) (err error) { p.Verbose, err = boolValue(v); return },
		"extra_vars": func(v any) (err error) { p.ExtraVars, err = stringMapValue(v); return },
	}
	return applySettings(ProvisionerAnsible, table, []Setting{{Key: key, Value: value}})
}

// SetArguments implements Provisioner.
func (p *AnsibleProvisioner) SetArguments(args []string) { p.Args = args }

// Arguments implements Provisioner.
func (p *AnsibleProvisioner) Arguments() []string { return p.Args }

// Settings implements Provisioner.
func (p *AnsibleProvisioner) Settings() map[string]any {
	s := map[string]any{}
	if p.Playbook != "" {
		s["playbook"] = p.Playbook
	}
	if p.Limit != "" {
		s["limit"] = p.Limit
	}
	if p.Verbose {
		s["verbose"] = true
	}
	if len(p.ExtraVars) > 0 {
		s["extra_vars"] = p.ExtraVars
	}
	return s
}

// FileProvisioner copies a file from the host into the guest.
type FileProvisioner struct {
	Source      string   `yaml:"source,omitempty" json:"source,omitempty"`
	Destination string   `yaml:"destination,omitempty" json:"destination,omitempty"`
	Args        []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// ProvisionerKind implements Provisioner.
func (p *FileProvisioner) ProvisionerKind() string { return ProvisionerFile }

// Assign implements Provisioner.
func (p *FileProvisioner) Assign(key string, value any) error {
	table := map[string]func(any) error{
		"source":      func(v any) (err error) { p.Source, err = stringValue(v); return },
		"destination": func(v any) (err error) { p.Destination, err = stringValue(v); return },
	}
	return applySettings(ProvisionerFile, table, []Setting{{Key: key, Value: value}})
}

// SetArguments implements Provisioner.
func (p *FileProvisioner) SetArguments(args []string) { p.Args = args }

// Arguments implements Provisioner.
func (p *FileProvisioner) Arguments() []string { return p.Args }

// Settings implements Provisioner.
func (p *FileProvisioner) Settings() map[string]any {
	s := map[string]any{}
	if p.Source != "" {
		s["source"] = p.Source
	}
	if p.Destination != "" {
		s["destination"] = p.Destination
	}
	return s
}
