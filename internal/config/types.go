// Package config defines the corral fleet configuration schema and the
// loading/validation pipeline for it.
//
// A fleet file has two top-level keys: "boxes" (symbolic box name to image
// URL) and "nodes" (node name to per-VM declaration). No other top-level
// keys are recognized.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for the shallow schema checks. Callers classify with
// errors.Is; the CLI is the single place that turns these into output.
var (
	// ErrConfigMissing indicates the configuration file does not exist.
	ErrConfigMissing = errors.New("configuration file not found")

	// ErrConfigEmpty indicates the configuration file parsed to nothing.
	ErrConfigEmpty = errors.New("configuration file is empty")

	// ErrNoNodesDefined indicates the nodes mapping is absent or has no entries.
	ErrNoNodesDefined = errors.New("no nodes defined")

	// ErrMalformedEntry indicates a list entry that must be a single-key
	// mapping (network or provisioner) is not one.
	ErrMalformedEntry = errors.New("malformed entry")
)

// Document is the root of a parsed fleet configuration. It is read once per
// invocation and treated as immutable afterwards.
type Document struct {
	Boxes map[string]string `yaml:"boxes"`
	Nodes NodeList          `yaml:"nodes"`
}

// Node pairs a node name with its declaration.
type Node struct {
	Name string
	Spec NodeSpec
}

// NodeList preserves the insertion order of the nodes mapping. Some
// hypervisors assign device ordinals positionally, so declaration order is
// part of the contract.
type NodeList []Node

// UnmarshalYAML decodes the nodes mapping in document order.
func (l *NodeList) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: nodes must be a mapping", ErrMalformedEntry)
	}

	seen := make(map[string]bool, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var name string
		if err := value.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("invalid node name: %w", err)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate node %q", ErrMalformedEntry, name)
		}
		seen[name] = true

		var spec NodeSpec
		if err := value.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}

		*l = append(*l, Node{Name: name, Spec: spec})
	}

	return nil
}

// NodeSpec is a single per-VM declaration. Every field is optional; an
// absent field means "do not configure this aspect".
type NodeSpec struct {
	Box               string             `yaml:"box,omitempty"`
	Hostname          string             `yaml:"hostname,omitempty"`
	Memory            int                `yaml:"memory,omitempty"`
	CPUs              int                `yaml:"cpus,omitempty"`
	Networks          []NetworkEntry     `yaml:"networks,omitempty"`
	SyncedFolders     []FolderSpec       `yaml:"synced_folders,omitempty"`
	ForwardedPorts    []PortSpec         `yaml:"forwarded_ports,omitempty"`
	Provisioners      []ProvisionerEntry `yaml:"provisioners,omitempty"`
	Providers         ProviderList       `yaml:"providers,omitempty"`
	SSHKeys           []string           `yaml:"ssh_keys,omitempty"`
	ExternalFunctions []string           `yaml:"external_functions,omitempty"`
}

// Param is one key/value pair from a type-specific parameter mapping,
// kept in declaration order.
type Param struct {
	Key   string
	Value any
}

// NetworkEntry is one element of a node's networks list: a single-key
// mapping from network-type tag to an optional parameter mapping.
type NetworkEntry struct {
	Kind   string
	Params []Param
}

// UnmarshalYAML decodes the single-key mapping shape. A bare scalar entry
// (network type with no parameters) is also accepted.
func (e *NetworkEntry) UnmarshalYAML(value *yaml.Node) error {
	kind, params, err := decodeTaggedEntry(value, "network")
	if err != nil {
		return err
	}
	e.Kind = kind
	e.Params = params
	return nil
}

// ProvisionerEntry is one element of a node's provisioners list: a
// single-key mapping from provisioner-type tag to a settings mapping.
type ProvisionerEntry struct {
	Kind   string
	Params []Param
}

// UnmarshalYAML decodes the single-key mapping shape.
func (e *ProvisionerEntry) UnmarshalYAML(value *yaml.Node) error {
	kind, params, err := decodeTaggedEntry(value, "provisioner")
	if err != nil {
		return err
	}
	e.Kind = kind
	e.Params = params
	return nil
}

// ProviderEntry pairs a provider type with its settings.
type ProviderEntry struct {
	Kind   string
	Params []Param
}

// ProviderList preserves the declaration order of the providers mapping so
// repeated runs project settings deterministically.
type ProviderList []ProviderEntry

// UnmarshalYAML decodes the providers mapping in document order.
func (l *ProviderList) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: providers must be a mapping", ErrMalformedEntry)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		var kind string
		if err := value.Content[i].Decode(&kind); err != nil {
			return fmt.Errorf("invalid provider name: %w", err)
		}

		params, err := decodeParams(value.Content[i+1])
		if err != nil {
			return fmt.Errorf("provider %q: %w", kind, err)
		}

		*l = append(*l, ProviderEntry{Kind: kind, Params: params})
	}

	return nil
}

// FolderSpec mounts a host path at a guest path, with an optional sync
// mechanism. An empty Type leaves the choice to the hypervisor layer.
type FolderSpec struct {
	Host  string `yaml:"host"`
	Guest string `yaml:"guest"`
	Type  string `yaml:"type,omitempty"`
}

// PortSpec forwards a guest port to a host port.
type PortSpec struct {
	Guest    int    `yaml:"guest"`
	Host     int    `yaml:"host"`
	Protocol string `yaml:"protocol,omitempty"`
	HostIP   string `yaml:"host_ip,omitempty"`
}

// decodeTaggedEntry decodes the "one-key mapping from type tag to params"
// shape shared by network and provisioner list entries. A plain scalar is
// treated as a tag with no parameters.
func decodeTaggedEntry(value *yaml.Node, what string) (string, []Param, error) {
	if value.Kind == yaml.ScalarNode {
		var kind string
		if err := value.Decode(&kind); err != nil {
			return "", nil, fmt.Errorf("%w: invalid %s entry", ErrMalformedEntry, what)
		}
		return kind, nil, nil
	}

	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return "", nil, fmt.Errorf("%w: %s entry must be a single-key mapping", ErrMalformedEntry, what)
	}

	var kind string
	if err := value.Content[0].Decode(&kind); err != nil {
		return "", nil, fmt.Errorf("%w: invalid %s type tag", ErrMalformedEntry, what)
	}

	params, err := decodeParams(value.Content[1])
	if err != nil {
		return "", nil, fmt.Errorf("%s %q: %w", what, kind, err)
	}

	return kind, params, nil
}

// decodeParams decodes a parameter mapping into ordered key/value pairs.
// A null node yields no parameters.
func decodeParams(value *yaml.Node) ([]Param, error) {
	if value.Tag == "!!null" {
		return nil, nil
	}
	if value.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: parameters must be a mapping", ErrMalformedEntry)
	}

	params := make([]Param, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var key string
		if err := value.Content[i].Decode(&key); err != nil {
			return nil, fmt.Errorf("%w: invalid parameter key", ErrMalformedEntry)
		}

		var val any
		if err := value.Content[i+1].Decode(&val); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}

		params = append(params, Param{Key: key, Value: val})
	}

	return params, nil
}

// LoadFromFile loads and validates a fleet configuration from a YAML file.
func LoadFromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return LoadFromYAML(data)
}

// LoadFromYAML loads and validates a fleet configuration from YAML bytes.
func LoadFromYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// An empty file or a bare "---" parses to no document content.
	if root.Kind == 0 || len(root.Content) == 0 || root.Content[0].Tag == "!!null" {
		return nil, ErrConfigEmpty
	}

	var doc Document
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Validate performs the shallow schema checks. Per-field semantic checks
// (IP syntax, provider parameter meaning) are intentionally left to the
// hypervisor layer.
func (d *Document) Validate() error {
	if len(d.Nodes) == 0 {
		return ErrNoNodesDefined
	}

	for _, node := range d.Nodes {
		if strings.TrimSpace(node.Name) == "" {
			return fmt.Errorf("%w: node with empty name", ErrMalformedEntry)
		}

		for i, key := range node.Spec.SSHKeys {
			if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
				return fmt.Errorf("node %q: ssh_keys[%d] is not a valid SSH public key: %w", node.Name, i, err)
			}
		}
	}

	return nil
}
