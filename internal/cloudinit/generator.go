// Package cloudinit renders a VM definition's provisioning data as
// cloud-init NoCloud configuration (user-data, meta-data, network-config)
// and packs it into a seed ISO.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/corralvm/corral/internal/machine"
	"github.com/corralvm/corral/internal/naming"
)

// UserData is the cloud-config structure marshaled to YAML under the
// "#cloud-config" header.
type UserData struct {
	Hostname          string      `yaml:"hostname,omitempty"`
	SSHAuthorizedKeys []string    `yaml:"ssh_authorized_keys,omitempty"`
	WriteFiles        []WriteFile `yaml:"write_files,omitempty"`
	RunCmd            [][]string  `yaml:"runcmd,omitempty"`
}

// WriteFile places one file into the guest at first boot.
type WriteFile struct {
	Path        string `yaml:"path"`
	Content     string `yaml:"content"`
	Permissions string `yaml:"permissions,omitempty"`
}

// MetaData is the NoCloud instance metadata.
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// NetworkConfig is netplan v2 network configuration.
type NetworkConfig struct {
	Version   int                       `yaml:"version"`
	Ethernets map[string]EthernetConfig `yaml:"ethernets"`
}

// EthernetConfig configures a single interface, matched by MAC address.
type EthernetConfig struct {
	Match     MatchConfig `yaml:"match"`
	Addresses []string    `yaml:"addresses,omitempty"`
	DHCP4     bool        `yaml:"dhcp4,omitempty"`
}

// MatchConfig matches an interface by MAC address.
type MatchConfig struct {
	MACAddress string `yaml:"macaddress"`
}

// GenerateUserData renders user-data from the definition: hostname, SSH
// keys, and the provisioner list translated to write_files and runcmd
// entries in declaration order.
func GenerateUserData(def *machine.Definition) (string, error) {
	if def == nil {
		return "", fmt.Errorf("definition cannot be nil")
	}

	userData := UserData{
		Hostname:          def.Hostname,
		SSHAuthorizedKeys: def.SSHKeys,
	}

	for i, prov := range def.Provisioners {
		switch p := prov.(type) {
		case *machine.ShellProvisioner:
			cmd, files, err := shellCommands(def.Name, i, p)
			if err != nil {
				return "", fmt.Errorf("provisioners[%d]: %w", i, err)
			}
			userData.WriteFiles = append(userData.WriteFiles, files...)
			userData.RunCmd = append(userData.RunCmd, cmd...)

		case *machine.FileProvisioner:
			if p.Source == "" || p.Destination == "" {
				return "", fmt.Errorf("provisioners[%d]: file provisioner requires source and destination", i)
			}
			content, err := os.ReadFile(p.Source)
			if err != nil {
				return "", fmt.Errorf("provisioners[%d]: failed to read source file: %w", i, err)
			}
			userData.WriteFiles = append(userData.WriteFiles, WriteFile{
				Path:    p.Destination,
				Content: string(content),
			})

		case *machine.AnsibleProvisioner:
			cmd := ansibleCommand(p)
			userData.RunCmd = append(userData.RunCmd, cmd)

		default:
			return "", fmt.Errorf("provisioners[%d]: no cloud-init rendering for %q", i, prov.ProvisionerKind())
		}
	}

	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data: %w", err)
	}

	return "#cloud-config\n" + string(yamlBytes), nil
}

// shellCommands renders one shell provisioner as runcmd entries, writing
// inline scripts to a file first so multi-line commands survive.
func shellCommands(node string, index int, p *machine.ShellProvisioner) ([][]string, []WriteFile, error) {
	var (
		cmds  [][]string
		files []WriteFile
	)

	var script string
	switch {
	case p.Inline != "" && p.Path != "":
		return nil, nil, fmt.Errorf("shell provisioner cannot set both inline and path")
	case p.Inline != "":
		script = fmt.Sprintf("/var/lib/cloud/corral/%s-shell-%d.sh", node, index)
		files = append(files, WriteFile{
			Path:        script,
			Content:     "#!/bin/sh\n" + p.Inline + "\n",
			Permissions: "0755",
		})
	case p.Path != "":
		script = p.Path
		if p.UploadPath != "" {
			script = p.UploadPath
		}
	default:
		return nil, nil, fmt.Errorf("shell provisioner requires inline or path")
	}

	cmd := []string{script}
	cmd = append(cmd, p.Args...)

	// List-form runcmd entries are executed as argv, so env vars ride an
	// env(1) wrapper. sudo goes outermost; it would strip a bare
	// assignment prefix.
	if len(p.Env) > 0 {
		keys := make([]string, 0, len(p.Env))
		for k := range p.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		wrapper := []string{"env"}
		for _, k := range keys {
			wrapper = append(wrapper, fmt.Sprintf("%s=%s", k, p.Env[k]))
		}
		cmd = append(wrapper, cmd...)
	}
	if p.Privileged {
		cmd = append([]string{"sudo"}, cmd...)
	}

	cmds = append(cmds, cmd)
	return cmds, files, nil
}

func ansibleCommand(p *machine.AnsibleProvisioner) []string {
	cmd := []string{"ansible-playbook", p.Playbook}
	if p.Limit != "" {
		cmd = append(cmd, "--limit", p.Limit)
	}
	if p.Verbose {
		cmd = append(cmd, "-v")
	}
	for k, v := range p.ExtraVars {
		cmd = append(cmd, "-e", fmt.Sprintf("%s=%s", k, v))
	}
	cmd = append(cmd, p.Args...)
	return cmd
}

// GenerateMetaData renders the NoCloud meta-data. The instance-id is
// random per generation so cloud-init re-runs when the seed is rebuilt.
func GenerateMetaData(def *machine.Definition) (string, error) {
	if def == nil {
		return "", fmt.Errorf("definition cannot be nil")
	}

	hostname := def.Hostname
	if hostname == "" {
		hostname = def.Name
	}

	metaData := MetaData{
		InstanceID:    fmt.Sprintf("%s-%s", def.Name, uuid.New().String()),
		LocalHostname: strings.SplitN(hostname, ".", 2)[0],
	}

	yamlBytes, err := yaml.Marshal(&metaData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data: %w", err)
	}

	return string(yamlBytes), nil
}

// GenerateNetworkConfig renders netplan v2 configuration for the
// definition's private networks. Interfaces keep declaration order via
// their derived MAC addresses; entries without a static IP fall back to
// DHCP. Returns "" when no private network needs configuration.
func GenerateNetworkConfig(def *machine.Definition) (string, error) {
	if def == nil {
		return "", fmt.Errorf("definition cannot be nil")
	}

	ethernets := make(map[string]EthernetConfig)
	idx := 0
	for _, net := range def.Networks {
		if net.Kind != machine.NetworkPrivate {
			continue
		}

		name := fmt.Sprintf("eth%d", idx)
		idx++

		if net.IP == "" || net.DHCP {
			if net.MAC == "" {
				continue
			}
			ethernets[name] = EthernetConfig{
				Match: MatchConfig{MACAddress: net.MAC},
				DHCP4: true,
			}
			continue
		}

		mac := net.MAC
		if mac == "" {
			derived, err := naming.MACFromIP(net.IP)
			if err != nil {
				return "", fmt.Errorf("network %s: %w", name, err)
			}
			mac = derived
		}

		addr := net.IP
		if !strings.Contains(addr, "/") {
			addr += "/" + prefixFromNetmask(net.Netmask)
		}

		ethernets[name] = EthernetConfig{
			Match:     MatchConfig{MACAddress: mac},
			Addresses: []string{addr},
		}
	}

	if len(ethernets) == 0 {
		return "", nil
	}

	networkConfig := NetworkConfig{Version: 2, Ethernets: ethernets}
	yamlBytes, err := yaml.Marshal(&networkConfig)
	if err != nil {
		return "", fmt.Errorf("failed to marshal network-config: %w", err)
	}

	return string(yamlBytes), nil
}

// prefixFromNetmask converts a dotted netmask to a prefix length string,
// defaulting to 24 when the mask is absent or unrecognized.
func prefixFromNetmask(netmask string) string {
	masks := map[string]string{
		"255.0.0.0":       "8",
		"255.255.0.0":     "16",
		"255.255.255.0":   "24",
		"255.255.255.128": "25",
		"255.255.255.192": "26",
		"255.255.255.252": "30",
	}
	if p, ok := masks[netmask]; ok {
		return p
	}
	return "24"
}
