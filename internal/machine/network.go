package machine

import "fmt"

// Network type tags recognized by AddNetwork.
const (
	NetworkPrivate   = "private_network"
	NetworkPublic    = "public_network"
	NetworkForwarded = "forwarded_port"
)

// Network is one network attachment. Kind selects which fields are
// meaningful; the dispatch tables keep the two from drifting apart.
type Network struct {
	Kind string `yaml:"kind" json:"kind"`

	// private_network
	IP      string `yaml:"ip,omitempty" json:"ip,omitempty"`
	Netmask string `yaml:"netmask,omitempty" json:"netmask,omitempty"`
	DHCP    bool   `yaml:"dhcp,omitempty" json:"dhcp,omitempty"`

	// private_network and public_network
	Bridge string `yaml:"bridge,omitempty" json:"bridge,omitempty"`
	Dev    string `yaml:"dev,omitempty" json:"dev,omitempty"`
	MAC    string `yaml:"mac,omitempty" json:"mac,omitempty"`

	// public_network
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// AddNetwork projects one "add network of this type with these parameters"
// call onto the definition. Networks keep their declaration order; the
// hypervisor layer assigns device ordinals positionally.
//
// A forwarded_port network entry is routed to the forwarded-port list
// rather than the interface list.
func (d *Definition) AddNetwork(kind string, params []Setting) error {
	switch kind {
	case NetworkPrivate, NetworkPublic:
		n := &Network{Kind: kind}
		if err := applySettings(kind, n.dispatchTable(), params); err != nil {
			return err
		}
		d.Networks = append(d.Networks, n)
		return nil

	case NetworkForwarded:
		var p ForwardedPort
		if err := applySettings(kind, p.dispatchTable(), params); err != nil {
			return err
		}
		d.AddForwardedPort(p)
		return nil

	default:
		return fmt.Errorf("%w: unknown network type %q", ErrInvalidAssignment, kind)
	}
}

func (n *Network) dispatchTable() map[string]func(any) error {
	table := map[string]func(any) error{}

	switch n.Kind {
	case NetworkPrivate:
		table["ip"] = func(v any) (err error) { n.IP, err = stringValue(v); return }
		table["netmask"] = func(v any) (err error) { n.Netmask, err = stringValue(v); return }
		table["bridge"] = func(v any) (err error) { n.Bridge, err = stringValue(v); return }
		table["dev"] = func(v any) (err error) { n.Dev, err = stringValue(v); return }
		table["mac"] = func(v any) (err error) { n.MAC, err = stringValue(v); return }
		table["type"] = func(v any) error {
			s, err := stringValue(v)
			if err != nil {
				return err
			}
			if s != "dhcp" && s != "static" {
				return fmt.Errorf("%w: type must be dhcp or static, got %q", ErrInvalidAssignment, s)
			}
			n.DHCP = s == "dhcp"
			return nil
		}
	case NetworkPublic:
		table["bridge"] = func(v any) (err error) { n.Bridge, err = stringValue(v); return }
		table["dev"] = func(v any) (err error) { n.Dev, err = stringValue(v); return }
		table["ip"] = func(v any) (err error) { n.IP, err = stringValue(v); return }
		table["mac"] = func(v any) (err error) { n.MAC, err = stringValue(v); return }
		table["mode"] = func(v any) (err error) { n.Mode, err = stringValue(v); return }
	}

	return table
}

func (p *ForwardedPort) dispatchTable() map[string]func(any) error {
	return map[string]func(any) error{
		"guest":    func(v any) (err error) { p.Guest, err = intValue(v); return },
		"host":     func(v any) (err error) { p.Host, err = intValue(v); return },
		"protocol": func(v any) (err error) { p.Protocol, err = stringValue(v); return },
		"host_ip":  func(v any) (err error) { p.HostIP, err = stringValue(v); return },
	}
}
