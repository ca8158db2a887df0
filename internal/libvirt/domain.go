package libvirt

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"libvirt.org/go/libvirtxml"

	"github.com/corralvm/corral/internal/machine"
	"github.com/corralvm/corral/internal/naming"
)

const (
	// DefaultMemoryMiB is used when neither the node nor a provider sets
	// memory.
	DefaultMemoryMiB = 1024

	// DefaultCPUs is used when neither the node nor a provider sets a cpu
	// count.
	DefaultCPUs = 1
)

// GenerateDomainXML translates a VM definition into libvirt domain XML.
// Network interfaces are emitted in declaration order; libvirt assigns
// device ordinals positionally.
func GenerateDomainXML(def *machine.Definition, vmsPool string) (string, error) {
	if err := def.Validate(); err != nil {
		return "", err
	}

	lp, _ := def.Provider(machine.ProviderLibvirt).(*machine.LibvirtProvider)
	qp, _ := def.Provider(machine.ProviderQEMU).(*machine.QEMUProvider)

	domain := &libvirtxml.Domain{
		Type:   domainType(lp),
		Name:   displayName(def, lp),
		UUID:   uuid.New().String(),
		Memory: &libvirtxml.DomainMemory{Value: uint(memoryMiB(def, lp)), Unit: "MiB"},
		VCPU: &libvirtxml.DomainVCPU{
			Placement: "static",
			Value:     uint(cpuCount(def, lp)),
		},
		OS: &libvirtxml.DomainOS{
			Type: &libvirtxml.DomainOSType{
				Arch:    archType(qp),
				Machine: machineType(lp, qp),
				Type:    "hvm",
			},
		},
		Features: &libvirtxml.DomainFeatureList{
			ACPI: &libvirtxml.DomainFeature{},
			APIC: &libvirtxml.DomainFeatureAPIC{},
		},
		CPU: &libvirtxml.DomainCPU{
			Mode: cpuMode(lp),
		},
		Clock: &libvirtxml.DomainClock{
			Offset: "utc",
			Timer: []libvirtxml.DomainTimer{
				{Name: "rtc", TickPolicy: "catchup"},
				{Name: "pit", TickPolicy: "delay"},
				{Name: "hpet", Present: "no"},
			},
		},
		OnPoweroff: "destroy",
		OnReboot:   "restart",
		OnCrash:    "restart",
		Devices: &libvirtxml.DomainDeviceList{
			MemBalloon: &libvirtxml.DomainMemBalloon{Model: "virtio"},
		},
	}

	// Boot disk backed by the node's box-derived volume.
	domain.Devices.Disks = append(domain.Devices.Disks, libvirtxml.DomainDisk{
		Device: "disk",
		Driver: &libvirtxml.DomainDiskDriver{Name: "qemu", Type: "qcow2", Cache: "none"},
		Source: &libvirtxml.DomainDiskSource{
			Volume: &libvirtxml.DomainDiskSourceVolume{
				Pool:   vmsPool,
				Volume: naming.VolumeNameBoot(def.Name),
			},
		},
		Target: &libvirtxml.DomainDiskTarget{Dev: "vda", Bus: "virtio"},
		Boot:   &libvirtxml.DomainDeviceBoot{Order: 1},
	})

	// Provisioning seed ISO, attached only when something provisions.
	if NeedsSeed(def) {
		domain.Devices.Disks = append(domain.Devices.Disks, libvirtxml.DomainDisk{
			Device: "cdrom",
			Driver: &libvirtxml.DomainDiskDriver{Name: "qemu", Type: "raw"},
			Source: &libvirtxml.DomainDiskSource{
				Volume: &libvirtxml.DomainDiskSourceVolume{
					Pool:   vmsPool,
					Volume: naming.VolumeNameSeed(def.Name),
				},
			},
			Target:   &libvirtxml.DomainDiskTarget{Dev: "sda", Bus: "sata"},
			ReadOnly: &libvirtxml.DomainDiskReadOnly{},
		})
	}

	// Network interfaces, in declaration order.
	for i, net := range def.Networks {
		iface, err := translateNetwork(net)
		if err != nil {
			return "", fmt.Errorf("networks[%d]: %w", i, err)
		}
		domain.Devices.Interfaces = append(domain.Devices.Interfaces, *iface)
	}

	// Forwarded ports ride a user-mode netdev passed straight to qemu.
	if args := hostfwdArgs(def, qp); len(args) > 0 {
		domain.QEMUCommandline = &libvirtxml.DomainQEMUCommandline{Args: args}
	}

	// Synced folders as filesystem passthrough devices. virtiofs needs
	// shared memory backing.
	if len(def.SyncedFolders) > 0 {
		domain.MemoryBacking = &libvirtxml.DomainMemoryBacking{
			MemorySource: &libvirtxml.DomainMemorySource{Type: "memfd"},
			MemoryAccess: &libvirtxml.DomainMemoryAccess{Mode: "shared"},
		}
		for i, folder := range def.SyncedFolders {
			fs, err := translateFolder(folder, i)
			if err != nil {
				return "", fmt.Errorf("synced_folders[%d]: %w", i, err)
			}
			domain.Devices.Filesystems = append(domain.Devices.Filesystems, *fs)
		}
	}

	if def.RNGDevice {
		domain.Devices.RNGs = []libvirtxml.DomainRNG{
			{
				Model: "virtio",
				Backend: &libvirtxml.DomainRNGBackend{
					Random: &libvirtxml.DomainRNGBackendRandom{Device: "/dev/urandom"},
				},
			},
		}
	}

	if def.Graphics {
		domain.Devices.Graphics = []libvirtxml.DomainGraphic{
			{Spice: &libvirtxml.DomainGraphicSpice{AutoPort: "yes"}},
		}
		domain.Devices.Videos = []libvirtxml.DomainVideo{
			{Model: libvirtxml.DomainVideoModel{Type: videoType(lp)}},
		}
	}

	// Serial console is always attached.
	domain.Devices.Serials = []libvirtxml.DomainSerial{
		{
			Source: &libvirtxml.DomainChardevSource{Pty: &libvirtxml.DomainChardevSourcePty{}},
			Target: &libvirtxml.DomainSerialTarget{Port: uintPtr(0)},
		},
	}
	domain.Devices.Consoles = []libvirtxml.DomainConsole{
		{
			Source: &libvirtxml.DomainChardevSource{Pty: &libvirtxml.DomainChardevSourcePty{}},
			Target: &libvirtxml.DomainConsoleTarget{Type: "serial", Port: uintPtr(0)},
		},
	}

	xml, err := domain.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal domain XML: %w", err)
	}

	return xml, nil
}

// NeedsSeed reports whether the definition carries anything the
// provisioning seed ISO would deliver.
func NeedsSeed(def *machine.Definition) bool {
	if def.Hostname != "" || len(def.SSHKeys) > 0 || len(def.Provisioners) > 0 {
		return true
	}
	for _, net := range def.Networks {
		if net.Kind == machine.NetworkPrivate && net.IP != "" {
			return true
		}
	}
	return false
}

func translateNetwork(net *machine.Network) (*libvirtxml.DomainInterface, error) {
	iface := &libvirtxml.DomainInterface{
		Model: &libvirtxml.DomainInterfaceModel{Type: "virtio"},
	}

	switch net.Kind {
	case machine.NetworkPrivate:
		if net.Bridge != "" {
			iface.Source = &libvirtxml.DomainInterfaceSource{
				Bridge: &libvirtxml.DomainInterfaceSourceBridge{Bridge: net.Bridge},
			}
		} else {
			iface.Source = &libvirtxml.DomainInterfaceSource{
				Network: &libvirtxml.DomainInterfaceSourceNetwork{Network: "default"},
			}
		}

		mac := net.MAC
		if mac == "" && net.IP != "" && !net.DHCP {
			derived, err := naming.MACFromIP(net.IP)
			if err != nil {
				return nil, err
			}
			mac = derived
		}
		if mac != "" {
			iface.MAC = &libvirtxml.DomainInterfaceMAC{Address: mac}
		}

		if net.IP != "" && !net.DHCP {
			dev, err := naming.InterfaceNameFromIP(net.IP)
			if err != nil {
				return nil, err
			}
			iface.Target = &libvirtxml.DomainInterfaceTarget{Dev: dev}
		}

	case machine.NetworkPublic:
		dev := net.Dev
		if dev == "" {
			dev = net.Bridge
		}
		if dev == "" {
			return nil, fmt.Errorf("public_network requires a bridge or dev")
		}

		mode := net.Mode
		if mode == "" {
			mode = "bridge"
		}

		iface.Source = &libvirtxml.DomainInterfaceSource{
			Direct: &libvirtxml.DomainInterfaceSourceDirect{Dev: dev, Mode: mode},
		}
		if net.MAC != "" {
			iface.MAC = &libvirtxml.DomainInterfaceMAC{Address: net.MAC}
		}

	default:
		return nil, fmt.Errorf("unsupported network kind %q", net.Kind)
	}

	return iface, nil
}

func translateFolder(folder machine.SyncedFolder, index int) (*libvirtxml.DomainFilesystem, error) {
	fs := &libvirtxml.DomainFilesystem{
		Source: &libvirtxml.DomainFilesystemSource{
			Mount: &libvirtxml.DomainFilesystemSourceMount{Dir: folder.Host},
		},
		Target: &libvirtxml.DomainFilesystemTarget{Dir: folder.Guest},
	}

	switch folder.Type {
	case "", "virtiofs":
		fs.Driver = &libvirtxml.DomainFilesystemDriver{Type: "virtiofs"}
	case "9p":
		fs.AccessMode = "passthrough"
	default:
		return nil, fmt.Errorf("unsupported sync type %q", folder.Type)
	}

	return fs, nil
}

// hostfwdArgs builds the qemu user-net arguments carrying every forwarded
// port. The qemu provider's ssh_port setting adds a guest-22 forward.
func hostfwdArgs(def *machine.Definition, qp *machine.QEMUProvider) []libvirtxml.DomainQEMUCommandlineArg {
	ports := def.ForwardedPorts
	if qp != nil && qp.SSHPort > 0 {
		ports = append(ports, machine.ForwardedPort{Guest: 22, Host: qp.SSHPort, Protocol: "tcp"})
	}
	if len(ports) == 0 {
		return nil
	}

	fwds := make([]string, 0, len(ports))
	for _, p := range ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		hostIP := p.HostIP
		if hostIP == "" {
			hostIP = "127.0.0.1"
		}
		fwds = append(fwds, fmt.Sprintf("hostfwd=%s:%s:%d-:%d", proto, hostIP, p.Host, p.Guest))
	}

	return []libvirtxml.DomainQEMUCommandlineArg{
		{Value: "-netdev"},
		{Value: "user,id=fwd0," + strings.Join(fwds, ",")},
		{Value: "-device"},
		{Value: "virtio-net-pci,netdev=fwd0"},
	}
}

func displayName(def *machine.Definition, lp *machine.LibvirtProvider) string {
	if lp != nil && lp.DisplayName != "" {
		return lp.DisplayName
	}
	return def.Name
}

func domainType(lp *machine.LibvirtProvider) string {
	if lp != nil && lp.Driver != "" {
		return lp.Driver
	}
	return "kvm"
}

func memoryMiB(def *machine.Definition, lp *machine.LibvirtProvider) int {
	if lp != nil && lp.Memory > 0 {
		return lp.Memory
	}
	if def.Memory > 0 {
		return def.Memory
	}
	return DefaultMemoryMiB
}

func cpuCount(def *machine.Definition, lp *machine.LibvirtProvider) int {
	if lp != nil && lp.CPUs > 0 {
		return lp.CPUs
	}
	if def.CPUs > 0 {
		return def.CPUs
	}
	return DefaultCPUs
}

func cpuMode(lp *machine.LibvirtProvider) string {
	if lp != nil && lp.CPUMode != "" {
		return lp.CPUMode
	}
	return "host-model"
}

func machineType(lp *machine.LibvirtProvider, qp *machine.QEMUProvider) string {
	if lp != nil && lp.Machine != "" {
		return lp.Machine
	}
	if qp != nil && qp.Machine != "" {
		return qp.Machine
	}
	return ""
}

func archType(qp *machine.QEMUProvider) string {
	if qp != nil && qp.Arch != "" {
		return qp.Arch
	}
	return "x86_64"
}

func videoType(lp *machine.LibvirtProvider) string {
	if lp != nil && lp.VideoType != "" {
		return lp.VideoType
	}
	return "qxl"
}

func uintPtr(v uint) *uint {
	return &v
}
