// Package naming provides infrastructure-level naming conventions for
// libvirt resources: MAC address calculation from IP, interface naming,
// and volume naming patterns.
package naming

import (
	"fmt"
	"net"
	"strings"
)

// MACFromIP calculates a deterministic MAC address from an IPv4 address
// using the locally administered be:ef: prefix.
//
// Example: IP 10.20.30.40 → MAC be:ef:0a:14:1e:28
func MACFromIP(ip string) (string, error) {
	ipv4, err := parseIPv4(ip)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("be:ef:%02x:%02x:%02x:%02x",
		ipv4[0], ipv4[1], ipv4[2], ipv4[3]), nil
}

// InterfaceNameFromIP calculates a deterministic tap interface name from an
// IPv4 address. Format: vm{hex_octets}, 10 chars, within the Linux 15-char
// limit.
//
// Example: IP 10.20.30.40 → vm0a141e28
func InterfaceNameFromIP(ip string) (string, error) {
	ipv4, err := parseIPv4(ip)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("vm%02x%02x%02x%02x",
		ipv4[0], ipv4[1], ipv4[2], ipv4[3]), nil
}

// parseIPv4 accepts both "10.1.2.3" and "10.1.2.3/24".
func parseIPv4(ip string) (net.IP, error) {
	ipStr := ip
	if strings.Contains(ip, "/") {
		ipAddr, _, err := net.ParseCIDR(ip)
		if err != nil {
			return nil, fmt.Errorf("invalid IP/CIDR: %w", err)
		}
		ipStr = ipAddr.String()
	}

	parsed := net.ParseIP(ipStr)
	if parsed == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ipStr)
	}

	ipv4 := parsed.To4()
	if ipv4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %s", ipStr)
	}

	return ipv4, nil
}

// BoxVolumeName returns the image volume name backing a box identifier.
// Slashes in box names ("ubuntu/noble") become hyphens.
// Format: {box}.qcow2
func BoxVolumeName(box string) string {
	return fmt.Sprintf("%s.qcow2", strings.ReplaceAll(box, "/", "-"))
}

// VolumeNameBoot returns the volume name for a node's boot disk.
// Format: {node}_boot.qcow2
func VolumeNameBoot(node string) string {
	return fmt.Sprintf("%s_boot.qcow2", node)
}

// VolumeNameSeed returns the volume name for a node's provisioning seed ISO.
// Format: {node}_seed.iso
func VolumeNameSeed(node string) string {
	return fmt.Sprintf("%s_seed.iso", node)
}
