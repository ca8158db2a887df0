package naming

import "testing"

func TestMACFromIP(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		want    string
		wantErr bool
	}{
		{name: "plain IP", ip: "10.20.30.40", want: "be:ef:0a:14:1e:28"},
		{name: "CIDR notation", ip: "10.20.30.40/24", want: "be:ef:0a:14:1e:28"},
		{name: "low octets", ip: "192.168.1.5", want: "be:ef:c0:a8:01:05"},
		{name: "invalid", ip: "not-an-ip", wantErr: true},
		{name: "ipv6", ip: "fe80::1", wantErr: true},
		{name: "empty", ip: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MACFromIP(tt.ip)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.ip)
				}
				return
			}
			if err != nil {
				t.Fatalf("MACFromIP(%q) failed: %v", tt.ip, err)
			}
			if got != tt.want {
				t.Errorf("MACFromIP(%q) = %q, want %q", tt.ip, got, tt.want)
			}
		})
	}
}

func TestInterfaceNameFromIP(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		want    string
		wantErr bool
	}{
		{name: "plain IP", ip: "10.20.30.40", want: "vm0a141e28"},
		{name: "CIDR notation", ip: "172.16.0.9/16", want: "vmac100009"},
		{name: "invalid", ip: "999.1.1.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InterfaceNameFromIP(tt.ip)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.ip)
				}
				return
			}
			if err != nil {
				t.Fatalf("InterfaceNameFromIP(%q) failed: %v", tt.ip, err)
			}
			if got != tt.want {
				t.Errorf("InterfaceNameFromIP(%q) = %q, want %q", tt.ip, got, tt.want)
			}
			if len(got) > 15 {
				t.Errorf("Interface name %q exceeds the 15-char limit", got)
			}
		})
	}
}

func TestVolumeNames(t *testing.T) {
	if got := BoxVolumeName("ubuntu/noble"); got != "ubuntu-noble.qcow2" {
		t.Errorf("BoxVolumeName = %q", got)
	}
	if got := BoxVolumeName("plainbox"); got != "plainbox.qcow2" {
		t.Errorf("BoxVolumeName = %q", got)
	}
	if got := VolumeNameBoot("web"); got != "web_boot.qcow2" {
		t.Errorf("VolumeNameBoot = %q", got)
	}
	if got := VolumeNameSeed("web"); got != "web_seed.iso" {
		t.Errorf("VolumeNameSeed = %q", got)
	}
}
