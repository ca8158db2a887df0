// Package libvirt translates VM definitions into libvirt API calls: a
// connection wrapper around go-libvirt and a domain XML generator built on
// libvirtxml. It issues configuration calls only; starting, stopping and
// destroying domains belongs to the hypervisor tooling.
package libvirt
