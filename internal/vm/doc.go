// Package vm orchestrates the configuration pass: load the fleet file,
// project nodes onto VM definitions, and issue the resulting configuration
// calls against libvirt. It never starts, stops or destroys domains.
package vm
