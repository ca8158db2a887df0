package hooks

import "github.com/corralvm/corral/internal/machine"

// Builtin returns the statically known hook set. These toggle definition
// extras the fleet schema has no field for.
func Builtin() map[string]Func {
	return map[string]Func{
		// autostart marks the domain to start with the host.
		"autostart": func(def *machine.Definition) error {
			def.Autostart = true
			return nil
		},

		// rng-device attaches a virtio RNG backed by /dev/urandom.
		"rng-device": func(def *machine.Definition) error {
			def.RNGDevice = true
			return nil
		},

		// graphics attaches a SPICE display instead of running headless.
		"graphics": func(def *machine.Definition) error {
			def.Graphics = true
			return nil
		},
	}
}
