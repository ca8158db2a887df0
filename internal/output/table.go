package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/corralvm/corral/internal/machine"
)

// TableFormatter formats definitions as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatDefinition formats a single definition as a table row.
func (f *TableFormatter) FormatDefinition(def *machine.Definition) (string, error) {
	return f.FormatDefinitionList([]*machine.Definition{def})
}

// FormatDefinitionList formats a list of definitions as a table.
func (f *TableFormatter) FormatDefinitionList(defs []*machine.Definition) (string, error) {
	if len(defs) == 0 {
		return "No nodes defined\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tBOX\tHOSTNAME\tMEMORY\tCPUS\tNETS\tPORTS\tPROVISIONERS")
	}

	for _, def := range defs {
		box := def.Box
		if box == "" {
			box = "-"
		}
		hostname := def.Hostname
		if hostname == "" {
			hostname = "-"
		}

		memory := "-"
		if def.Memory > 0 {
			memory = fmt.Sprintf("%d MiB", def.Memory)
		}
		cpus := "-"
		if def.CPUs > 0 {
			cpus = fmt.Sprintf("%d", def.CPUs)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			def.Name, box, hostname, memory, cpus,
			len(def.Networks), len(def.ForwardedPorts), len(def.Provisioners))
	}

	_ = w.Flush()
	return buf.String(), nil
}
