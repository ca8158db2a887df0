package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corralvm/corral/internal/hooks"
	"github.com/corralvm/corral/internal/output"
	"github.com/corralvm/corral/internal/vm"
)

// DefaultConfigFile is the fleet file read when no path argument is given.
const DefaultConfigFile = "corral.yaml"

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Errors from every stage are threaded up as values; this is the one
	// place that reports and exits.
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "corral",
	Short: "Corral - declarative multi-VM configuration for libvirt",
	Long: `Corral reads a YAML fleet description (boxes and nodes) and projects
each node onto a libvirt domain definition: networks, synced folders,
forwarded ports, provisioners and provider settings.

It issues configuration calls only; starting and managing the resulting
VMs is left to the usual libvirt tooling.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var planOutputFormat string

func init() {
	planCmd.Flags().StringVarP(&planOutputFormat, "output", "o", "table", "Output format: table, yaml, json")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(hooksCmd)
}

// configPath returns the fleet file path from args or the default.
func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return DefaultConfigFile
}

var upCmd = &cobra.Command{
	Use:   "up [config.yaml]",
	Short: "Configure every node in the fleet file against libvirt",
	Long: `Read the fleet file (corral.yaml by default), project each node onto a
VM definition, and define the resulting domains in libvirt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return vm.Apply(context.Background(), configPath(args), hooks.DefaultRegistry())
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [config.yaml]",
	Short: "Validate the fleet file and show the definitions it produces",
	Long: `Run the full configuration pass without connecting to libvirt and
print the per-node VM definitions that up would apply.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(planOutputFormat); err != nil {
			return err
		}

		defs, err := vm.Plan(configPath(args), hooks.DefaultRegistry())
		if err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Options{Format: output.Format(planOutputFormat)})
		if err != nil {
			return err
		}

		text, err := formatter.FormatDefinitionList(defs)
		if err != nil {
			return err
		}

		fmt.Print(text)
		return nil
	},
}

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List the registered hook names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range hooks.DefaultRegistry().Names() {
			fmt.Println(name)
		}
		return nil
	},
}
