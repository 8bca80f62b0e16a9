package commands

import (
	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/config"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/instance"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
)

var initInstanceName string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter lattice.yml in the current directory",
	Long: `Write a starter lattice.yml configuration file in the current directory.

The generated file carries the instance name, the Redis connection URL,
the minimum authority level required to seal, and the recommendation cap.
Edit it to suit the deployment before running other commands.

Examples:
  # Create a configuration for the default instance name
  lattice init

  # Create a configuration for a named instance
  lattice init --name sovereign-archive`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initInstanceName, "name", "n", "lattice", "Instance name for the new configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := instance.ValidateName(initInstanceName); err != nil {
		return printer.Error(
			"invalid instance name",
			err.Error(),
			[]string{"Names must be lowercase alphanumeric with hyphens, e.g. 'sovereign-archive'."},
		)
	}

	cfg := config.Default(initInstanceName)
	if err := config.Write(config.DefaultPath, cfg); err != nil {
		return printer.Error(
			"failed to write configuration",
			err.Error(),
			[]string{"Remove the existing lattice.yml first if you want to start over."},
		)
	}

	printer.Success("Wrote %s for instance '%s'\n", config.DefaultPath, initInstanceName)
	printer.Info("Next: capture a shard with 'lattice add --title ... --agent ...'\n")
	return nil
}
