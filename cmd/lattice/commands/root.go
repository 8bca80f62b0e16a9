package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/config"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/instance"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Lattice - Hierarchical memory formation and sealing engine",
	Long: `Lattice captures memory shards and aggregates them through a fixed
hierarchy: three shards form a crown, nine crowns form a grand crown.

Crowns and grand crowns can be flame-sealed by a named authority, producing
an append-only audit trail of seal, verification, and access events backed
by Redis.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// loadConfig reads lattice.yml from the working directory.
func loadConfig() (*config.LatticeConfig, error) {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		return nil, printer.Error(
			"failed to load configuration",
			err.Error(),
			[]string{"Create a starter configuration:\n  lattice init --name <instance-name>"},
		)
	}
	return cfg, nil
}

// openClient loads configuration and connects to the instance's store. The
// caller owns the returned client and must Close it.
func openClient() (*config.LatticeConfig, *lattice.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	opts, err := instance.RedisOptions(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client, err := lattice.NewClient(opts, cfg.Instance)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create lattice client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, nil, printer.Error(
			"cannot reach Redis",
			fmt.Sprintf("Ping to %s failed: %v", cfg.Redis.URL, err),
			[]string{"Check that Redis is running and redis.url in lattice.yml is correct."},
		)
	}

	return cfg, client, nil
}
