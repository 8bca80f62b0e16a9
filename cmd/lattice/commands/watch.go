package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream lattice updates in real time",
	Long: `Stream lattice updates in real time, one line per event.

Shard captures, crown formations, seals, and grand crown formations are
printed as they happen. Press Ctrl+C to stop.

Examples:
  # Watch the instance
  lattice watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	_, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	printer.Info("Watching instance '%s' (Ctrl+C to stop)\n", client.InstanceName())

	count, err := watch.Stream(ctx, client, os.Stdout)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	printer.Info("Stopped after %d updates\n", count)
	return nil
}
