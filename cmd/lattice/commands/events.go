package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/archive"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
)

var (
	eventsEntityID     string
	eventsOutputFormat string
	eventsSummary      bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the seal audit trail",
	Long: `Show seal audit events.

With --entity, shows the ordered audit trail for one entity; without it,
shows every seal event recorded for the instance. Events are append-only
and never mutated, so this is the full history.

Output Formats:
  default - Human-readable table
  jsonl   - One JSON event per line

Examples:
  # All seal events for the instance
  lattice events

  # Audit trail for one crown
  lattice events --entity a1b2...

  # Condensed seal state instead of raw events
  lattice events --entity a1b2... --summary

  # Event stream for scripting
  lattice events --output=jsonl | jq 'select(.event_type=="SEALED")'`,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsEntityID, "entity", "", "Restrict to one entity's audit trail")
	eventsCmd.Flags().StringVarP(&eventsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	eventsCmd.Flags().BoolVar(&eventsSummary, "summary", false, "Show condensed seal state (requires --entity)")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	var format archive.OutputFormat
	switch eventsOutputFormat {
	case "default":
		format = archive.OutputFormatDefault
	case "jsonl":
		format = archive.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", eventsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	if eventsSummary && eventsEntityID == "" {
		return printer.Error(
			"missing entity",
			"--summary requires --entity.",
			[]string{"Name the entity to summarize:\n  lattice events --entity <id> --summary"},
		)
	}

	_, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()

	if eventsSummary {
		summary, err := archive.SummarizeSeal(ctx, client, eventsEntityID)
		if err != nil {
			return err
		}
		if format == archive.OutputFormatJSONL {
			return archive.FormatSingleJSON(os.Stdout, summary)
		}
		archive.WriteSealSummary(os.Stdout, summary)
		return nil
	}

	return archive.ListSealEvents(ctx, client, eventsEntityID, format, os.Stdout)
}
