package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/archive"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/timespec"
)

var (
	listOutputFormat string
	listTag          string
	listAgent        string
	listSealedOnly   bool
	listSince        string
	listUntil        string
)

var listCmd = &cobra.Command{
	Use:   "list [shards|crowns|grands]",
	Short: "List lattice entities",
	Long: `List entities at one tier of the lattice. Defaults to shards.

Filters narrow the listing; --since and --until accept either a Go
duration relative to now ("1h30m" means "since 1.5 hours ago") or an
RFC3339 timestamp.

Output Formats:
  default - Human-readable table
  jsonl   - One JSON entity per line

Examples:
  # All shards
  lattice list

  # Unsealed crowns tagged 'retro' from the last day
  lattice list crowns --tag retro --since 24h

  # Grand crowns as JSON lines
  lattice list grands --output=jsonl | jq -r '.id'

  # One agent's shards, sealed only
  lattice list shards --agent scribe --sealed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Only entities carrying this tag")
	listCmd.Flags().StringVar(&listAgent, "agent", "", "Only entities from this agent")
	listCmd.Flags().BoolVar(&listSealedOnly, "sealed", false, "Only sealed entities")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only entities created after this time (duration or RFC3339)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "Only entities created before this time (duration or RFC3339)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	var format archive.OutputFormat
	switch listOutputFormat {
	case "default":
		format = archive.OutputFormatDefault
	case "jsonl":
		format = archive.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", listOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	tier := "shards"
	if len(args) > 0 {
		tier = args[0]
	}

	sinceMS, untilMS, err := timespec.Bounds(listSince, listUntil)
	if err != nil {
		return printer.Error(
			"invalid time range",
			err.Error(),
			[]string{"Use a duration like '1h30m' or an RFC3339 timestamp like '2026-08-29T13:00:00Z'."},
		)
	}

	filters := &archive.FilterCriteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
		Tag:              listTag,
		Agent:            listAgent,
		SealedOnly:       listSealedOnly,
	}

	_, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	switch tier {
	case "shards":
		return archive.ListShards(ctx, client, format, filters, os.Stdout)
	case "crowns":
		return archive.ListCrowns(ctx, client, format, filters, os.Stdout)
	case "grands":
		return archive.ListGrandCrowns(ctx, client, format, os.Stdout)
	default:
		return printer.Error(
			"invalid tier",
			fmt.Sprintf("Unknown tier: %s", tier),
			[]string{"Valid tiers: shards, crowns, grands"},
		)
	}
}
