package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/archive"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
)

var statsOutputFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lattice statistics",
	Long: `Show aggregate statistics for the lattice instance.

Reports entity counts, trinity progress toward the next grand crown, and
formation readiness of the unbound shard pool, plus a breakdown of seal
activity by authority.

Output Formats:
  default - Human-readable summary
  json    - Statistics object as pretty-printed JSON

Examples:
  # Human-readable overview
  lattice stats

  # Machine-readable statistics
  lattice stats --output=json | jq '.trinity_progress.percentage'`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsOutputFormat, "output", "o", "default", "Output format: default or json")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsOutputFormat != "default" && statsOutputFormat != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", statsOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	_, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	stats, err := client.Statistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	if statsOutputFormat == "json" {
		return archive.FormatSingleJSON(os.Stdout, stats)
	}

	sealStats, err := archive.GatherSealStatistics(ctx, client)
	if err != nil {
		return err
	}

	printer.Printf("Instance: %s\n\n", client.InstanceName())
	printer.Printf("Shards:        %d (%d uncrowned, %d sealed)\n", stats.TotalShards, stats.UncrownedShards, stats.SealedShards)
	printer.Printf("Crowns:        %d (%d sealed)\n", stats.TotalCrowns, stats.SealedCrowns)
	printer.Printf("Grand crowns:  %d\n\n", stats.GrandCrowns)
	printer.Printf("Trinity progress:    %d/%d crowns (%d%%)\n",
		stats.TrinityProgress.CurrentCrowns, stats.TrinityProgress.RequiredForGrand, stats.TrinityProgress.Percentage)
	printer.Printf("Formation readiness: %d crowns can form, %d shards needed for next\n\n",
		stats.FormationReadiness.CanFormCrowns, stats.FormationReadiness.ShardsNeededForNextCrown)

	printer.Printf("Seal activity: %d seals, %d verifications, %d accesses\n",
		sealStats.TotalSeals, sealStats.TotalVerifications, sealStats.TotalAccesses)
	for _, authority := range sealStats.ByAuthority {
		if authority.Seals == 0 && authority.Witnessed == 0 {
			continue
		}
		printer.Printf("  %-28s (level %2d): %d sealed, %d witnessed\n",
			authority.Authority, authority.Level, authority.Seals, authority.Witnessed)
	}

	return nil
}
