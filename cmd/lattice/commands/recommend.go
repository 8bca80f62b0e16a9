package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/archive"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/formation"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
)

var (
	recommendTopK         int
	recommendOutputFormat string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend crown formations from unbound shards",
	Long: `Score every three-shard combination of the unbound shard pool and
report the strongest candidates.

Scoring rewards agent diversity, shared tags, and temporal coherence; the
top candidates are the groupings most likely to form a coherent crown.

Examples:
  # Show the configured number of candidates
  lattice recommend

  # Show the top ten
  lattice recommend -k 10

  # Feed the best candidate straight into formation
  lattice recommend --output=json | jq -r '.[0].shards[].id'`,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().IntVarP(&recommendTopK, "top", "k", 0, "Number of candidates to show (default from lattice.yml)")
	recommendCmd.Flags().StringVarP(&recommendOutputFormat, "output", "o", "default", "Output format: default or json")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	if recommendOutputFormat != "default" && recommendOutputFormat != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", recommendOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	topK := recommendTopK
	if topK <= 0 {
		topK = *cfg.Recommend.MaxCandidates
	}

	service := formation.NewService(client, *cfg.Seal.RequiredLevel)
	candidates, err := service.Recommendations(context.Background(), topK)
	if err != nil {
		return fmt.Errorf("failed to compute recommendations: %w", err)
	}

	if recommendOutputFormat == "json" {
		return archive.FormatSingleJSON(os.Stdout, candidates)
	}

	if len(candidates) == 0 {
		printer.Info("Not enough unbound shards to recommend a formation (3 required).\n")
		return nil
	}

	for i, candidate := range candidates {
		printer.Printf("%d. Score %d\n", i+1, candidate.Score)
		for _, shard := range candidate.Shards {
			tags := ""
			if len(shard.Tags) > 0 {
				tags = " [" + strings.Join(shard.Tags, ",") + "]"
			}
			printer.Printf("   %s  %-20s %s%s\n", shard.ID, shard.Agent, shard.Title, tags)
		}
	}

	return nil
}
