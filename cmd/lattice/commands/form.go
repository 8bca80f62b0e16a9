package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/formation"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

var (
	formTitle       string
	formDescription string
	formAgent       string
	formShardIDs    []string
	formTags        []string
	formDecree      string
	formOverseer    string
)

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Form a crown from exactly three shards",
	Long: `Form a crown from exactly three unbound shards.

The formation is validated first: all three shards must exist and be
unbound. Each shard is then claimed with a conditional bind, so concurrent
formations cannot steal shards from each other.

Examples:
  # Form a crown from three shard IDs
  lattice form --title "Sprint retro" --agent scribe \
    --shards a1b2...,c3d4...,e5f6...

  # Form a decreed crown with an overseer
  lattice form --title "Release record" --agent ops-agent \
    --shards a1b2...,c3d4...,e5f6... \
    --decree "By order of the throne" --overseer OMARI_RIGHT_HAND_OF_THRONE`,
	RunE: runForm,
}

func init() {
	formCmd.Flags().StringVarP(&formTitle, "title", "t", "", "Crown title (required)")
	formCmd.Flags().StringVarP(&formDescription, "description", "d", "", "Crown description")
	formCmd.Flags().StringVarP(&formAgent, "agent", "a", "", "Forming agent name (required)")
	formCmd.Flags().StringSliceVar(&formShardIDs, "shards", nil, "Comma-separated shard IDs, exactly three (required)")
	formCmd.Flags().StringSliceVar(&formTags, "tags", nil, "Comma-separated tags")
	formCmd.Flags().StringVar(&formDecree, "decree", "", "Royal decree authorizing the formation")
	formCmd.Flags().StringVar(&formOverseer, "overseer", "", "Overseeing authority")
	formCmd.MarkFlagRequired("title")
	formCmd.MarkFlagRequired("agent")
	formCmd.MarkFlagRequired("shards")
	rootCmd.AddCommand(formCmd)
}

func runForm(cmd *cobra.Command, args []string) error {
	if len(formShardIDs) != lattice.ShardsPerCrown {
		return printer.Error(
			"invalid shard count",
			fmt.Sprintf("Exactly %d shards required, got %d", lattice.ShardsPerCrown, len(formShardIDs)),
			[]string{"Pick three unbound shards:\n  lattice recommend"},
		)
	}

	cfg, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	service := formation.NewService(client, *cfg.Seal.RequiredLevel)
	crown, err := service.FormCrown(context.Background(), formation.FormCrownRequest{
		Title:       formTitle,
		Description: formDescription,
		Agent:       formAgent,
		ShardIDs:    formShardIDs,
		Tags:        formTags,
		RoyalDecree: formDecree,
		Overseer:    formOverseer,
	})
	if err != nil {
		return fmt.Errorf("failed to form crown: %w", err)
	}

	printer.Success("Formed crown %s at %s\n", crown.ID, crown.LatticeCoordinates)
	printer.Info("Seal it when ready:\n  lattice seal --crown %s --authority <authority>\n", crown.ID)
	return nil
}
