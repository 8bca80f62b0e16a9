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
	addTitle       string
	addContent     string
	addAgent       string
	addTags        []string
	addThoughtType string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Capture a new memory shard",
	Long: `Capture a new memory shard into the lattice.

The shard is assigned the next free shard coordinate (3.0.N) and remains
unbound until a crown formation claims it.

Thought Types:
  observation - recorded fact or event (default)
  reflection  - derived insight
  command     - directive issued to an agent
  system      - engine-generated record

Examples:
  # Capture an observation
  lattice add --title "Deploy completed" --agent ops-agent

  # Capture a tagged reflection with content
  lattice add --title "Retro insight" --agent scribe \
    --content "Rollbacks cluster around Friday deploys" \
    --tags retro,deploys --type reflection`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Shard title (required)")
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "Shard content body")
	addCmd.Flags().StringVarP(&addAgent, "agent", "a", "", "Originating agent name (required)")
	addCmd.Flags().StringSliceVar(&addTags, "tags", nil, "Comma-separated tags")
	addCmd.Flags().StringVar(&addThoughtType, "type", "", "Thought type: observation, reflection, command, or system")
	addCmd.MarkFlagRequired("title")
	addCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	thoughtType := lattice.ThoughtType(addThoughtType)
	if addThoughtType != "" {
		if err := thoughtType.Validate(); err != nil {
			return printer.Error(
				"invalid thought type",
				err.Error(),
				[]string{"Valid types: observation, reflection, command, system"},
			)
		}
	}

	cfg, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	service := formation.NewService(client, *cfg.Seal.RequiredLevel)
	shard, err := service.RecordShard(context.Background(), formation.RecordShardRequest{
		Title:       addTitle,
		Content:     addContent,
		Agent:       addAgent,
		Tags:        addTags,
		ThoughtType: thoughtType,
	})
	if err != nil {
		return fmt.Errorf("failed to record shard: %w", err)
	}

	printer.Success("Recorded shard %s at %s\n", shard.ID, shard.Coordinates)
	return nil
}
