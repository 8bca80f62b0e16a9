package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/archive"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/formation"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
)

var getAccessor string

var getCmd = &cobra.Command{
	Use:   "get ENTITY_ID",
	Short: "Get full details of one entity",
	Long: `Get complete details of a shard, crown, or grand crown as
pretty-printed JSON. The ID is resolved across all three tiers.

Reads of sealed entities are recorded in the entity's audit trail as
ACCESSED events, attributed to --as.

Examples:
  # Inspect an entity
  lattice get a1b2...

  # Inspect a sealed crown, attributing the access
  lattice get a1b2... --as OMARI_RIGHT_HAND_OF_THRONE`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getAccessor, "as", "", "Authority to attribute sealed-entity accesses to")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	entityID := args[0]

	cfg, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	accessor := getAccessor
	if accessor == "" {
		accessor = cfg.Seal.DefaultAuthority
	}

	service := formation.NewService(client, *cfg.Seal.RequiredLevel)
	err = archive.GetEntity(context.Background(), client, service.SealManager(), entityID, accessor, os.Stdout)
	if err != nil {
		if archive.IsNotFound(err) {
			return printer.Error(
				"entity not found",
				fmt.Sprintf("No shard, crown, or grand crown with ID: %s", entityID),
				[]string{"List what exists:\n  lattice list\n  lattice list crowns"},
			)
		}
		return fmt.Errorf("failed to get entity: %w", err)
	}

	return nil
}
