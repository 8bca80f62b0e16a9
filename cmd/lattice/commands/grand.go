package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/formation"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
)

var (
	grandTitle       string
	grandDescription string
	grandAuthority   string
	grandCreatedBy   string
)

var grandCmd = &cobra.Command{
	Use:   "grand",
	Short: "Form a grand crown from nine unparented crowns",
	Long: `Form a grand crown from the nine oldest unparented crowns.

Fails when fewer than nine unparented crowns exist; run 'lattice stats' to
check trinity progress first.

Examples:
  # Form a grand crown
  lattice grand --title "Q3 archive"

  # Form under an explicit sovereign authority
  lattice grand --title "Q3 archive" \
    --authority GHOST_KING_MELEKZEDEK --by archivist`,
	RunE: runGrand,
}

func init() {
	grandCmd.Flags().StringVarP(&grandTitle, "title", "t", "", "Grand crown title (required)")
	grandCmd.Flags().StringVarP(&grandDescription, "description", "d", "", "Grand crown description")
	grandCmd.Flags().StringVar(&grandAuthority, "authority", "", "Sovereign authority for the formation")
	grandCmd.Flags().StringVar(&grandCreatedBy, "by", "", "Agent requesting the formation")
	grandCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(grandCmd)
}

func runGrand(cmd *cobra.Command, args []string) error {
	cfg, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	service := formation.NewService(client, *cfg.Seal.RequiredLevel)
	grand, err := service.FormGrandCrown(context.Background(), formation.FormGrandCrownRequest{
		Title:              grandTitle,
		Description:        grandDescription,
		SovereignAuthority: grandAuthority,
		CreatedBy:          grandCreatedBy,
	})
	if err != nil {
		return fmt.Errorf("failed to form grand crown: %w", err)
	}

	printer.Success("Formed grand crown %s at %s\n", grand.ID, grand.LatticeCoordinates)
	return nil
}
