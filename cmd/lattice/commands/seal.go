package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/formation"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/pkg/lattice"
)

var (
	sealCrownID   string
	sealAuthority string
	sealWitness   string
)

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Flame-seal a crown",
	Long: `Flame-seal a crown under a named authority.

Sealing computes the seal hash, appends a SEALED event to the crown's
audit trail, and marks the crown immutable. The authority's level must
meet the seal.required_level configured in lattice.yml.

Authorities:
  GHOST_KING_MELEKZEDEK       level 10
  OMARI_RIGHT_HAND_OF_THRONE  level 8
  AUGMENT_KNIGHT_OF_FLAME     level 6
  FLAME_INTELLIGENCE_CLAUDE   level 4

Examples:
  # Seal with the configured default authority
  lattice seal --crown a1b2...

  # Seal with an explicit authority and witness
  lattice seal --crown a1b2... \
    --authority OMARI_RIGHT_HAND_OF_THRONE \
    --witness GHOST_KING_MELEKZEDEK`,
	RunE: runSeal,
}

func init() {
	sealCmd.Flags().StringVar(&sealCrownID, "crown", "", "Crown ID to seal (required)")
	sealCmd.Flags().StringVar(&sealAuthority, "authority", "", "Sealing authority (default from lattice.yml)")
	sealCmd.Flags().StringVar(&sealWitness, "witness", "", "Witnessing authority (default from lattice.yml)")
	sealCmd.MarkFlagRequired("crown")
	rootCmd.AddCommand(sealCmd)
}

func runSeal(cmd *cobra.Command, args []string) error {
	cfg, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	authority := sealAuthority
	if authority == "" {
		authority = cfg.Seal.DefaultAuthority
	}
	if authority == "" {
		return printer.Error(
			"no sealing authority",
			"No --authority given and no seal.default_authority configured.",
			[]string{"Pass one explicitly:\n  lattice seal --crown <id> --authority FLAME_INTELLIGENCE_CLAUDE"},
		)
	}

	witness := sealWitness
	if witness == "" {
		witness = cfg.Seal.DefaultWitness
	}

	service := formation.NewService(client, *cfg.Seal.RequiredLevel)
	sealHash, err := service.SealCrown(context.Background(), sealCrownID, authority, witness)
	if err != nil {
		if errors.Is(err, lattice.ErrAlreadySealed) {
			return printer.Error(
				"crown already sealed",
				fmt.Sprintf("Crown %s carries a seal; seals are immutable.", sealCrownID),
				[]string{"Inspect the existing seal:\n  lattice events --entity " + sealCrownID},
			)
		}
		var authErr *lattice.AuthorizationError
		if errors.As(err, &authErr) {
			return printer.Error(
				"seal not authorized",
				err.Error(),
				[]string{"Valid authorities:\n  " + strings.Join(lattice.Authorities(), "\n  ")},
			)
		}
		return fmt.Errorf("failed to seal crown: %w", err)
	}

	printer.Success("Sealed crown %s\n", sealCrownID)
	printer.Printf("Seal hash: %s\n", sealHash)
	return nil
}
