package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/formation"
	"github.com/GodsIMiJ1/the-Consciousness-Machine-sub000/internal/printer"
)

var (
	verifyEntityID string
	verifyHash     string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a seal hash against an entity's audit trail",
	Long: `Verify a presented seal hash against an entity's recorded seal.

Every verification attempt, successful or not, is appended to the entity's
audit trail as a VERIFIED event. The command exits non-zero when the hash
does not match.

Examples:
  # Verify a crown's seal
  lattice verify --entity a1b2... --hash 9F86D081...`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyEntityID, "entity", "", "Entity ID whose seal to verify (required)")
	verifyCmd.Flags().StringVar(&verifyHash, "hash", "", "Seal hash to verify (required)")
	verifyCmd.MarkFlagRequired("entity")
	verifyCmd.MarkFlagRequired("hash")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	service := formation.NewService(client, *cfg.Seal.RequiredLevel)
	ok, err := service.SealManager().Verify(context.Background(), verifyEntityID, verifyHash)
	if err != nil {
		return fmt.Errorf("failed to verify seal: %w", err)
	}

	if !ok {
		return printer.Error(
			"seal verification failed",
			fmt.Sprintf("Presented hash does not match the recorded seal for %s.", verifyEntityID),
			[]string{"Inspect the audit trail:\n  lattice events --entity " + verifyEntityID},
		)
	}

	printer.Success("Seal verified for %s\n", verifyEntityID)
	return nil
}
