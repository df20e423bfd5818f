package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Verify the configured token",
	Long: `Verify that the configured platform token is valid and print the
authenticated user and team.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		identity, err := eng.TestAuth(cmd.Context())
		if err != nil {
			return fmt.Errorf("auth check: %w", err)
		}

		fmt.Printf("Authenticated as %s (%s) on team %s (%s)\n",
			identity.User, identity.UserID, identity.Team, identity.TeamID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
