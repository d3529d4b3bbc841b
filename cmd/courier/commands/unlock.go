package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func unlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Check a PIN against the stored key material",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := unlock(); err != nil {
				return err
			}
			fp, err := eng.IdentityFingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Unlocked.\nFingerprint: %s\n", fp)
			return nil
		},
	}
}
