package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show installation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Registration ID: %d\n", eng.RegistrationID())
			fmt.Printf("Device ID:       %d\n", eng.DeviceID())
			if !eng.EncryptionSetup() {
				fmt.Println("Encryption:      not set up (run 'courier init')")
				return nil
			}
			fmt.Println("Encryption:      set up")
			if pin == "" {
				fmt.Println("Keys:            locked (pass -p to inspect)")
				return nil
			}
			if err := unlock(); err != nil {
				return err
			}
			fp, err := eng.IdentityFingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint:     %s\n", fp)
			return nil
		},
	}
}
