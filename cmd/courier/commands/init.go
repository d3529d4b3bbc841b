package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	errPinRequired = errors.New("PIN required (-p)")
	errWrongPin    = errors.New("wrong PIN")
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Set up encryption with a PIN and create the identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pin == "" {
				return errPinRequired
			}
			if err := eng.SetupEncryption(pin); err != nil {
				return err
			}
			fp, err := eng.IdentityFingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Identity created.\nFingerprint: %s\nRegistration ID: %d\n", fp, eng.RegistrationID())
			return nil
		},
	}
}
