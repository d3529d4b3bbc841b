package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func registerKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register-keys",
		Short: "Print the public key material to upload to the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := unlock(); err != nil {
				return err
			}
			keys, err := eng.GenerateRegistrationKeys()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(keys, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
