package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"courier/internal/app"
	"courier/internal/engine"
)

var (
	home string
	pin  string

	eng        *engine.Engine
	closeStore func() error
)

func Execute() error {
	root := &cobra.Command{
		Use:   "courier",
		Short: "End-to-end encrypted delivery core CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".courier")
			}

			e, closer, err := app.BuildEngine(home)
			if err != nil {
				return err
			}
			eng, closeStore = e, closer
			return eng.Initialize(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeStore != nil {
				return closeStore()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.courier)")
	root.PersistentFlags().StringVarP(&pin, "pin", "p", "", "PIN protecting key material")

	root.AddCommand(initCmd(), unlockCmd(), prekeysCmd(), registerKeysCmd(), statusCmd())
	return root.Execute()
}

// unlock runs the PIN check shared by every command that needs key
// material.
func unlock() error {
	if pin == "" {
		return errPinRequired
	}
	ok, err := eng.UnlockWithPIN(pin)
	if err != nil {
		return err
	}
	if !ok {
		return errWrongPin
	}
	return nil
}
