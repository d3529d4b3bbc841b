package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func prekeysCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "prekeys",
		Short: "Mint a batch of one-time pre-keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > 200 {
				return fmt.Errorf("count must be between 1 and 200")
			}
			if err := unlock(); err != nil {
				return err
			}
			pairs, err := eng.GeneratePreKeys(count)
			if err != nil {
				return err
			}
			fmt.Printf("Generated %d one-time pre-keys (IDs %d..%d).\n",
				len(pairs), pairs[0].ID, pairs[len(pairs)-1].ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 20, "number of pre-keys to generate")
	return cmd
}
