package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmUserCmd = &cobra.Command{
	Use:   "rmuser <name>",
	Short: "Remove a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		store, err := loadStore()
		if err != nil {
			return err
		}
		if err := store.RemoveUser(name); err != nil {
			return fmt.Errorf("rmuser: %w", err)
		}
		if err := saveStore(store); err != nil {
			return err
		}
		fmt.Printf("Removed user %q\n", name)
		return nil
	},
}
