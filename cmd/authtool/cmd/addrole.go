package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litehttp/authcore/internal/ability"
)

var addRoleCmd = &cobra.Command{
	Use:   "addrole <name> <ability...>",
	Short: "Add a role as a bundle of abilities and/or sub-role names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		abilities := args[1:]

		store, err := loadStore()
		if err != nil {
			return err
		}

		if _, err := store.AddRole(name, abilities); err != nil {
			return fmt.Errorf("add role %q: %w", name, err)
		}
		// A new role may be referenced by existing users' role specs
		// already; recompute everyone's in-memory closure. Abilities are
		// not written to the file, so the saved store holds only roles
		// specs and each reader recomputes after Load.
		ability.New(store, ability.DefaultMaxDepth).ComputeAll()

		if err := saveStore(store); err != nil {
			return err
		}
		fmt.Printf("Added role %q\n", name)
		return nil
	},
}
