package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litehttp/authcore/internal/ability"
)

var rmRoleCmd = &cobra.Command{
	Use:   "rmrole <name>",
	Short: "Remove a role",
	Long: `Removes a role definition. Users whose role spec still names the
removed role keep that token as an opaque, unresolvable entry in their
spec; run "authtool show" to see the effect, and edit affected users'
roles directly if that is not desired.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		store, err := loadStore()
		if err != nil {
			return err
		}
		if err := store.RemoveRole(name); err != nil {
			return fmt.Errorf("rmrole: %w", err)
		}
		// RemoveRole does not itself recompute affected users' abilities;
		// do it here for the in-memory store. Abilities are not written to
		// the file; readers recompute them after Load.
		ability.New(store, ability.DefaultMaxDepth).ComputeAll()

		if err := saveStore(store); err != nil {
			return err
		}
		fmt.Printf("Removed role %q\n", name)
		return nil
	},
}
