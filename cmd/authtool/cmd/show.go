package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litehttp/authcore/internal/ability"
	"github.com/litehttp/authcore/internal/identity"
)

var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show every user's roles and resolved abilities, or one user's",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}
		resolver := ability.New(store, ability.DefaultMaxDepth)
		resolver.ComputeAll()

		if len(args) == 1 {
			u, ok := store.LookupUser(args[0])
			if !ok {
				return fmt.Errorf("show: %w", identity.ErrNotFound)
			}
			printUser(u)
			return nil
		}

		for _, u := range store.Users() {
			printUser(u)
		}
		return nil
	},
}

func printUser(u *identity.User) {
	fmt.Printf("%s\troles=%s\tabilities=%s\n", u.Name, u.Roles, identity.AbilityListString(u.Abilities()))
}
