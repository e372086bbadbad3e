package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litehttp/authcore/internal/ability"
	"github.com/litehttp/authcore/internal/credential"
)

var addUserCmd = &cobra.Command{
	Use:   "adduser <name> <password> [roles...]",
	Short: "Add a user, storing the password in cleartext or as HA1",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypted, _ := cmd.Flags().GetBool("encrypted")
		name, password := args[0], args[1]
		rolesSpec := ""
		if len(args) > 2 {
			rolesSpec = joinTokens(args[2:])
		}

		store, err := loadStore()
		if err != nil {
			return err
		}

		stored := password
		if encrypted {
			stored = credential.HA1(name, realm, password)
		}
		u, err := store.AddUser(name, stored, rolesSpec)
		if err != nil {
			return fmt.Errorf("add user %q: %w", name, err)
		}

		ability.New(store, ability.DefaultMaxDepth).Compute(u)

		if err := saveStore(store); err != nil {
			return err
		}
		fmt.Printf("Added user %q\n", name)
		return nil
	},
}

func init() {
	addUserCmd.Flags().Bool("encrypted", false, "Store the HA1 digest of the password rather than cleartext")
}
