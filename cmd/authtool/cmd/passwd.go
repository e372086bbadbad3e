package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litehttp/authcore/internal/credential"
	"github.com/litehttp/authcore/internal/identity"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd <name> <new-password>",
	Short: "Change an existing user's password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypted, _ := cmd.Flags().GetBool("encrypted")
		name, password := args[0], args[1]

		store, err := loadStore()
		if err != nil {
			return err
		}
		u, ok := store.LookupUser(name)
		if !ok {
			return fmt.Errorf("passwd: %w", identity.ErrNotFound)
		}

		if encrypted {
			u.Password = credential.HA1(name, realm, password)
		} else {
			u.Password = password
		}

		if err := saveStore(store); err != nil {
			return err
		}
		fmt.Printf("Updated password for %q\n", name)
		return nil
	},
}

func init() {
	passwdCmd.Flags().Bool("encrypted", false, "Store the HA1 digest of the password rather than cleartext")
}
