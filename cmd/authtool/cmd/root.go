// Package cmd implements the authtool administration CLI (C9): subcommands
// that load the flat-text identity store, mutate it, recompute abilities,
// and save it back out, grounded on TerraConstructs-grid's
// cmd/gridctl/cmd/role package layout (one parent command, one file per
// subcommand, shared state held in package-level flag variables).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var usersFile string
var realm string

var rootCmd = &cobra.Command{
	Use:   "authtool",
	Short: "Manage the authentication core's identity store",
	Long: `authtool edits the flat-text user/role directory consumed by
authcored: adding and removing users and roles, setting passwords, and
displaying a user's resolved ability set.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&usersFile, "file", "authcore.conf", "Path to the identity store file")
	rootCmd.PersistentFlags().StringVar(&realm, "realm", "example.com", "Realm used when hashing passwords with --encrypted")

	rootCmd.AddCommand(addUserCmd)
	rootCmd.AddCommand(addRoleCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(rmUserCmd)
	rootCmd.AddCommand(rmRoleCmd)
	rootCmd.AddCommand(showCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
