// Package cmd implements the authcored demo server's command line,
// grounded on TerraConstructs-grid's cmd/gridapi/cmd/root.go: a cobra
// root command that loads configuration in PersistentPreRunE and a
// viper-backed config file auto-discovery pass run via cobra.OnInitialize.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/litehttp/authcore/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "authcored",
	Short: "Demo HTTP server exercising the authentication core",
	Long: `authcored is a small reference server that mounts the authentication
core (identity store, ability resolver, credential verifiers, protocol
adapters, session binder, and authorization gate) behind a handful of
example routes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "Config file path (YAML/JSON/TOML - overrides default search)")
	viper.BindPFlag("config_file", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig auto-discovers an optional config file; authcored's own
// tunables are read straight from the environment by config.Load, so this
// only matters for deployments layering viper-managed settings on top.
func initConfig() {
	if cfgFile := viper.GetString("config_file"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("authcored")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.authcore")
		viper.AddConfigPath("/etc/authcore")
	}
	_ = viper.ReadInConfig()
}

var version = "dev"

// SetVersion sets the version string reported by the version subcommand.
func SetVersion(v string) { version = v }

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("authcored version %s\n", version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
