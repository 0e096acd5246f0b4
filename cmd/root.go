package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datachainlab/crossdomain-relayer/config"
)

const flagHome = "home"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crly",
	Short: "This application relays cross-domain messages between configured EVM chains",
}

func init() {
	cobra.EnableCommandSorting = false

	rootCmd.SilenceUsage = true

	defaultHome := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultHome = filepath.Join(home, ".crly")
	}
	rootCmd.PersistentFlags().String(flagHome, defaultHome, "set home directory")
	if err := viper.BindPFlag(flagHome, rootCmd.PersistentFlags().Lookup(flagHome)); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		configCmd(),
		serviceCmd(),
		queryCmd(),
	)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func homePath() string {
	return viper.GetString(flagHome)
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(homePath())
}
