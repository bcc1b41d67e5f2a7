// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/gobb-forum/gobb/internal/config"
)

var (
	configPath string // Path to the configuration directory

	cfg config.Config
	err error
)

var rootCmd = &cobra.Command{
	Use:   "gobb",
	Short: "gobb serves the privilege engine and category tree of a forum",
	Long: `gobb serves the privilege engine and category tree of a forum.
It evaluates admin and category privileges, builds the category
pickers shown to users and exposes both through a JSON API and a
websocket event API.`,
	Args: cobra.OnlyValidArgs,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "Path to the configuration directory")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func readConfig() error {
	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	return nil
}
