// Root command for the shelf CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/shelf"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
)

// resolvedDataDir holds the data directory after flag, config, env, and
// platform defaults are applied. Set by PersistentPreRunE so all
// subcommands can use it.
var resolvedDataDir string

var rootCmd = &cobra.Command{
	Use:     "shelf",
	Short:   "Shelf is an embedded relational database with undo",
	Version: shelf.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := paths.ResolveConfigDir(flagConfigDir)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		resolvedDataDir, err = paths.ResolveDataDir(flagDataDir, cfg.GetString(cfgKeyDataDir))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "database root directory (default: platform data dir)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
}
