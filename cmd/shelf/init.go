// Init command for the shelf CLI: create a new database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <database>",
	Short: "Create a new database under the data directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		api, err := newAPI()
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}
		if err := api.Create(name, ""); err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitUserError)
		}
		fmt.Printf("created database %s under %s\n", name, resolvedDataDir)
		return nil
	},
}
