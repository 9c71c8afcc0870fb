// Show command for the shelf CLI: list databases or a database's tables.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/printer"
)

var showCmd = &cobra.Command{
	Use:   "show [database]",
	Short: "List databases, or the tables of one database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPI()
		if err != nil {
			fmt.Fprintln(os.Stderr, "show:", err)
			os.Exit(exitSysError)
		}
		api.SetOutput(os.Stdout)

		if len(args) == 0 {
			if err := api.ShowDatabases(""); err != nil {
				fmt.Fprintln(os.Stderr, "show:", err)
				os.Exit(exitSysError)
			}
		} else {
			if err := api.Open(args[0], ""); err != nil {
				fmt.Fprintln(os.Stderr, "show:", err)
				os.Exit(exitUserError)
			}
			if err := api.ShowTables(); err != nil {
				fmt.Fprintln(os.Stderr, "show:", err)
				os.Exit(exitSysError)
			}
		}
		return api.Print(printer.Console, "")
	},
}
