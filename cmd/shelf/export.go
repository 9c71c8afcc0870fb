// Export command for the shelf CLI: dump a database into a SQLite file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/sqlite"
)

var exportCmd = &cobra.Command{
	Use:   "export <database> <file>",
	Short: "Export a database image into a SQLite file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, target := args[0], args[1]
		api, err := newAPI()
		if err != nil {
			fmt.Fprintln(os.Stderr, "export:", err)
			os.Exit(exitSysError)
		}
		if err := api.Open(name, ""); err != nil {
			fmt.Fprintln(os.Stderr, "export:", err)
			os.Exit(exitUserError)
		}
		if err := sqlite.Export(api.Editor().Database(), target); err != nil {
			fmt.Fprintln(os.Stderr, "export:", err)
			os.Exit(exitSysError)
		}
		fmt.Printf("exported %s to %s\n", name, target)
		return nil
	},
}
