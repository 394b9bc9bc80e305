package registry

import (
	"github.com/spf13/cobra"

	"github.com/distribution/drawbridge/version"
)

var showVersion bool

func init() {
	RootCmd.AddCommand(ServeCmd)
	RootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")
}

// RootCmd is the main command for the 'drawbridge' binary. There is no
// garbage-collect subcommand: the Entity Store never deletes content
// once written (spec.md Non-goals), so there is nothing for one to sweep.
var RootCmd = &cobra.Command{
	Use:   "drawbridge",
	Short: "`drawbridge`",
	Long:  "`drawbridge`",
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			version.PrintVersion()
			return
		}
		// nolint:errcheck
		cmd.Usage()
	},
}
