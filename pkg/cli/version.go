package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AdaptChat/harmony/pkg/wire"
)

// version is set at build time via -ldflags "-X github.com/AdaptChat/harmony/pkg/cli.version=x.y.z"
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show harmonyctl and gateway protocol versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "harmonyctl version %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "gateway protocol: v%d\n", wire.DefaultVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
