package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the nutrihub release.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/nutrihub"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nutrihub version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "nutrihub v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
