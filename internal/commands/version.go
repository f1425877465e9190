package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/appctx"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version": version.Version,
				"commit":  version.Commit,
				"date":    version.Date,
				"go":      runtime.Version(),
			}
			if app := appctx.FromContext(cmd.Context()); app != nil {
				return app.OK(info, output.WithSummary(version.Full()))
			}
			_, err := cmd.OutOrStdout().Write([]byte(version.Full() + "\n"))
			return err
		},
	}
}
