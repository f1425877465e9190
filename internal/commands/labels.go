package commands

import (
	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/output"
)

// NewLabelsCmd creates the labels command.
func NewLabelsCmd() *cobra.Command {
	var (
		all   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, lib, err := session(cmd)
			if err != nil {
				return err
			}

			r := lib.Labels(all)
			if err := refresh(cmd.Context(), r, force); err != nil {
				return err
			}
			labels := r.ItemsList()
			return app.OK(labels,
				output.WithSummary(plural(len(labels), "label")),
				withStatus(r),
			)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include labels hidden by default")
	addRefreshFlag(cmd, &force)
	return cmd
}
