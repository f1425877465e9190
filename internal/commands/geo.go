package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/output"
)

// NewMapCmd creates the map command.
func NewMapCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Show geotagged media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, lib, err := session(cmd)
			if err != nil {
				return err
			}

			r := lib.Map()
			if err := refresh(cmd.Context(), r, force); err != nil {
				return err
			}
			doc, _ := r.Current()
			summary := plural(len(doc.Points), "place")
			if sw, ne, ok := doc.Bounds(); ok {
				summary += fmt.Sprintf(" within %.4f,%.4f and %.4f,%.4f", sw[0], sw[1], ne[0], ne[1])
			}
			return app.OK(doc.Points,
				output.WithSummary(summary),
				withStatus(r),
			)
		},
	}
	addRefreshFlag(cmd, &force)
	return cmd
}
