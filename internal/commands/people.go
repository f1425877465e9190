package commands

import (
	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/output"
)

// NewPeopleCmd creates the people command.
func NewPeopleCmd() *cobra.Command {
	var (
		named bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "people",
		Short: "List people",
		Long: `List recognized people and unassigned faces.

Favorites come first, then named people, then faces by photo count.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, lib, err := session(cmd)
			if err != nil {
				return err
			}

			r := lib.People()
			if err := refresh(cmd.Context(), r, force); err != nil {
				return err
			}
			people := r.ItemsList()
			if named {
				kept := people[:0]
				for _, p := range people {
					if p.HasName() {
						kept = append(kept, p)
					}
				}
				people = kept
			}
			return app.OK(people,
				output.WithSummary(plural(len(people), "person")),
				withStatus(r),
			)
		},
	}
	cmd.Flags().BoolVar(&named, "named", false, "Only people with a name")
	addRefreshFlag(cmd, &force)
	return cmd
}
