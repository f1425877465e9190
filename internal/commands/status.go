package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/library"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/repo"
)

// StatusRow is one repository in the status output.
type StatusRow struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	FetchedAt time.Time `json:"fetched_at"`
	Fetches   int       `json:"fetches"`
	Error     string    `json:"error,omitempty"`
}

func statusRows(statuses []repo.Status) []StatusRow {
	rows := make([]StatusRow, 0, len(statuses))
	for _, st := range statuses {
		row := StatusRow{
			Name:      st.Name,
			State:     st.State.String(),
			FetchedAt: st.FetchedAt,
			Fetches:   st.Fetches,
		}
		if st.Err != nil {
			row.Error = st.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// track opens the repositories a library session keeps current.
func track(lib *library.Library) []repo.Repository {
	return []repo.Repository{
		lib.Albums(),
		lib.People(),
		lib.Labels(false),
		lib.Map(),
	}
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Load the library and report every repository",
		Long: `Load albums, people, labels and the map, then report the state of
each repository. Failed repositories are reported, not fatal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, lib, err := session(cmd)
			if err != nil {
				return err
			}

			track(lib)
			// Failures land in each repository's status.
			_ = lib.Realm().UpdateIfNotFresh().Wait(cmd.Context())
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			rows := statusRows(lib.Statuses())
			failed := 0
			for _, row := range rows {
				if row.Error != "" {
					failed++
				}
			}
			summary := app.Metrics.Summary()
			return app.OK(rows,
				output.WithSummary(plural(len(rows), "repo")+", "+plural(failed, "failure")),
				output.WithMeta("p50_latency", summary.P50Latency.String()),
				output.WithMeta("error_rate", summary.ErrorRate),
			)
		},
	}
}
