package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/appctx"
	"github.com/basecamp/prismctl/internal/library"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/repo"
)

// session resolves the app and its library connection for cmd.
func session(cmd *cobra.Command) (*appctx.App, *library.Library, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, nil, output.ErrUsage("app not initialized")
	}
	lib, err := app.Library()
	if err != nil {
		return nil, nil, err
	}
	return app, lib, nil
}

// refresh brings r up to date. Without force, fresh data is used as is.
func refresh(ctx context.Context, r repo.Repository, force bool) error {
	if force {
		return r.Update().Wait(ctx)
	}
	return r.UpdateIfNotFresh().Wait(ctx)
}

// withStatus adds the repository's status to the response metadata.
func withStatus(r repo.Repository) output.ResponseOption {
	st := r.Status()
	return func(resp *output.Response) {
		output.WithMeta("repository", st.Name)(resp)
		output.WithMeta("state", st.State.String())(resp)
		if !st.FetchedAt.IsZero() {
			output.WithMeta("fetched_at", st.FetchedAt)(resp)
		}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func addRefreshFlag(cmd *cobra.Command, force *bool) {
	cmd.Flags().BoolVar(force, "refresh", false, "Fetch even when cached data is fresh")
}
