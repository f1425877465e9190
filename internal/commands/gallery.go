package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/dateparse"
	"github.com/basecamp/prismctl/internal/library"
	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/repo"
)

// NewGalleryCmd creates the gallery command.
func NewGalleryCmd() *cobra.Command {
	var (
		params library.GalleryParams
		order  string
		pages  int
		after  string
		before string
	)

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "List photos and videos",
		Long: `List media page by page, newest first unless --order oldest.

The first page is always loaded; --pages loads more until the gallery ends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := parseOrder(order)
			if err != nil {
				return err
			}
			if pages < 1 {
				return output.ErrUsage("--pages must be at least 1")
			}
			params.Order = o
			if params.Query, err = dateFilter(params.Query, "after", after); err != nil {
				return err
			}
			if params.Query, err = dateFilter(params.Query, "before", before); err != nil {
				return err
			}

			app, lib, err := session(cmd)
			if err != nil {
				return err
			}

			r := lib.Gallery(params)
			if err := r.Update().Wait(cmd.Context()); err != nil {
				return err
			}
			loaded := 1
			for ; loaded < pages && !r.NoMoreItems(); loaded++ {
				if err := loadNextPage(cmd.Context(), r); err != nil {
					return err
				}
			}

			media := r.ItemsList()
			return app.OK(media,
				output.WithSummary(plural(len(media), "item")),
				output.WithMeta("pages", loaded),
				output.WithMeta("complete", r.NoMoreItems()),
				withStatus(r),
			)
		},
	}
	cmd.Flags().StringVarP(&params.Query, "query", "q", "", "Search filter, e.g. \"label:cat year:2024\"")
	cmd.Flags().StringVar(&order, "order", "newest", "Sort order: newest or oldest")
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to load")
	cmd.Flags().IntVar(&params.PageLimit, "limit", library.GalleryPageLimit, "Items per page")
	cmd.Flags().StringVar(&after, "after", "", "Only media taken after this date (e.g. 2024-05, \"last month\", \"3 days ago\")")
	cmd.Flags().StringVar(&before, "before", "", "Only media taken before this date")
	return cmd
}

// loadNextPage requests one more page and waits for it to land or fail.
func loadNextPage(ctx context.Context, r *repo.PagedRepository[models.GalleryMedia]) error {
	items := r.Items()
	defer items.Close()
	errs := r.Errors()
	defer errs.Close()

	// Drain the replayed list so the next receive is the new page.
	select {
	case <-items.C():
	case <-ctx.Done():
		return ctx.Err()
	}
	if !r.LoadMore() {
		return nil
	}
	select {
	case <-items.C():
		return nil
	case err := <-errs.C():
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dateFilter appends a search filter such as "after:2024-05-01" to query.
func dateFilter(query, filter, value string) (string, error) {
	if value == "" {
		return query, nil
	}
	date, err := dateparse.Parse(value)
	if err != nil {
		return "", output.ErrUsageHint(err.Error(), "Use YYYY-MM-DD, yesterday, last week or \"N days ago\"")
	}
	return strings.TrimSpace(query + " " + filter + ":" + date), nil
}

func parseOrder(s string) (repo.Order, error) {
	switch strings.ToLower(s) {
	case "newest", "desc":
		return repo.OrderDesc, nil
	case "oldest", "asc":
		return repo.OrderAsc, nil
	default:
		return repo.OrderDesc, output.ErrUsageHint("unknown order: "+s, "Use newest or oldest")
	}
}
