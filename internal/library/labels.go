package library

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/repo"
)

// LabelsPageLimit is the page size of label listings.
const LabelsPageLimit = 120

func labelsName(all bool) string {
	if all {
		return "labels:all"
	}
	return "labels"
}

func newLabelsRepository(api API, all bool, limiter *rate.Limiter, logger zerolog.Logger, opts ...repo.Option) *repo.CollectionRepository[models.Label] {
	fetch := func(ctx context.Context) ([]models.Label, error) {
		return loadAll(ctx, limiter, logger, LabelsPageLimit, func(ctx context.Context, count, offset int) ([]models.Label, error) {
			return api.Labels(ctx, count, offset, all)
		}, func(l models.Label) string { return l.UID })
	}
	return repo.NewCollectionRepository(labelsName(all), repo.CollectionFetcherFunc[models.Label](fetch), opts...)
}
