package library

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/repo"
)

const (
	peopleName      = "people"
	PeoplePageLimit = 30
)

// newPeopleRepository combines recognized subjects with unnamed faces.
func newPeopleRepository(api API, limiter *rate.Limiter, logger zerolog.Logger, opts ...repo.Option) *repo.CollectionRepository[models.Person] {
	sources := []func(ctx context.Context, count, offset int) ([]models.Person, error){
		api.Subjects,
		api.Faces,
	}
	fetch := func(ctx context.Context) ([]models.Person, error) {
		perSource, err := repo.FanOut(ctx, sources, len(sources), func(ctx context.Context, src func(context.Context, int, int) ([]models.Person, error)) ([]models.Person, error) {
			return loadAll(ctx, limiter, logger, PeoplePageLimit, src, func(p models.Person) string { return p.ID })
		})
		if err != nil {
			return nil, err
		}
		people := slices.Concat(perSource...)
		models.SortPeople(people)
		return people, nil
	}
	return repo.NewCollectionRepository(peopleName, repo.CollectionFetcherFunc[models.Person](fetch), opts...)
}
