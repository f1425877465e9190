package library

import (
	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/repo"
)

const mapName = "map"

func newMapRepository(api API, opts ...repo.Option) *repo.SingleItemRepository[models.MapDocument] {
	return repo.NewSingleItemRepository(mapName, repo.ItemFetcherFunc[models.MapDocument](api.Geo), opts...)
}
