package library

import (
	"context"
	"fmt"
	"strconv"

	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/remote"
	"github.com/basecamp/prismctl/internal/repo"
)

// GalleryPageLimit is the default number of entries per gallery page.
const GalleryPageLimit = 40

// GalleryParams selects a gallery.
type GalleryParams struct {
	Query     string
	Order     repo.Order
	PageLimit int
}

func (p GalleryParams) withDefaults() GalleryParams {
	if p.PageLimit <= 0 {
		p.PageLimit = GalleryPageLimit
	}
	return p
}

func (p GalleryParams) name() string {
	return fmt.Sprintf("gallery:%s:%d:%q", p.Order, p.PageLimit, p.Query)
}

func newGalleryRepository(api API, params GalleryParams, opts ...repo.Option) *repo.PagedRepository[models.GalleryMedia] {
	getter := &galleryGetter{api: api, query: params.Query}
	return repo.NewPagedRepository[models.GalleryMedia](params.name(), getter, params.PageLimit, params.Order, opts...)
}

// galleryGetter fills pages of merged entries. The server limits files
// rather than entries, so it requests twice the limit and keeps requesting
// until the page is full or the files run out.
type galleryGetter struct {
	api   API
	query string
}

func (g *galleryGetter) GetPage(ctx context.Context, req repo.PageRequest) (repo.DataPage[models.GalleryMedia], error) {
	offset, err := remote.Offset(req.Cursor)
	if err != nil {
		return repo.DataPage[models.GalleryMedia]{}, err
	}
	order := remote.OrderNewest
	if req.Order == repo.OrderAsc {
		order = remote.OrderOldest
	}
	lookahead := req.Limit * 2

	var (
		items []models.GalleryMedia
		last  bool
	)
	for !last && len(items) < req.Limit {
		media, err := g.api.Photos(ctx, remote.PhotosQuery{
			Count:  lookahead,
			Offset: offset,
			Query:  g.query,
			Order:  order,
		})
		if err != nil {
			return repo.DataPage[models.GalleryMedia]{}, err
		}
		files := 0
		for _, m := range media {
			files += len(m.Files)
		}
		last = files < lookahead
		offset += lookahead
		items = append(items, media...)
	}
	if items == nil {
		items = []models.GalleryMedia{}
	}
	return repo.DataPage[models.GalleryMedia]{
		Items:      items,
		NextCursor: strconv.Itoa(offset),
		IsLast:     last,
	}, nil
}
