package library

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/remote"
	"github.com/basecamp/prismctl/internal/repo"
)

// AlbumsPageLimit is the page size of album listings.
const AlbumsPageLimit = 30

// DefaultAlbumTypes are the albums a gallery can be filtered by.
var DefaultAlbumTypes = []models.AlbumType{models.AlbumTypeAlbum, models.AlbumTypeFolder}

// normalizeTypes sorts and deduplicates types so that equal sets share
// one repository.
func normalizeTypes(types []models.AlbumType) []models.AlbumType {
	types = slices.Clone(types)
	slices.Sort(types)
	return slices.Compact(types)
}

func albumsName(types []models.AlbumType) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return "albums:" + strings.Join(names, ",")
}

// newAlbumsRepository loads every album of every type, the types
// concurrently, favorites first.
func newAlbumsRepository(api API, types []models.AlbumType, limiter *rate.Limiter, logger zerolog.Logger, opts ...repo.Option) *repo.CollectionRepository[models.Album] {
	types = normalizeTypes(types)
	fetch := func(ctx context.Context) ([]models.Album, error) {
		perType, err := repo.FanOut(ctx, types, len(types), func(ctx context.Context, typ models.AlbumType) ([]models.Album, error) {
			return loadAll(ctx, limiter, logger.With().Str("album_type", string(typ)).Logger(), AlbumsPageLimit, func(ctx context.Context, count, offset int) ([]models.Album, error) {
				return api.Albums(ctx, typ, count, offset)
			}, func(a models.Album) string { return a.UID })
		})
		if err != nil {
			return nil, err
		}
		albums := slices.Concat(perType...)
		models.SortAlbums(albums)
		return albums, nil
	}
	return repo.NewCollectionRepository(albumsName(types), repo.CollectionFetcherFunc[models.Album](fetch), opts...)
}

// CreateAlbum creates an album on the server and adds it to every loaded
// albums repository listing its type, without a refetch.
func (l *Library) CreateAlbum(ctx context.Context, title string) (models.Album, error) {
	api, realm := l.current()
	album, err := api.CreateAlbum(ctx, title)
	if err != nil {
		return models.Album{}, err
	}

	for _, key := range realm.Keys() {
		types, ok := strings.CutPrefix(key, "albums:")
		if !ok || !slices.Contains(strings.Split(types, ","), string(album.Type)) {
			continue
		}
		r, ok := realm.Get(key).(*repo.CollectionRepository[models.Album])
		if !ok || r.IsNeverUpdated() {
			continue
		}
		err := r.Mutate(func(albums []models.Album) []models.Album {
			albums = append(albums, album)
			models.SortAlbums(albums)
			return albums
		})
		if err != nil {
			l.opts.Logger.Debug().Err(err).Str("repository", key).Msg("skipping closed repository")
		}
	}
	return album, nil
}

// FindAlbum returns the loaded album with uid.
func FindAlbum(r *repo.CollectionRepository[models.Album], uid string) (models.Album, bool) {
	albums := r.ItemsList()
	i := slices.IndexFunc(albums, func(a models.Album) bool { return a.UID == uid })
	if i < 0 {
		return models.Album{}, false
	}
	return albums[i], true
}

// loadAll pages through an offset endpoint with the collection loader.
// Offset pages shift when items are added mid-load, so items are
// deduplicated by key.
func loadAll[T any](ctx context.Context, limiter *rate.Limiter, logger zerolog.Logger, count int, fetch func(ctx context.Context, count, offset int) ([]T, error), key func(T) string) ([]T, error) {
	opts := []repo.LoaderOption[T]{repo.WithDistinct(key), repo.WithLoaderLogger[T](logger)}
	if limiter != nil {
		opts = append(opts, repo.WithPageLimiter[T](limiter))
	}
	return repo.NewPagedCollectionLoader(remote.OffsetFetcher(count, fetch), opts...).LoadAll(ctx)
}
