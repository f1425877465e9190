// Package library wires the feature repositories of one photo library:
// albums, people, labels, the gallery and the world map.
package library

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/remote"
	"github.com/basecamp/prismctl/internal/repo"
)

// API is the part of the remote client the features fetch through.
type API interface {
	Albums(ctx context.Context, typ models.AlbumType, count, offset int) ([]models.Album, error)
	CreateAlbum(ctx context.Context, title string) (models.Album, error)
	Subjects(ctx context.Context, count, offset int) ([]models.Person, error)
	Faces(ctx context.Context, count, offset int) ([]models.Person, error)
	Labels(ctx context.Context, count, offset int, all bool) ([]models.Label, error)
	Photos(ctx context.Context, q remote.PhotosQuery) ([]models.GalleryMedia, error)
	Geo(ctx context.Context) (models.MapDocument, error)
}

var _ API = (*remote.Client)(nil)

// Options configures a Library.
type Options struct {
	Logger  zerolog.Logger
	Metrics *repo.Metrics
	// PageRate paces the page requests of exhaustive loads. Zero is unlimited.
	PageRate rate.Limit
	// FreshTTL lapses cached data to stale. Zero keeps it fresh until invalidated.
	FreshTTL time.Duration
	// LoadingDebounce overrides repo.DefaultLoadingDebounce when non-zero.
	LoadingDebounce time.Duration
}

// Library is the hub of one library connection. Every repository it hands
// out lives in its realm and dies with it on Reconnect or Close.
type Library struct {
	mu     sync.RWMutex
	api    API
	name   string
	realm  *repo.Realm
	labels *repo.Keyed[bool, *repo.CollectionRepository[models.Label]]

	opts    Options
	limiter *rate.Limiter
}

// New creates a library named name fetching through api.
func New(name string, api API, opts Options) *Library {
	l := &Library{name: name, opts: opts}
	if opts.PageRate > 0 {
		l.limiter = rate.NewLimiter(opts.PageRate, 1)
	}
	l.connect(api)
	return l
}

// connect builds a fresh realm. Callers hold mu or own l exclusively.
func (l *Library) connect(api API) {
	l.api = api
	l.realm = repo.NewRealm(l.name, context.Background())
	realm := l.realm
	l.labels = repo.NewKeyed(func(all bool) *repo.CollectionRepository[models.Label] {
		r := newLabelsRepository(api, all, l.pageLimiter(), l.opts.Logger, l.repoOptions(realm)...)
		realm.Register(r.Name(), r)
		return r
	})
}

// Reconnect tears down every repository and starts over against api,
// e.g. after the configured server changed.
func (l *Library) Reconnect(api API) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts.Logger.Info().Str("library", l.name).Msg("reconnecting, dropping cached data")
	l.realm.Teardown()
	l.connect(api)
}

// Close tears down every repository.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.realm.Teardown()
}

// Realm returns the realm of the current connection.
func (l *Library) Realm() *repo.Realm {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.realm
}

// Metrics returns the fetch metrics, nil when disabled.
func (l *Library) Metrics() *repo.Metrics { return l.opts.Metrics }

// Albums returns the albums repository for the given set of types.
func (l *Library) Albums(types ...models.AlbumType) *repo.CollectionRepository[models.Album] {
	if len(types) == 0 {
		types = DefaultAlbumTypes
	}
	types = normalizeTypes(types)
	api, realm := l.current()
	return repo.RealmRepository(realm, albumsName(types), func(context.Context) *repo.CollectionRepository[models.Album] {
		return newAlbumsRepository(api, types, l.pageLimiter(), l.opts.Logger, l.repoOptions(realm)...)
	})
}

// People returns the people repository.
func (l *Library) People() *repo.CollectionRepository[models.Person] {
	api, realm := l.current()
	return repo.RealmRepository(realm, peopleName, func(context.Context) *repo.CollectionRepository[models.Person] {
		return newPeopleRepository(api, l.pageLimiter(), l.opts.Logger, l.repoOptions(realm)...)
	})
}

// Labels returns the labels repository; all includes labels hidden by default.
func (l *Library) Labels(all bool) *repo.CollectionRepository[models.Label] {
	l.mu.RLock()
	keyed := l.labels
	l.mu.RUnlock()
	return keyed.Get(all)
}

// Gallery returns the paged gallery repository for params.
func (l *Library) Gallery(params GalleryParams) *repo.PagedRepository[models.GalleryMedia] {
	params = params.withDefaults()
	api, realm := l.current()
	return repo.RealmRepository(realm, params.name(), func(context.Context) *repo.PagedRepository[models.GalleryMedia] {
		return newGalleryRepository(api, params, l.repoOptions(realm)...)
	})
}

// Map returns the world map repository.
func (l *Library) Map() *repo.SingleItemRepository[models.MapDocument] {
	api, realm := l.current()
	return repo.RealmRepository(realm, mapName, func(context.Context) *repo.SingleItemRepository[models.MapDocument] {
		return newMapRepository(api, l.repoOptions(realm)...)
	})
}

// Invalidate marks every repository stale.
func (l *Library) Invalidate() { l.Realm().Invalidate() }

// Refresh updates every repository that was ever used.
func (l *Library) Refresh() *repo.Handle { return l.Realm().UpdateIfEverUpdated() }

// Statuses returns the status of every repository.
func (l *Library) Statuses() []repo.Status { return l.Realm().Statuses() }

func (l *Library) current() (API, *repo.Realm) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.api, l.realm
}

func (l *Library) pageLimiter() *rate.Limiter { return l.limiter }

func (l *Library) repoOptions(realm *repo.Realm) []repo.Option {
	opts := []repo.Option{
		repo.WithContext(realm.Context()),
		repo.WithLogger(l.opts.Logger),
		repo.WithFreshTTL(l.opts.FreshTTL),
	}
	if l.opts.Metrics != nil {
		opts = append(opts, repo.WithMetrics(l.opts.Metrics))
	}
	if l.opts.LoadingDebounce != 0 {
		opts = append(opts, repo.WithLoadingDebounce(l.opts.LoadingDebounce))
	}
	return opts
}
