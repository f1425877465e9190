package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/repo"
	"github.com/basecamp/prismctl/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://photos.local")
	assert.Error(t, err)
	_, err = New("://")
	assert.Error(t, err)
}

func TestClientSendsHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/labels", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "prismctl/test", r.Header.Get("User-Agent"))
		assert.Len(t, r.Header.Get("X-Request-Id"), 36)
		assert.Equal(t, "120", r.URL.Query().Get("count"))
		assert.Equal(t, "240", r.URL.Query().Get("offset"))
		assert.Equal(t, "true", r.URL.Query().Get("all"))
		_, _ = w.Write([]byte(`[{"UID":"l1","Name":"Cat","Slug":"cat","PhotoCount":4,"Favorite":true}]`))
	}, WithToken("s3cret"), WithUserAgent("prismctl/test"))

	labels, err := c.Labels(context.Background(), 120, 240, true)
	require.NoError(t, err)
	assert.Equal(t, []models.Label{{UID: "l1", Name: "Cat", Slug: "cat", PhotoCount: 4, Favorite: true}}, labels)
}

func TestClientDecodesAlbums(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "folder", r.URL.Query().Get("type"))
		assert.Equal(t, OrderFavorites, r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`[{"UID":"a1","Title":"2024","Type":"folder","Favorite":false,"Thumb":"abc"}]`))
	})

	albums, err := c.Albums(context.Background(), models.AlbumTypeFolder, 30, 0)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, models.Album{UID: "a1", Title: "2024", Type: models.AlbumTypeFolder, Thumb: "abc"}, albums[0])
}

func TestClientCreatesAlbum(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/albums", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Holidays", body["Title"])
		_, _ = w.Write([]byte(`{"UID":"a9","Title":"Holidays","Type":"album"}`))
	})

	album, err := c.CreateAlbum(context.Background(), "Holidays")
	require.NoError(t, err)
	assert.Equal(t, models.Album{UID: "a9", Title: "Holidays", Type: models.AlbumTypeAlbum}, album)
}

func TestClientCreateAlbumWithoutUID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := c.CreateAlbum(context.Background(), "Holidays")
	assert.ErrorContains(t, err, "no UID")
}

func TestClientDecodesPhotos(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("merged"))
		assert.Equal(t, "cats", r.URL.Query().Get("q"))
		assert.Equal(t, OrderOldest, r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`[{
			"UID":"p1","Hash":"h1","Title":"Cat","Type":"live","TakenAtLocal":"2023-05-01T10:00:00Z",
			"Width":4000,"Height":3000,"Favorite":true,
			"Files":[{"UID":"f1","Name":"cat.heic","Mime":"image/heic","Size":100,"Primary":true},{"UID":"f2","Name":"cat.mov"}]
		}]`))
	})

	media, err := c.Photos(context.Background(), PhotosQuery{Count: 10, Query: "cats", Order: OrderOldest})
	require.NoError(t, err)
	require.Len(t, media, 1)
	m := media[0]
	assert.Equal(t, models.MediaLive, m.Type)
	assert.Equal(t, time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC), m.TakenAtLocal)
	assert.Len(t, m.Files, 2)
	orig, _ := m.Original()
	assert.Equal(t, "cat.heic", orig.Name)
}

func TestClientDecodesPeople(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/subjects":
			assert.Equal(t, "person", r.URL.Query().Get("type"))
			_, _ = w.Write([]byte(`[{"UID":"s1","Name":"Amy","PhotoCount":7}]`))
		case "/api/v1/faces":
			assert.Equal(t, "true", r.URL.Query().Get("unknown"))
			_, _ = w.Write([]byte(`[{"ID":"f1","Samples":3,"Thumb":"t"}]`))
		}
	})

	subjects, err := c.Subjects(context.Background(), 30, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.Person{{ID: "s1", Name: "Amy", PhotoCount: 7}}, subjects)

	faces, err := c.Faces(context.Background(), 30, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.Person{{ID: "f1", Face: true, PhotoCount: 3, Thumb: "t"}}, faces)
}

func TestClientDecodesGeo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","geometry":{"type":"Point","coordinates":[-2.59,42.56]},
			 "properties":{"UID":"pt1","Hash":"h","TakenAt":"2012-08-27T12:40:25Z","Title":"Winery"}},
			{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}
		]}`))
	})

	doc, err := c.Geo(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Points, 1)
	assert.Equal(t, "pt1", doc.Points[0].UID)
	assert.InDelta(t, 42.56, doc.Points[0].Lat, 1e-9)
	assert.InDelta(t, -2.59, doc.Points[0].Lng, 1e-9)
}

func TestClientAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	})

	_, err := c.Labels(context.Background(), 10, 0, false)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "slow down", apiErr.Message)
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)
	assert.False(t, apiErr.Trips())
	d, ok := apiErr.Backoff()
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, d)
}

func TestClientInvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	_, err := c.Labels(context.Background(), 10, 0, false)
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestClientThroughGate(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	store := resilience.NewStore(t.TempDir())
	cfg := resilience.Config{Breaker: resilience.BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute}}
	c, err := New(srv.URL)
	require.NoError(t, err)
	c.gate = resilience.NewGate(store, c.Host(), cfg, zerolog.Nop())

	for range 2 {
		_, err := c.Labels(context.Background(), 10, 0, false)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.Trips())
	}
	_, err = c.Labels(context.Background(), 10, 0, false)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Second, parseRetryAfter("30", now))
	assert.Equal(t, time.Minute, parseRetryAfter(now.Add(time.Minute).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("", now))
	assert.Zero(t, parseRetryAfter("soon", now))
}

func TestOffsetPaging(t *testing.T) {
	off, err := Offset(repo.NoCursor)
	require.NoError(t, err)
	assert.Zero(t, off)

	_, err = Offset("-3")
	assert.Error(t, err)

	page := OffsetPage([]int{1, 2, 3}, 30, 3)
	assert.Equal(t, "33", page.NextCursor)
	assert.False(t, page.IsLast)
	assert.True(t, OffsetPage([]int{1}, 0, 3).IsLast)
}

func TestOffsetFetcherDrivesLoader(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}
	var offsets []int
	fetcher := OffsetFetcher(3, func(_ context.Context, count, offset int) ([]int, error) {
		offsets = append(offsets, offset)
		end := min(offset+count, len(all))
		return all[offset:end], nil
	})

	items, err := repo.NewPagedCollectionLoader(fetcher).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all, items)
	assert.Equal(t, []int{0, 3, 6}, offsets)

	failing := OffsetFetcher(3, func(context.Context, int, int) ([]int, error) {
		return nil, errors.New("down")
	})
	_, err = repo.NewPagedCollectionLoader(failing).LoadAll(context.Background())
	assert.Error(t, err)
}
