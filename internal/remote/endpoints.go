package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/basecamp/prismctl/internal/models"
)

// Sort orders understood by the list endpoints.
const (
	OrderFavorites = "favorites"
	OrderName      = "name"
	OrderNewest    = "newest"
	OrderOldest    = "oldest"
)

func paging(count, offset int) url.Values {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	q.Set("offset", strconv.Itoa(offset))
	return q
}

// Albums lists albums of one type.
func (c *Client) Albums(ctx context.Context, typ models.AlbumType, count, offset int) ([]models.Album, error) {
	q := paging(count, offset)
	q.Set("type", string(typ))
	q.Set("order", OrderFavorites)
	res, err := c.get(ctx, "albums", q)
	if err != nil {
		return nil, err
	}
	return decodeAll(res, decodeAlbum), nil
}

// CreateAlbum creates a manual album named title.
func (c *Client) CreateAlbum(ctx context.Context, title string) (models.Album, error) {
	res, err := c.post(ctx, "albums", map[string]any{"Title": title})
	if err != nil {
		return models.Album{}, err
	}
	album := decodeAlbum(res)
	if album.UID == "" {
		return models.Album{}, fmt.Errorf("POST albums: response has no UID")
	}
	return album, nil
}

func decodeAlbum(r gjson.Result) models.Album {
	return models.Album{
		UID:      r.Get("UID").String(),
		Title:    r.Get("Title").String(),
		Type:     models.AlbumType(r.Get("Type").String()),
		Favorite: r.Get("Favorite").Bool(),
		Thumb:    r.Get("Thumb").String(),
	}
}

// Subjects lists recognized people.
func (c *Client) Subjects(ctx context.Context, count, offset int) ([]models.Person, error) {
	q := paging(count, offset)
	q.Set("type", "person")
	res, err := c.get(ctx, "subjects", q)
	if err != nil {
		return nil, err
	}
	return decodeAll(res, func(r gjson.Result) models.Person {
		return models.Person{
			ID:         r.Get("UID").String(),
			Name:       r.Get("Name").String(),
			Favorite:   r.Get("Favorite").Bool(),
			PhotoCount: int(r.Get("PhotoCount").Int()),
			Thumb:      r.Get("Thumb").String(),
		}
	}), nil
}

// Faces lists face clusters nobody has named yet.
func (c *Client) Faces(ctx context.Context, count, offset int) ([]models.Person, error) {
	q := paging(count, offset)
	q.Set("markers", "true")
	q.Set("unknown", "true")
	res, err := c.get(ctx, "faces", q)
	if err != nil {
		return nil, err
	}
	return decodeAll(res, func(r gjson.Result) models.Person {
		return models.Person{
			ID:         r.Get("ID").String(),
			Name:       r.Get("Name").String(),
			Face:       true,
			PhotoCount: int(r.Get("Samples").Int()),
			Thumb:      r.Get("Thumb").String(),
		}
	}), nil
}

// Labels lists labels. Without all, only labels the library shows by
// default are returned.
func (c *Client) Labels(ctx context.Context, count, offset int, all bool) ([]models.Label, error) {
	q := paging(count, offset)
	if all {
		q.Set("all", "true")
	}
	res, err := c.get(ctx, "labels", q)
	if err != nil {
		return nil, err
	}
	return decodeAll(res, func(r gjson.Result) models.Label {
		return models.Label{
			UID:        r.Get("UID").String(),
			Name:       r.Get("Name").String(),
			Slug:       r.Get("Slug").String(),
			Favorite:   r.Get("Favorite").Bool(),
			PhotoCount: int(r.Get("PhotoCount").Int()),
		}
	}), nil
}

// PhotosQuery selects merged gallery entries.
type PhotosQuery struct {
	Count  int
	Offset int
	Query  string
	Order  string // OrderNewest or OrderOldest
}

// Photos lists merged gallery entries. The server counts files, not
// entries, against Count: an entry with a sidecar uses two.
func (c *Client) Photos(ctx context.Context, pq PhotosQuery) ([]models.GalleryMedia, error) {
	q := paging(pq.Count, pq.Offset)
	q.Set("merged", "true")
	if pq.Query != "" {
		q.Set("q", pq.Query)
	}
	if pq.Order != "" {
		q.Set("order", pq.Order)
	}
	res, err := c.get(ctx, "photos", q)
	if err != nil {
		return nil, err
	}
	return decodeAll(res, decodeMedia), nil
}

func decodeMedia(r gjson.Result) models.GalleryMedia {
	m := models.GalleryMedia{
		UID:          r.Get("UID").String(),
		Hash:         r.Get("Hash").String(),
		Title:        r.Get("Title").String(),
		Type:         models.MediaType(r.Get("Type").String()),
		TakenAtLocal: parseTime(r.Get("TakenAtLocal").String()),
		Width:        int(r.Get("Width").Int()),
		Height:       int(r.Get("Height").Int()),
		Favorite:     r.Get("Favorite").Bool(),
		Private:      r.Get("Private").Bool(),
	}
	m.Files = decodeAll(r.Get("Files"), func(f gjson.Result) models.MediaFile {
		return models.MediaFile{
			UID:     f.Get("UID").String(),
			Name:    f.Get("Name").String(),
			Mime:    f.Get("Mime").String(),
			Size:    f.Get("Size").Int(),
			Primary: f.Get("Primary").Bool(),
		}
	})
	return m
}

// Geo returns every geotagged photo.
func (c *Client) Geo(ctx context.Context) (models.MapDocument, error) {
	res, err := c.get(ctx, "geo", nil)
	if err != nil {
		return models.MapDocument{}, err
	}
	doc := models.MapDocument{Points: []models.MapPoint{}}
	res.Get("features").ForEach(func(_, f gjson.Result) bool {
		coords := f.Get("geometry.coordinates").Array()
		if f.Get("geometry.type").String() != "Point" || len(coords) < 2 {
			return true
		}
		props := f.Get("properties")
		doc.Points = append(doc.Points, models.MapPoint{
			UID:     props.Get("UID").String(),
			Hash:    props.Get("Hash").String(),
			Title:   props.Get("Title").String(),
			TakenAt: parseTime(props.Get("TakenAt").String()),
			Lng:     coords[0].Float(),
			Lat:     coords[1].Float(),
		})
		return true
	})
	return doc, nil
}

func decodeAll[T any](res gjson.Result, decode func(gjson.Result) T) []T {
	arr := res.Array()
	out := make([]T, 0, len(arr))
	for _, r := range arr {
		out = append(out, decode(r))
	}
	return out
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
