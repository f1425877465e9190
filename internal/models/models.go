// Package models defines the library entities prismctl caches.
package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// AlbumType is the kind of album the library groups media into.
type AlbumType string

const (
	AlbumTypeAlbum  AlbumType = "album"  // user-made
	AlbumTypeFolder AlbumType = "folder" // mirrors the originals directory tree
	AlbumTypeMoment AlbumType = "moment"
	AlbumTypeMonth  AlbumType = "month"
)

// AlbumTypes lists every album type.
var AlbumTypes = []AlbumType{AlbumTypeAlbum, AlbumTypeFolder, AlbumTypeMoment, AlbumTypeMonth}

// ParseAlbumType validates s.
func ParseAlbumType(s string) (AlbumType, error) {
	t := AlbumType(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(AlbumTypes, t) {
		return "", fmt.Errorf("unknown album type %q", s)
	}
	return t, nil
}

// Album is an album, folder or calendar grouping of media.
type Album struct {
	UID      string    `json:"uid"`
	Title    string    `json:"title"`
	Type     AlbumType `json:"type"`
	Favorite bool      `json:"favorite"`
	Thumb    string    `json:"thumb,omitempty"`
}

// SortAlbums orders favorites first, then by title.
func SortAlbums(albums []Album) {
	slices.SortStableFunc(albums, func(a, b Album) int {
		if a.Favorite != b.Favorite {
			if a.Favorite {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Title, b.Title)
	})
}

// Person is a recognized subject or an unnamed face cluster.
type Person struct {
	ID         string `json:"id"` // subject UID or face ID
	Name       string `json:"name,omitempty"`
	Favorite   bool   `json:"favorite"`
	Face       bool   `json:"face"`
	PhotoCount int    `json:"photo_count"`
	Thumb      string `json:"thumb,omitempty"`
}

// HasName reports whether the person was named.
func (p Person) HasName() bool { return p.Name != "" }

// SortPeople orders favorites first, then named people, then by photo
// count descending, then by name.
func SortPeople(people []Person) {
	slices.SortStableFunc(people, func(a, b Person) int {
		switch {
		case a.Favorite != b.Favorite:
			return boolFirst(a.Favorite)
		case a.HasName() != b.HasName():
			return boolFirst(a.HasName())
		case a.PhotoCount != b.PhotoCount:
			return cmp.Compare(b.PhotoCount, a.PhotoCount)
		default:
			return cmp.Compare(a.Name, b.Name)
		}
	})
}

func boolFirst(v bool) int {
	if v {
		return -1
	}
	return 1
}

// Label is a classification label attached to media.
type Label struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Favorite   bool   `json:"favorite"`
	PhotoCount int    `json:"photo_count"`
}

// MediaType is the kind of a gallery entry.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaLive     MediaType = "live"
	MediaAnimated MediaType = "animated"
	MediaRaw      MediaType = "raw"
	MediaVector   MediaType = "vector"
	MediaOther    MediaType = "other"
)

// GalleryMedia is one merged gallery entry: a photo with all its files.
type GalleryMedia struct {
	UID          string      `json:"uid"`
	Hash         string      `json:"hash"`
	Title        string      `json:"title"`
	Type         MediaType   `json:"type"`
	TakenAtLocal time.Time   `json:"taken_at_local"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	Favorite     bool        `json:"favorite"`
	Private      bool        `json:"private,omitempty"`
	Files        []MediaFile `json:"files"`
}

// MediaFile is one stored file of a gallery entry.
type MediaFile struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Mime    string `json:"mime,omitempty"`
	Size    int64  `json:"size"`
	Primary bool   `json:"primary"`
}

// Original returns the primary file, falling back to the first.
func (m GalleryMedia) Original() (MediaFile, bool) {
	if len(m.Files) == 0 {
		return MediaFile{}, false
	}
	for _, f := range m.Files {
		if f.Primary {
			return f, true
		}
	}
	return m.Files[0], true
}

// MapPoint is one geotagged photo of the world map.
type MapPoint struct {
	UID     string    `json:"uid"`
	Hash    string    `json:"hash"`
	Title   string    `json:"title"`
	TakenAt time.Time `json:"taken_at"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
}

// MapDocument is the library's GeoJSON feature collection.
type MapDocument struct {
	Points []MapPoint `json:"points"`
}

// Bounds returns the south-west and north-east corners around every point.
func (d MapDocument) Bounds() (sw, ne [2]float64, ok bool) {
	if len(d.Points) == 0 {
		return sw, ne, false
	}
	sw = [2]float64{d.Points[0].Lat, d.Points[0].Lng}
	ne = sw
	for _, p := range d.Points[1:] {
		sw[0], sw[1] = min(sw[0], p.Lat), min(sw[1], p.Lng)
		ne[0], ne[1] = max(ne[0], p.Lat), max(ne[1], p.Lng)
	}
	return sw, ne, true
}
