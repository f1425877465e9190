package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlbumType(t *testing.T) {
	typ, err := ParseAlbumType(" Folder ")
	require.NoError(t, err)
	assert.Equal(t, AlbumTypeFolder, typ)

	_, err = ParseAlbumType("playlist")
	assert.Error(t, err)
}

func TestSortAlbums(t *testing.T) {
	albums := []Album{
		{UID: "1", Title: "Zoo"},
		{UID: "2", Title: "Beach", Favorite: true},
		{UID: "3", Title: "Alps"},
		{UID: "4", Title: "Attic", Favorite: true},
	}
	SortAlbums(albums)

	var uids []string
	for _, a := range albums {
		uids = append(uids, a.UID)
	}
	assert.Equal(t, []string{"4", "2", "3", "1"}, uids)
}

func TestSortPeople(t *testing.T) {
	people := []Person{
		{ID: "face", Face: true, PhotoCount: 50},
		{ID: "bob", Name: "Bob", PhotoCount: 3},
		{ID: "amy", Name: "Amy", PhotoCount: 3},
		{ID: "fav", Name: "Zed", Favorite: true},
		{ID: "many", Name: "Max", PhotoCount: 9},
	}
	SortPeople(people)

	var ids []string
	for _, p := range people {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"fav", "many", "amy", "bob", "face"}, ids)
}

func TestGalleryMediaOriginal(t *testing.T) {
	_, ok := GalleryMedia{}.Original()
	assert.False(t, ok)

	m := GalleryMedia{Files: []MediaFile{{UID: "sidecar"}, {UID: "main", Primary: true}}}
	f, ok := m.Original()
	require.True(t, ok)
	assert.Equal(t, "main", f.UID)
}

func TestMapDocumentBounds(t *testing.T) {
	_, _, ok := MapDocument{}.Bounds()
	assert.False(t, ok)

	doc := MapDocument{Points: []MapPoint{
		{Lat: 42.5, Lng: -2.5},
		{Lat: 48.1, Lng: 11.6},
		{Lat: 40.4, Lng: -3.7},
	}}
	sw, ne, ok := doc.Bounds()
	require.True(t, ok)
	assert.Equal(t, [2]float64{40.4, -3.7}, sw)
	assert.Equal(t, [2]float64{48.1, 11.6}, ne)
}
