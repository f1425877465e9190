// Package urlarg parses library web URLs into UIDs, so that users can
// paste a URL from the browser as a command argument.
package urlarg

import (
	"net/url"
	"strings"

	"github.com/basecamp/prismctl/internal/models"
)

// Parsed represents components extracted from a library URL.
type Parsed struct {
	Host string
	Kind string // e.g., "albums", "folders", "calendar"
	UID  string
}

var albumKinds = map[string]models.AlbumType{
	"albums":   models.AlbumTypeAlbum,
	"folders":  models.AlbumTypeFolder,
	"moments":  models.AlbumTypeMoment,
	"calendar": models.AlbumTypeMonth,
}

var otherKinds = map[string]bool{
	"labels": true,
	"people": true,
	"places": true,
}

// IsURL checks if the input looks like a library URL.
func IsURL(input string) bool {
	return Parse(input) != nil
}

// Parse extracts the kind and UID from a library URL.
// Returns nil if the input is not a library URL.
//
// Supported URL patterns:
//   - https://photos.example.com/library/albums/{uid}/view
//   - https://photos.example.com/library/folders/{uid}
//   - https://photos.example.com/library/calendar/{uid}/view
//   - https://photos.example.com/library/labels/{uid}
func Parse(input string) *Parsed {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && segments[0] == "library" {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return nil
	}
	kind := segments[0]
	if _, ok := albumKinds[kind]; !ok && !otherKinds[kind] {
		return nil
	}
	p := &Parsed{Host: u.Host, Kind: kind}
	if len(segments) > 1 {
		p.UID = segments[1]
	}
	return p
}

// AlbumType returns the album type the URL's kind lists, if any.
func (p *Parsed) AlbumType() (models.AlbumType, bool) {
	t, ok := albumKinds[p.Kind]
	return t, ok
}

// ExtractUID extracts the UID from an argument.
// If the argument is a library URL, extracts its UID.
// Otherwise, returns the argument as-is (assumed to be a UID).
func ExtractUID(arg string) string {
	if parsed := Parse(arg); parsed != nil && parsed.UID != "" {
		return parsed.UID
	}
	return arg
}
