package appctx

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basecamp/prismctl/internal/config"
	"github.com/basecamp/prismctl/internal/library"
	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/remote"
)

// emptyAPI serves an empty library.
type emptyAPI struct{}

func (emptyAPI) Albums(context.Context, models.AlbumType, int, int) ([]models.Album, error) {
	return nil, nil
}
func (emptyAPI) CreateAlbum(_ context.Context, title string) (models.Album, error) {
	return models.Album{UID: "a1", Title: title}, nil
}
func (emptyAPI) Subjects(context.Context, int, int) ([]models.Person, error) { return nil, nil }
func (emptyAPI) Faces(context.Context, int, int) ([]models.Person, error)    { return nil, nil }
func (emptyAPI) Labels(context.Context, int, int, bool) ([]models.Label, error) {
	return nil, nil
}
func (emptyAPI) Photos(context.Context, remote.PhotosQuery) ([]models.GalleryMedia, error) {
	return nil, nil
}
func (emptyAPI) Geo(context.Context) (models.MapDocument, error) { return models.MapDocument{}, nil }

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.BaseURL = "https://photos.example.com"
	cfg.CacheDir = t.TempDir()
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, flags GlobalFlags) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app, err := NewApp(cfg, flags, &out, io.Discard)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, &out
}

func TestNewAppFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Format = "count"
	app, out := newTestApp(t, cfg, GlobalFlags{})
	require.NoError(t, app.OK([]int{1, 2, 3}))
	assert.Equal(t, "3\n", out.String(), "config format applies")

	app, out = newTestApp(t, cfg, GlobalFlags{JSON: true})
	require.NoError(t, app.OK([]int{1, 2, 3}))
	assert.True(t, strings.HasPrefix(out.String(), "{"), "flags win over config")
}

func TestNewAppInvalidJQ(t *testing.T) {
	_, err := NewApp(testConfig(t), GlobalFlags{JQ: "]["}, io.Discard, io.Discard)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}

func TestNewAppLogsConfigWarnings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Warnings = []string{"ignoring base_url from .prismctl.yaml"}
	var logs bytes.Buffer
	_, err := NewApp(cfg, GlobalFlags{}, io.Discard, &logs)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "ignoring base_url")
}

func TestLibraryDialsOnce(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t), GlobalFlags{})
	dials := 0
	app.Dial = func(*config.Config) (library.API, error) {
		dials++
		return emptyAPI{}, nil
	}

	first, err := app.Library()
	require.NoError(t, err)
	second, err := app.Library()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, dials)
}

func TestDialRequiresServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = ""
	app, _ := newTestApp(t, cfg, GlobalFlags{})
	_, err := app.Library()
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}

func TestDialBuildsGatedClient(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t), GlobalFlags{})
	api, err := app.Dial(app.Config)
	require.NoError(t, err)
	client, ok := api.(*remote.Client)
	require.True(t, ok)
	assert.Equal(t, "photos.example.com", client.Host())
}

func TestReload(t *testing.T) {
	cfg := testConfig(t)
	app, _ := newTestApp(t, cfg, GlobalFlags{})
	var dialed []string
	app.Dial = func(c *config.Config) (library.API, error) {
		dialed = append(dialed, c.BaseURL)
		return emptyAPI{}, nil
	}

	// Nothing to reconnect before first use.
	next := *cfg
	reconnected, err := app.Reload(&next)
	require.NoError(t, err)
	assert.False(t, reconnected)

	lib, err := app.Library()
	require.NoError(t, err)
	albums := lib.Albums()
	require.NoError(t, albums.Update().Wait(context.Background()))
	require.True(t, albums.IsFresh())

	same := next
	same.FreshTTL = 0
	reconnected, err = app.Reload(&same)
	require.NoError(t, err)
	assert.False(t, reconnected)
	assert.False(t, albums.IsFresh(), "an unrelated change invalidates")

	moved := same
	moved.BaseURL = "https://other.example.com"
	reconnected, err = app.Reload(&moved)
	require.NoError(t, err)
	assert.True(t, reconnected)
	assert.Equal(t, []string{"https://photos.example.com", "https://other.example.com"}, dialed)
	assert.NotSame(t, albums, lib.Albums(), "reconnecting drops cached repositories")
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, NewLogger(io.Discard, 0).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLogger(io.Discard, 1).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, NewLogger(io.Discard, 2).GetLevel())
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	app, _ := newTestApp(t, testConfig(t), GlobalFlags{})
	assert.Same(t, app, FromContext(WithApp(context.Background(), app)))
}

func TestOverrides(t *testing.T) {
	f := GlobalFlags{BaseURL: "h", Verbose: 2}
	assert.Equal(t, -1, f.Overrides(false).Verbose)
	assert.Equal(t, 2, f.Overrides(true).Verbose)
	assert.Equal(t, "h", f.Overrides(true).BaseURL)
}
