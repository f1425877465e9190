package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/library"
	"github.com/basecamp/prismctl/internal/models"
	"github.com/basecamp/prismctl/internal/output"
	"github.com/basecamp/prismctl/internal/urlarg"
)

// NewAlbumsCmd creates the albums command.
func NewAlbumsCmd() *cobra.Command {
	var (
		types []string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "albums",
		Short: "List albums",
		Long: `List albums, folders, moments or months.

Every page of each requested type is loaded. Favorites come first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseAlbumTypes(types)
			if err != nil {
				return err
			}
			app, lib, err := session(cmd)
			if err != nil {
				return err
			}

			r := lib.Albums(parsed...)
			if err := refresh(cmd.Context(), r, force); err != nil {
				return err
			}
			albums := r.ItemsList()
			return app.OK(albums,
				output.WithSummary(plural(len(albums), "album")),
				withStatus(r),
			)
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Album types: album, folder, moment, month (default album,folder)")
	addRefreshFlag(cmd, &force)

	cmd.AddCommand(newAlbumShowCmd(), newAlbumCreateCmd())
	return cmd
}

func newAlbumShowCmd() *cobra.Command {
	var types []string

	cmd := &cobra.Command{
		Use:   "show <uid|url>",
		Short: "Show one album",
		Long: `Show one album by UID or by its URL in the web library.

A pasted URL also selects the album type, e.g. /library/folders/... searches folders.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseAlbumTypes(types)
			if err != nil {
				return err
			}
			uid := urlarg.ExtractUID(args[0])
			if p := urlarg.Parse(args[0]); p != nil && len(parsed) == 0 {
				if t, ok := p.AlbumType(); ok {
					parsed = []models.AlbumType{t}
				}
			}
			app, lib, err := session(cmd)
			if err != nil {
				return err
			}

			r := lib.Albums(parsed...)
			if err := refresh(cmd.Context(), r, false); err != nil {
				return err
			}
			album, ok := library.FindAlbum(r, uid)
			if !ok {
				return output.ErrNotFound("album", uid)
			}
			return app.OK(album, output.WithSummary(album.Title))
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Album types to search")
	return cmd
}

func newAlbumCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create an album",
		Long: `Create a manual album.

Album listings already loaded in this session include it without a refetch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[0])
			if title == "" {
				return output.ErrUsage("album title cannot be empty")
			}
			app, lib, err := session(cmd)
			if err != nil {
				return err
			}

			album, err := lib.CreateAlbum(cmd.Context(), title)
			if err != nil {
				return err
			}
			return app.OK(album, output.WithSummary("Created album "+album.Title))
		},
	}
}

func parseAlbumTypes(raw []string) ([]models.AlbumType, error) {
	types := make([]models.AlbumType, 0, len(raw))
	for _, s := range raw {
		t, err := models.ParseAlbumType(s)
		if err != nil {
			return nil, output.ErrUsageHint(err.Error(), "Use album, folder, moment or month")
		}
		types = append(types, t)
	}
	return types, nil
}
