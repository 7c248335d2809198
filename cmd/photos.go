package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/jon4hz/pictura/internal/gallery"
	"github.com/jon4hz/pictura/internal/imagehost"
	"github.com/mergestat/timediff"
	"github.com/spf13/cobra"
)

var photosCmdFlags struct {
	Pages int
}

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Browse and manage photos",
}

func photoPager(fetch func(ctx context.Context, scope uint64, page int) ([]imagehost.Photo, error)) *gallery.Pager[uint64, imagehost.Photo, uint64] {
	return gallery.NewPager(fetch, func(p imagehost.Photo) uint64 { return p.ID })
}

var photosMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List your own photos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		pager := photoPager(func(ctx context.Context, _ uint64, page int) ([]imagehost.Photo, error) {
			return a.api.MyPhotos(ctx, page)
		})
		photos, more, err := collect(cmd.Context(), pager, a.session.User().ID, photosCmdFlags.Pages)
		printPhotos(cmd.OutOrStdout(), photos, more, a.api.AssetURL)
		return a.check(err)
	},
}

var photosUserCmd = &cobra.Command{
	Use:     "user <id>",
	Short:   "List the photos of a user",
	Example: `pictura photos user 42 --pages 3`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		if user, err := a.api.GetUser(cmd.Context(), id); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Photos by %s\n\n", user.DisplayName()) //nolint:errcheck
		} else {
			log.Debug("Failed to load user", "id", id, "error", err)
		}

		pager := photoPager(a.api.UserPhotos)
		photos, more, err := collect(cmd.Context(), pager, id, photosCmdFlags.Pages)
		printPhotos(cmd.OutOrStdout(), photos, more, a.api.AssetURL)
		return a.check(err)
	},
}

var photosExploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Show the newest photos grouped by user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		pager := gallery.NewPager(func(ctx context.Context, _ uint64, page int) ([]imagehost.UserPhotos, error) {
			return a.api.Explore(ctx, page)
		}, func(up imagehost.UserPhotos) uint64 { return up.User.ID })

		feed, more, err := collect(cmd.Context(), pager, 0, photosCmdFlags.Pages)
		out := cmd.OutOrStdout()
		for _, up := range feed {
			preview := up.Preview(a.cfg.Gallery.PreviewLimit)
			if len(preview) == 0 {
				continue
			}
			fmt.Fprintf(out, "%s (user %d)\n", up.User.DisplayName(), up.User.ID) //nolint:errcheck
			for _, p := range preview {
				fmt.Fprintf(out, "  %d\t%s\t%s\n", p.ID, title(p), a.api.AssetURL(p.URL)) //nolint:errcheck
			}
		}
		if more {
			fmt.Fprintln(out, "\nMore available, use --pages to load more.") //nolint:errcheck
		}
		return a.check(err)
	},
}

var photosUploadCmdFlags struct {
	Title       string
	Description string
}

var photosUploadCmd = &cobra.Command{
	Use:     "upload <file>",
	Short:   "Upload a photo",
	Example: `pictura photos upload holiday.jpg --title "Beach"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		upload, closeFn, err := openUpload(args[0])
		if err != nil {
			return err
		}
		defer closeFn() //nolint:errcheck
		upload.Title = photosUploadCmdFlags.Title
		upload.Description = photosUploadCmdFlags.Description

		if err := a.api.UploadPhoto(cmd.Context(), upload); err != nil {
			return a.check(err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Photo uploaded successfully")
		return err
	},
}

var photosDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		if err := a.api.DeletePhoto(cmd.Context(), id); err != nil {
			return a.check(err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Photo deleted successfully")
		return err
	},
}

func title(p imagehost.Photo) string {
	if p.Title != "" {
		return p.Title
	}
	return "(untitled)"
}

// printPhotos lists photos with their absolute URL built by asset.
func printPhotos(out io.Writer, photos []imagehost.Photo, more bool, asset func(string) string) {
	if len(photos) == 0 {
		fmt.Fprintln(out, "No photos available.") //nolint:errcheck
		return
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tTITLE\tUPLOADED\tURL") //nolint:errcheck
	for _, p := range photos {
		uploaded := "unknown"
		if !p.CreatedAt.IsZero() {
			uploaded = timediff.TimeDiff(p.CreatedAt)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, title(p), uploaded, asset(p.URL)) //nolint:errcheck
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%s photos", humanize.Comma(int64(len(photos)))) //nolint:errcheck
	if more {
		fmt.Fprint(out, ", more available (use --pages)") //nolint:errcheck
	}
	fmt.Fprintln(out) //nolint:errcheck
}

func init() {
	photosCmd.PersistentFlags().IntVar(&photosCmdFlags.Pages, "pages", 1, "Number of pages to load")

	photosUploadCmd.Flags().StringVarP(&photosUploadCmdFlags.Title, "title", "t", "", "Photo title")
	photosUploadCmd.Flags().StringVarP(&photosUploadCmdFlags.Description, "description", "d", "", "Photo description")

	photosCmd.AddCommand(photosMineCmd, photosUserCmd, photosExploreCmd, photosUploadCmd, photosDeleteCmd)
	rootCmd.AddCommand(photosCmd)
}
