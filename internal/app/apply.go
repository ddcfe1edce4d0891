package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/readeck/instafilter/configs"
	"github.com/readeck/instafilter/pkg/filters"
	"github.com/readeck/instafilter/pkg/img"
	"github.com/readeck/instafilter/pkg/pipeline"
)

var applyFlags struct {
	filter    string
	intensity float64
	format    string
	quality   int
}

var thumbnailsFlags struct {
	intensity float64
	format    string
	size      int
}

func init() {
	rootCmd.AddCommand(applyCmd, thumbnailsCmd)

	applyCmd.Flags().StringVarP(&applyFlags.filter, "filter", "f", "", "filter key (default from configuration)")
	applyCmd.Flags().Float64VarP(&applyFlags.intensity, "intensity", "i", 0, "intensity, from 0 to 1 (default from configuration)")
	applyCmd.Flags().StringVar(&applyFlags.format, "format", "", "output format (default from the file name)")
	applyCmd.Flags().IntVarP(&applyFlags.quality, "quality", "q", 0, "JPEG quality (default from configuration)")

	thumbnailsCmd.Flags().Float64VarP(&thumbnailsFlags.intensity, "intensity", "i", 0, "intensity, from 0 to 1 (default from configuration)")
	thumbnailsCmd.Flags().StringVar(&thumbnailsFlags.format, "format", "", "output format (default from configuration)")
	thumbnailsCmd.Flags().IntVarP(&thumbnailsFlags.size, "size", "s", 0, "thumbnail size (default from configuration)")
}

var applyCmd = &cobra.Command{
	Use:   "apply SOURCE DEST",
	Short: "Apply a filter to an image file or URL",
	Args:  cobra.ExactArgs(2),
	RunE:  runApply,
}

var thumbnailsCmd = &cobra.Command{
	Use:   "thumbnails SOURCE DIRECTORY",
	Short: "Render a preview of every filter",
	Args:  cobra.ExactArgs(2),
	RunE:  runThumbnails,
}

func runApply(c *cobra.Command, args []string) error {
	src, dest := args[0], args[1]

	key := applyFlags.filter
	if key == "" {
		key = configs.Config.Filters.Default
	}
	intensity := configs.Config.Filters.Intensity
	if c.Flags().Changed("intensity") {
		intensity = applyFlags.intensity
	}
	quality := applyFlags.quality
	if quality <= 0 {
		quality = configs.Config.Images.Quality
	}

	m, err := img.Load(src, nil)
	if err != nil {
		return fmt.Errorf("cannot load %s: %w", src, err)
	}

	format := applyFlags.format
	if format == "" && img.FormatFromName(dest) == "" {
		format = m.Format()
	}

	start := time.Now()
	res, err := pipeline.Apply(m.Image(), key, intensity)
	if err != nil {
		return err
	}

	format, err = img.Save(dest, res.Bitmap, format, quality)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"filter":    res.Filter.Key,
		"intensity": res.Intensity,
		"elapsed":   time.Since(start),
	}).Debug("image filtered")

	fmt.Fprintf(c.OutOrStdout(), "%s: %s %s=%g (%s)\n",
		dest, res.Filter.Key, res.Filter.Parameter, nativeValue(res), format)
	return nil
}

func runThumbnails(c *cobra.Command, args []string) error {
	src, dir := args[0], args[1]

	intensity := configs.Config.Filters.Intensity
	if c.Flags().Changed("intensity") {
		intensity = thumbnailsFlags.intensity
	}
	size := thumbnailsFlags.size
	if size <= 0 {
		size = configs.Config.Images.ThumbnailSize
	}
	format := thumbnailsFlags.format
	if format == "" {
		format = configs.Config.Images.Format
	}

	m, err := img.Load(src, nil)
	if err != nil {
		return fmt.Errorf("cannot load %s: %w", src, err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	// Every filter renders the same reduced source.
	preview := img.Thumbnail(m.Image(), size)
	format = img.NormalizeFormat(format)
	descriptors := filters.List()
	files := make([]string, len(descriptors))

	g := new(errgroup.Group)
	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			res, err := pipeline.Apply(preview, d.Key, intensity)
			if err != nil {
				return err
			}
			name := filepath.Join(dir, d.Key+"."+format)
			if _, err := img.Save(name, res.Bitmap, format, configs.Config.Images.Quality); err != nil {
				return err
			}
			files[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range files {
		fmt.Fprintln(c.OutOrStdout(), f)
	}
	return nil
}

func nativeValue(res *pipeline.Result) float64 {
	v, _ := res.Params.Get(res.Filter.Parameter)
	return v
}
