// Command sheet builds a contact sheet for a single video without the
// broker, database, or object store: local file or URL in, JPEG out.
package main

import (
	"context"
	"fmt"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/vidsheet/vidsheet-processing-service/internal/infra/ffmpeg"
	"github.com/vidsheet/vidsheet-processing-service/internal/infra/ytdlp"
	"github.com/vidsheet/vidsheet-processing-service/internal/sheet"
)

func main() {
	app := &cli.Command{
		Name:  "sheet",
		Usage: "Build a contact sheet from a local video file or a URL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to a local video file, or a URL to download",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "rate",
				Aliases: []string{"r"},
				Usage:   "Sampling rate in frames per second of source time",
				Value:   sheet.DefaultSampleRate,
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "Thumbnail width in pixels",
				Value: sheet.DefaultThumbnailWidth,
			},
			&cli.IntFlag{
				Name:  "columns",
				Usage: "Maximum grid columns (negative for a single row)",
				Value: sheet.DefaultMaxColumns,
			},
			&cli.IntFlag{
				Name:  "quality",
				Usage: "JPEG quality (1-100)",
				Value: 95,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output path (default contact_sheet_{video}_{rate}fps.jpg)",
			},
			&cli.StringFlag{
				Name:  "ytdlp",
				Usage: "yt-dlp binary to use for URL inputs",
				Value: "yt-dlp",
			},
		},
		Action: run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	rate := int(cmd.Int("rate"))
	if rate < sheet.MinSampleRate || rate > sheet.MaxSampleRate {
		return cli.Exit(fmt.Sprintf("rate must be between %d and %d", sheet.MinSampleRate, sheet.MaxSampleRate), 2)
	}
	quality := int(cmd.Int("quality"))
	if quality < 1 || quality > 100 {
		return cli.Exit("quality must be between 1 and 100", 2)
	}

	input := cmd.String("input")
	videoPath := input
	videoID := stem(input)

	if isURL(input) {
		tmpDir, err := os.MkdirTemp("", "sheet-*")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		log.Printf("Downloading %s", input)
		fetcher := ytdlp.NewFetcher(cmd.String("ytdlp"), zap.NewNop())
		acquired, err := fetcher.Fetch(ctx, input, tmpDir)
		if err != nil {
			return fmt.Errorf("download video: %w", err)
		}
		videoPath = acquired.Path
		videoID = acquired.VideoID
	}

	pipeline := sheet.NewPipeline(
		ffmpeg.NewDecoder(zap.NewNop()),
		stderrProgress{},
		sheet.Options{
			ThumbnailWidth: int(cmd.Int("width")),
			MaxColumns:     int(cmd.Int("columns")),
		},
	)

	img, stats, err := pipeline.Run(ctx, videoPath, rate)
	if err != nil {
		return fmt.Errorf("build contact sheet: %w", err)
	}
	fmt.Fprintln(os.Stderr)
	log.Printf("Sampled %d of %d frames into a %dx%d grid",
		stats.FramesSampled, stats.FramesDecoded, stats.Layout.Columns, stats.Layout.Rows)

	outPath := cmd.String("out")
	if outPath == "" {
		outPath = fmt.Sprintf("contact_sheet_%s_%dfps.jpg", videoID, rate)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	log.Printf("Wrote %s", outPath)
	return nil
}

// stderrProgress draws a single updating line so pipes stay clean.
type stderrProgress struct{}

func (stderrProgress) Report(fraction float64, label string) {
	fmt.Fprintf(os.Stderr, "\r%s: %3.0f%%", label, fraction*100)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
