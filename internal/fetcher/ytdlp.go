// Package fetcher invokes yt-dlp to retrieve media artifacts. The tool may
// internally download separate tracks and merge them; callers only see the
// aggregate outcome.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/cesargomez89/fetchpay/internal/domain"
	"github.com/cesargomez89/fetchpay/internal/logger"
)

// MediaInfo describes one probed media item and its downloadable variants.
type MediaInfo struct {
	Title    string
	Variants []domain.Variant
}

type YTDLP struct {
	log *logger.Logger
	// binary used for probing; overridable in tests
	probeBin string
}

func New(log *logger.Logger) *YTDLP {
	if log == nil {
		log = logger.Default()
	}
	return &YTDLP{
		log:      log.WithComponent("fetcher"),
		probeBin: "yt-dlp",
	}
}

// Fetch downloads one variant of mediaURL into destDir and returns the local
// artifact path.
func (f *YTDLP) Fetch(ctx context.Context, mediaURL, formatID, destDir string) (string, error) {
	dl := ytdlp.New().
		NoPlaylist().
		RestrictFilenames().
		ForceOverwrites().
		Output(filepath.Join(destDir, "%(title)s.%(ext)s"))

	if formatID != "" {
		dl = dl.Format(formatID)
	}

	f.log.Info("Fetching media", "url", mediaURL, "format_id", formatID)

	result, err := dl.Run(ctx, mediaURL)
	if err != nil {
		return "", classifyError(err)
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return "", fmt.Errorf("%w: read tool output: %v", domain.ErrFetchFailed, err)
	}
	if len(info) == 0 || info[0].Filename == nil || *info[0].Filename == "" {
		return "", fmt.Errorf("%w: tool reported no output file", domain.ErrFetchFailed)
	}

	return *info[0].Filename, nil
}

// ytdlpFormat mirrors the subset of yt-dlp's JSON format listing we price on.
type ytdlpFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         int     `json:"height"`
	ABR            float64 `json:"abr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

type ytdlpInfo struct {
	Title   string        `json:"title"`
	Formats []ytdlpFormat `json:"formats"`
}

// Probe lists the downloadable variants of a media item without fetching it.
func (f *YTDLP) Probe(ctx context.Context, mediaURL string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, f.probeBin, "--dump-single-json", "--no-playlist", "--no-warnings", mediaURL)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return nil, classifyError(fmt.Errorf("%v: %s", err, out.String()))
	}

	var data ytdlpInfo
	if err := json.Unmarshal(out.Bytes(), &data); err != nil {
		return nil, fmt.Errorf("%w: parse tool output: %v", domain.ErrFetchFailed, err)
	}

	return &MediaInfo{
		Title:    data.Title,
		Variants: buildVariants(data.Formats),
	}, nil
}

// buildVariants converts the raw format listing into priced variants. Formats
// with neither audio nor video are ignored.
func buildVariants(formats []ytdlpFormat) []domain.Variant {
	variants := make([]domain.Variant, 0, len(formats))
	for _, ff := range formats {
		size := ff.Filesize
		if size == 0 {
			size = ff.FilesizeApprox
		}
		sizeMB := size / (1024 * 1024)

		switch {
		case ff.VCodec != "" && ff.VCodec != "none" && ff.Height > 0:
			variants = append(variants, domain.Variant{
				FormatID: ff.FormatID,
				Kind:     domain.VariantVideo,
				Quality:  resolutionTier(ff.Height),
				SizeMB:   sizeMB,
			})
		case ff.ACodec != "" && ff.ACodec != "none":
			variants = append(variants, domain.Variant{
				FormatID: ff.FormatID,
				Kind:     domain.VariantAudio,
				Quality:  fmt.Sprintf("%dkbps", int(ff.ABR)),
				SizeMB:   sizeMB,
			})
		}
	}
	return variants
}

// resolutionTier maps a pixel height onto the quality descriptors the
// pricing tables understand.
func resolutionTier(height int) string {
	switch {
	case height >= 4320:
		return "8K"
	case height >= 2160:
		return "4K"
	case height >= 1440:
		return "1440p"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 480:
		return "480p"
	case height >= 360:
		return "360p"
	case height >= 240:
		return "240p"
	default:
		return "144p"
	}
}

// classifyError folds tool failures into the domain taxonomy.
func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "requested format is not available"),
		strings.Contains(msg, "format is not available"),
		strings.Contains(msg, "no video formats found"):
		return fmt.Errorf("%w: %v", domain.ErrVariantNotFound, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
}
