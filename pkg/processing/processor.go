// Package processing loads field photographs from files, URLs or bytes and
// writes analysis masks and comparison images back out.
package processing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/greenscout/scout-engine/internal/utils"
	"github.com/greenscout/scout-engine/pkg/types"
)

// Config holds settings for image loading and saving
type Config struct {
	HTTPTimeout      time.Duration
	MaxDownloadBytes int64
	UserAgent        string
	// AutoOrient applies the EXIF orientation tag when loading files
	AutoOrient bool
}

// DefaultConfig returns a 30s timeout, a 64 MiB download cap and auto-orientation
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:      30 * time.Second,
		MaxDownloadBytes: 64 << 20,
		UserAgent:        "GreenScout/1.0",
		AutoOrient:       true,
	}
}

// Processor handles image loading and saving
type Processor struct {
	config Config
	client *http.Client
	logger zerolog.Logger
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return NewProcessorWithConfig(DefaultConfig())
}

// NewProcessorWithConfig creates a processor with custom configuration
func NewProcessorWithConfig(config Config) *Processor {
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = DefaultConfig().HTTPTimeout
	}
	if config.MaxDownloadBytes <= 0 {
		config.MaxDownloadBytes = DefaultConfig().MaxDownloadBytes
	}
	return &Processor{
		config: config,
		client: &http.Client{Timeout: config.HTTPTimeout},
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger used by the processor
func (p *Processor) WithLogger(logger zerolog.Logger) *Processor {
	p.logger = logger.With().Str("component", "processing").Logger()
	return p
}

// LoadImageFromURL downloads and decodes an image
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", types.ErrInvalidInput, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported URL scheme: %s (only http and https are supported)", types.ErrInvalidInput, parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download image: %v", types.ErrResourceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: failed to download image: HTTP %s", types.ErrResourceFailure, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		return nil, fmt.Errorf("%w: URL does not point to an image (Content-Type: %s)", types.ErrInvalidInput, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image data: %v", types.ErrResourceFailure, err)
	}
	if int64(len(data)) > p.config.MaxDownloadBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", types.ErrInvalidInput, p.config.MaxDownloadBytes)
	}

	p.logger.Debug().
		Str("url", imageURL).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("image downloaded")

	return p.DecodeImage(data)
}

// LoadImage loads an image file, falling back to an explicit WebP decoder
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path, imaging.AutoOrientation(p.config.AutoOrient)); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(source)
}

// DecodeImage decodes encoded image bytes (jpeg, png, gif, bmp, tiff, webp)
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", types.ErrInvalidInput)
	}

	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("%w: unknown or unsupported image format", types.ErrResourceFailure)
}

// SaveImage saves an image with the format taken from the argument, or from
// the path extension when format is empty
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	if format == "" {
		format = utils.GetFileExtension(path)
	}

	var err error
	switch strings.ToLower(format) {
	case "webp":
		err = saveWebP(img, path, quality, lossless)
	case "png":
		err = imaging.Save(img, path, imaging.PNGCompressionLevel(png.BestCompression))
	case "jpg", "jpeg", "":
		err = imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("%w: unsupported output format %q", types.ErrInvalidInput, format)
	}
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	p.logger.Debug().Str("path", path).Str("format", format).Msg("image saved")
	return nil
}

// SaveMask writes a segmentation mask. JPEG drops the alpha channel, so
// transparent masks should go to png or webp.
func (p *Processor) SaveMask(mask *types.PixelBuffer, path, format string, quality int) error {
	if err := mask.Validate(); err != nil {
		return err
	}
	return p.SaveImage(mask.Image(), path, format, quality, true)
}

// EncodeImage encodes an image into memory
func (p *Processor) EncodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(format) {
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Lossless: true})
	case "png":
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func saveWebP(img image.Image, path string, quality int, lossless bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
	if err := webp.Encode(f, img, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
