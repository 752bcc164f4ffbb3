package vegetation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/greenscout/scout-engine/pkg/types"
)

// Segmenter splits an image into vegetation and non-vegetation pixels
type Segmenter struct {
	classifier *Classifier
	config     SegmenterConfig
	logger     zerolog.Logger
}

// SegmenterConfig controls how the pixel loop is sharded across goroutines
type SegmenterConfig struct {
	Workers      int // <= 0 means GOMAXPROCS
	RowsPerShard int
}

// Segmentation holds pixel counts and the two derived masks.
//
// Opaque paints vegetation pure green and everything else black.
// Transparent paints vegetation opaque green and keeps the original colour of
// every other pixel with alpha forced to zero, so it can be layered over the
// source photo.
type Segmentation struct {
	GreenCount  int
	TotalCount  int
	Opaque      *types.PixelBuffer
	Transparent *types.PixelBuffer
}

// NewSegmenter creates a Segmenter with the default classifier
func NewSegmenter() *Segmenter {
	return NewSegmenterWithConfig(NewClassifier(), SegmenterConfig{})
}

// NewSegmenterWithConfig creates a Segmenter with a custom classifier and sharding
func NewSegmenterWithConfig(classifier *Classifier, config SegmenterConfig) *Segmenter {
	if classifier == nil {
		classifier = NewClassifier()
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.RowsPerShard <= 0 {
		config.RowsPerShard = 64
	}
	return &Segmenter{
		classifier: classifier,
		config:     config,
		logger:     zerolog.Nop(),
	}
}

// WithLogger sets the logger used for debug output
func (s *Segmenter) WithLogger(logger zerolog.Logger) *Segmenter {
	s.logger = logger
	return s
}

// Classifier returns the classifier used by the segmenter
func (s *Segmenter) Classifier() *Classifier {
	return s.classifier
}

type rowRange struct {
	start, end int
}

// Segment classifies every pixel of buf exactly once. The input buffer is only
// read; both masks are freshly allocated. An empty buffer yields zero counts.
func (s *Segmenter) Segment(ctx context.Context, buf *types.PixelBuffer) (Segmentation, error) {
	if err := buf.Validate(); err != nil {
		return Segmentation{}, err
	}

	result := Segmentation{
		TotalCount:  buf.PixelCount(),
		Opaque:      types.NewPixelBuffer(buf.Width, buf.Height),
		Transparent: types.NewPixelBuffer(buf.Width, buf.Height),
	}
	if result.TotalCount == 0 {
		return result, nil
	}

	shards := shardRows(buf.Height, s.config.RowsPerShard)
	counts := make([]int, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			n, err := s.segmentRows(gctx, buf, result.Opaque, result.Transparent, shard)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Segmentation{}, fmt.Errorf("segmentation aborted: %w", err)
	}

	for _, n := range counts {
		result.GreenCount += n
	}

	s.logger.Debug().
		Int("width", buf.Width).
		Int("height", buf.Height).
		Int("shards", len(shards)).
		Int("green", result.GreenCount).
		Msg("segmentation complete")

	return result, nil
}

func (s *Segmenter) segmentRows(ctx context.Context, src, opaque, transparent *types.PixelBuffer, rows rowRange) (int, error) {
	green := 0
	for y := rows.start; y < rows.end; y++ {
		if err := ctx.Err(); err != nil {
			return green, err
		}
		si := src.Offset(0, y)
		di := opaque.Offset(0, y)
		for x := 0; x < src.Width; x++ {
			r, g, b := src.Pix[si], src.Pix[si+1], src.Pix[si+2]

			if s.classifier.IsVegetation8(r, g, b) {
				green++
				setPixel(opaque.Pix[di:di+4], 0, 255, 0, 255)
				setPixel(transparent.Pix[di:di+4], 0, 255, 0, 255)
			} else {
				setPixel(opaque.Pix[di:di+4], 0, 0, 0, 255)
				setPixel(transparent.Pix[di:di+4], r, g, b, 0)
			}

			si += types.BytesPerPixel
			di += types.BytesPerPixel
		}
	}
	return green, nil
}

func setPixel(p []uint8, r, g, b, a uint8) {
	p[0] = r
	p[1] = g
	p[2] = b
	p[3] = a
}

// shardRows splits [0, height) into contiguous ranges of at most size rows
func shardRows(height, size int) []rowRange {
	shards := make([]rowRange, 0, (height+size-1)/size)
	for start := 0; start < height; start += size {
		end := start + size
		if end > height {
			end = height
		}
		shards = append(shards, rowRange{start: start, end: end})
	}
	return shards
}

// Percentage returns 100*green/total, or 0 when total is 0
func Percentage(green, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(green) / float64(total)
}
