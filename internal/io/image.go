package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// ImageService prepares cover art before it is embedded in tags or saved
// next to the audio files.
//
// SoundCloud serves artwork as JPEG (and occasionally PNG) in fixed sizes;
// the service scales it down to a maximum edge and normalises it to JPEG.
type ImageService struct {
	quality int
}

// NewImageService creates a new ImageService encoding JPEG at quality 90.
func NewImageService() *ImageService {
	return &ImageService{quality: 90}
}

// CoverOptions selects the transformations applied by PrepareCover.
type CoverOptions struct {
	// Resize enables scaling down to MaxSize.
	Resize bool

	// MaxSize is the maximum width and height in pixels.
	MaxSize int

	// ToJPEG re-encodes the image as JPEG even when no resize happens.
	ToJPEG bool
}

// PrepareCover applies opts to data. When the image cannot be decoded the
// original bytes are returned together with the error so callers can still
// embed them.
func (s *ImageService) PrepareCover(ctx context.Context, data []byte, opts CoverOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return data, err
	}

	if opts.Resize && opts.MaxSize > 0 {
		resized, err := s.ResizeImage(ctx, data, opts.MaxSize, opts.MaxSize)
		if err != nil {
			return data, err
		}
		return resized, nil
	}
	if opts.ToJPEG {
		converted, err := s.ConvertToJPEG(ctx, data)
		if err != nil {
			return data, err
		}
		return converted, nil
	}
	return data, nil
}

// ResizeImage scales an image to fit within the given bounds, preserving the
// aspect ratio, and returns it JPEG-encoded. Images already inside the bounds
// keep their size but are still re-encoded.
//
// A 1000x1000 "t500x500" artwork with maxWidth=maxHeight=500 becomes 500x500.
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return s.encode(dst)
}

// ConvertToJPEG re-encodes any decodable image as JPEG.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return s.encode(img)
}

func (s *ImageService) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitWithin computes dimensions no larger than the bounds with the same
// aspect ratio as width x height.
func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		return max(1, int(float64(maxHeight)*ratio)), maxHeight
	}
	return maxWidth, max(1, int(float64(maxWidth)/ratio))
}
