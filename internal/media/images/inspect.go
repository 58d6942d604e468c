// Package images validates uploaded event photos and derives their placeholders.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

var (
	// ErrTooLarge is returned when the payload exceeds the configured limit.
	ErrTooLarge = errors.New("image too large")
	// ErrUnsupportedType is returned for payloads that are not an accepted image format.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrEmpty is returned for zero-length payloads.
	ErrEmpty = errors.New("empty image")
)

// AllowedTypes lists the accepted photo MIME types.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Info describes an accepted image.
type Info struct {
	ContentType string
	Width       int
	Height      int
	BlurHash    string
}

// Inspect sniffs, decodes and hashes data. maxBytes <= 0 disables the size check.
func Inspect(data []byte, maxBytes int64) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Info{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), maxBytes)
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), AllowedTypes...) {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mime.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode image: %w", err)
	}

	hash, err := ComputeBlurHash(img)
	if err != nil {
		return Info{}, err
	}

	b := img.Bounds()
	return Info{
		ContentType: mime.String(),
		Width:       b.Dx(),
		Height:      b.Dy(),
		BlurHash:    hash,
	}, nil
}
