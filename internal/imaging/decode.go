package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF so it is detected and rejected
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	"github.com/ironsheep/image-calc-server/internal/apperr"
	_ "golang.org/x/image/bmp"  // Register BMP so it is detected and rejected
	_ "golang.org/x/image/webp" // Register WEBP format decoder
)

// DataURIPrefix is the required start of every image payload.
const DataURIPrefix = "data:image/"

// Caller-facing messages for decode failures.
const (
	MsgBadPrefix    = "Image must be in data:image/<format>;base64,<data> format"
	MsgBadImageData = "Invalid image data"
	MsgBadImage     = "Invalid or corrupted image"
)

// DefaultMaxPixels caps Width*Height of an accepted image. It matches the
// decompression bomb limit of the Pillow imaging library.
const DefaultMaxPixels = 89_478_485

// minRawPayload is the shortest unpadded payload worth decoding. Anything
// shorter cannot hold an image header.
const minRawPayload = 16

// allowedFormats maps the format names registered with image.Decode to the
// media type used when the image is forwarded to an analysis backend.
var allowedFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// Decoded is an image that passed validation.
type Decoded struct {
	// Image is the decoded raster.
	Image image.Image

	// Format is the name reported by image.Decode: "jpeg", "png" or "webp".
	Format string

	// MediaType is the MIME type matching Format.
	MediaType string

	// Data holds the original encoded bytes.
	Data []byte
}

// Width returns the image width in pixels.
func (d *Decoded) Width() int { return d.Image.Bounds().Dx() }

// Height returns the image height in pixels.
func (d *Decoded) Height() int { return d.Image.Bounds().Dy() }

// Decoder decodes data-URIs with a pixel budget. The zero value uses
// DefaultMaxPixels.
type Decoder struct {
	// MaxPixels rejects images whose declared Width*Height exceeds it.
	MaxPixels int
}

func (d Decoder) maxPixels() int64 {
	if d.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return int64(d.MaxPixels)
}

// DecodeDataURI decodes uri with the default pixel budget.
func DecodeDataURI(uri string) (*Decoded, error) {
	return Decoder{}.DecodeDataURI(uri)
}

// DecodeBytes decodes data with the default pixel budget.
func DecodeBytes(data []byte) (*Decoded, error) {
	return Decoder{}.DecodeBytes(data)
}

// DecodeDataURI validates a data-URI string and decodes the image it carries.
//
// The input must look like:
//
//	data:image/<format>;base64,<payload>
//
// Everything before the first comma is treated as the header and otherwise
// ignored; the actual format is sniffed from the decoded bytes, not taken from
// the header.
//
// # Errors
//
// All failures are *apperr.Error values of KindValidation:
//   - Missing "data:image/" prefix
//   - No comma separating header and payload, or a payload that is not base64
//   - Bytes that do not decode as an image
//   - A decodable format other than JPEG, PNG or WEBP (GIF and BMP included)
//   - Declared dimensions above the pixel budget, checked before any pixel
//     data is decoded
func (d Decoder) DecodeDataURI(uri string) (*Decoded, error) {
	if !strings.HasPrefix(uri, DataURIPrefix) {
		return nil, apperr.Validation(MsgBadPrefix, nil)
	}

	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, apperr.Validation(MsgBadImageData, fmt.Errorf("no comma separating header and payload"))
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, apperr.Validation(MsgBadImageData, err)
	}

	return d.DecodeBytes(data)
}

// DecodeBytes decodes raw image bytes and enforces the allowed format set
// and the pixel budget.
func (d Decoder) DecodeBytes(data []byte) (*Decoded, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation(MsgBadImage, fmt.Errorf("failed to read image header: %w", err))
	}

	mediaType, ok := allowedFormats[format]
	if !ok {
		return nil, apperr.Validation(MsgBadImage, fmt.Errorf("unsupported format: %s", format))
	}

	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > d.maxPixels() {
		return nil, apperr.Validation(MsgBadImage,
			fmt.Errorf("image is %dx%d, %d pixels exceeds limit of %d", cfg.Width, cfg.Height, pixels, d.maxPixels()))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation(MsgBadImage, fmt.Errorf("failed to decode image: %w", err))
	}

	return &Decoded{
		Image:     img,
		Format:    format,
		MediaType: mediaType,
		Data:      data,
	}, nil
}

// decodeBase64 accepts standard base64 with or without padding. Whitespace
// (line breaks from some encoders) is stripped first. Unpadded input shorter
// than minRawPayload is rejected.
func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, payload)

	if payload == "" {
		return nil, fmt.Errorf("empty payload")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if !strings.HasSuffix(payload, "=") && len(payload)%4 != 0 && len(payload) >= minRawPayload {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("invalid base64: %w", err)
}
