package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
)

// Format is the short name returned by image.Decode.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
)

const jpegQuality = 90

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	default:
		return "image/png"
	}
}

// Decoded is a decoded image together with its source format.
type Decoded struct {
	Image  image.Image
	Format Format
}

// Decode decodes data as PNG, JPEG or GIF.
func Decode(data []byte) (*Decoded, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &Decoded{Image: img, Format: Format(name)}, nil
}

// DetectFormat reads only the image header.
func DetectFormat(data []byte) (Format, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("detect image format: %w", err)
	}
	return Format(name), nil
}

// Encode writes img to w in the given format. Unknown formats fall back to PNG.
func Encode(w io.Writer, img image.Image, format Format) error {
	var err error
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case FormatGIF:
		err = gif.Encode(w, img, nil)
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s image: %w", format, err)
	}
	return nil
}

// EncodeBase64 encodes img in format and returns standard base64 text.
func EncodeBase64(img image.Image, format Format) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBase64 decodes base64 image text. A data URI prefix is ignored.
func DecodeBase64(encoded string) (*Decoded, error) {
	if i := strings.Index(encoded, ","); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return Decode(data)
}
