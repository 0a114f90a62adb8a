package heightmap

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// Format is an image container.
type Format string

const (
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
)

// FormatFromPath picks the format from the file extension. Unknown extensions are PNG.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return FormatTIFF
	default:
		return FormatPNG
	}
}

// Encode writes img to w.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("unknown image format %q", f)
	}
}

// WriteImage encodes img into path using the format its extension names.
func WriteImage(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := Encode(out, img, FormatFromPath(path)); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return out.Close()
}

// WriteRaw dumps heights as little-endian float32 values, row-major.
func WriteRaw(w io.Writer, heights []float32) error {
	return binary.Write(w, binary.LittleEndian, heights)
}

// ReadRaw reads n little-endian float32 values written by WriteRaw.
func ReadRaw(r io.Reader, n int) ([]float32, error) {
	out := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("read raw heights: %w", err)
	}
	return out, nil
}

// WriteRawFile dumps heights into path.
func WriteRawFile(path string, heights []float32) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create raw dump: %w", err)
	}
	if err := WriteRaw(out, heights); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}
