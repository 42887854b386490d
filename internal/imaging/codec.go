// Package imaging validates downloaded images and re-encodes them into other
// formats.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/imgdl/internal/naming"
	"golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const JPEGQuality = 95

var errNoEncoder = errors.New("no encoder available")

// Validate checks that path holds a decodable image header. It never modifies
// the file.
func Validate(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", &ValidationError{Path: path, Err: err}
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, "", &ValidationError{Path: path, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", &ValidationError{Path: path, Err: fmt.Errorf("empty dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	return cfg, format, nil
}

// SameFormat reports whether a decoder format name and a target extension
// name the same encoding.
func SameFormat(decoded, target string) bool {
	return canonicalFormat(decoded) == canonicalFormat(target)
}

func canonicalFormat(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if name == "jpg" {
		return "jpeg"
	}
	return name
}

// Convert decodes path and writes it as target at the path with the target
// extension, returning that path. A source whose name already carries the
// target extension but holds another encoding is re-encoded in place;
// otherwise the source file is never touched.
func Convert(path, target string) (string, error) {
	target = strings.ToLower(strings.TrimPrefix(target, "."))
	dest := naming.ReplaceExt(path, target)

	src, err := os.Open(path)
	if err != nil {
		return "", &ConversionError{Path: path, Target: target, Err: err}
	}
	img, format, err := image.Decode(src)
	src.Close()
	if err != nil {
		return "", &ConversionError{Path: path, Target: target, Err: fmt.Errorf("error decoding image: %w", err)}
	}
	if dest == path && SameFormat(format, target) {
		return path, nil
	}
	log.Debug().Str("op", "imaging/codec").Str("from", format).Str("to", target).Msgf("Converting %s", path)

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", &ConversionError{Path: path, Target: target, Err: err}
	}
	err = encode(out, img, target)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return "", &ConversionError{Path: path, Target: target, Err: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", &ConversionError{Path: path, Target: target, Err: err}
	}
	return dest, nil
}

func encode(f *os.File, img image.Image, target string) error {
	switch target {
	case "jpg", "jpeg":
		return jpeg.Encode(f, Flatten(img), &jpeg.Options{Quality: JPEGQuality})
	case "png":
		return png.Encode(f, img)
	case "gif":
		return gif.Encode(f, img, nil)
	case "bmp":
		return bmp.Encode(f, img)
	default:
		return fmt.Errorf("%w for %q", errNoEncoder, target)
	}
}

// Flatten composites img onto an opaque white canvas.
func Flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Over)
	return canvas
}
