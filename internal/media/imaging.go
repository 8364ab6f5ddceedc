package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

const (
	// MaxDimension - максимальная ширина или высота сохраняемого фото
	MaxDimension = 1024

	// MaxPixels ограничивает размер декодированного кадра.
	// Заголовок проверяется до декодирования, сжатый файл может быть маленьким.
	MaxPixels = 40_000_000

	JPEGQuality = 85
)

// ErrUnsupportedMedia - прислали не JPEG и не PNG, либо кадр слишком большой
var ErrUnsupportedMedia = errors.New("unsupported media")

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// IsImage проверяет формат по первым байтам, не доверяя заявленному типу
func IsImage(data []byte) bool {
	return allowedMIME[http.DetectContentType(data)]
}

// Process приводит фото к виду для хранения: JPEG не больше MaxDimension по стороне
func Process(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	if w, h, ok := fit(img.Bounds().Dx(), img.Bounds().Dy(), MaxDimension); ok {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// decode сначала читает только заголовок и отказывает до выделения памяти под кадр
func decode(data []byte) (image.Image, error) {
	if detected := http.DetectContentType(data); !allowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, detected)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image header: %v", ErrUnsupportedMedia, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedMedia, cfg.Width, cfg.Height, MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrUnsupportedMedia, err)
	}
	return img, nil
}

// fit возвращает размер с сохранением пропорций; ok=false, если уменьшать не нужно
func fit(w, h, limit int) (int, int, bool) {
	if w <= limit && h <= limit {
		return w, h, false
	}
	if w >= h {
		return limit, max(h*limit/w, 1), true
	}
	return max(w*limit/h, 1), limit, true
}
