// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package qrimage renders tracking URLs as QR codes in PNG or SVG form.
// Error correction is fixed at level H (high) so printed codes survive
// smudging and partial occlusion; a zero quiet zone is used because the
// destination media (stickers, flyers) supplies its own margin.
package qrimage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Format is a rendering output format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// Render encodes data as a QR code and renders it as sizePx-by-sizePx PNG
// bytes, or as an SVG document sized with sizePx width/height attributes.
// Returns the image bytes, the MIME content type, and the file extension.
func Render(data string, format Format, sizePx int) ([]byte, string, string, error) {
	qr, err := qrcode.New(data, qrcode.High)
	if err != nil {
		return nil, "", "", fmt.Errorf("qrimage: encode: %w", err)
	}
	qr.DisableBorder = true
	modules := qr.Bitmap()

	switch format {
	case FormatPNG:
		b, err := renderPNG(modules, sizePx)
		if err != nil {
			return nil, "", "", err
		}
		return b, "image/png", "png", nil
	case FormatSVG:
		return []byte(renderSVG(modules, sizePx)), "image/svg+xml", "svg", nil
	default:
		return nil, "", "", fmt.Errorf("qrimage: unsupported format %q", format)
	}
}

// renderPNG draws one source pixel per module, then nearest-neighbor
// upscales to sizePx so that module edges stay perfectly sharp regardless
// of how sizePx divides into the module count.
func renderPNG(modules [][]bool, sizePx int) ([]byte, error) {
	n := len(modules)
	if n == 0 {
		return nil, fmt.Errorf("qrimage: empty matrix")
	}
	src := image.NewGray(image.Rect(0, 0, n, n))
	for y, row := range modules {
		for x, dark := range row {
			c := color.Gray{Y: 255}
			if dark {
				c = color.Gray{Y: 0}
			}
			src.SetGray(x, y, c)
		}
	}

	dst := image.NewGray(image.Rect(0, 0, sizePx, sizePx))
	for y := 0; y < sizePx; y++ {
		sy := y * n / sizePx
		for x := 0; x < sizePx; x++ {
			sx := x * n / sizePx
			dst.SetGray(x, y, src.GrayAt(sx, sy))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("qrimage: png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// renderSVG builds a single-path SVG with an explicit square viewBox equal
// to the module count, so the code scales crisply to any sizePx.
func renderSVG(modules [][]bool, sizePx int) string {
	n := len(modules)
	var path strings.Builder
	for y, row := range modules {
		for x, dark := range row {
			if !dark {
				continue
			}
			fmt.Fprintf(&path, "M%d,%dh1v1h-1z", x, y)
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, `<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`, sizePx, sizePx, n, n)
	fmt.Fprintf(&out, `<rect width="%d" height="%d" fill="white"/>`, n, n)
	fmt.Fprintf(&out, `<path d="%s" fill="black"/>`, path.String())
	out.WriteString(`</svg>`)
	return out.String()
}
