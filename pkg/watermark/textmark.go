package watermark

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextOptions configure text mark rendering. Nil pointer fields take
// the documented defaults.
type TextOptions struct {
	Color      string   // hex color, default "#808080"
	FontPath   string   // .ttf/.otf file; Go Regular when empty or unloadable
	FontSize   *int     // default 96
	HeightCrop *float64 // vertical squeeze factor, default 1.0 (none)
}

// RenderTextMark renders a single line of text to a tightly cropped
// NRGBA image suitable for use as a watermark mark. Opacity is not
// applied here; the caller's opacity pass handles it.
func RenderTextMark(text string, opts *TextOptions) (image.Image, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text must not be empty")
	}

	colorHex := "#808080"
	fontPath := ""
	fontSize := 96
	heightCrop := 1.0
	if opts != nil {
		if opts.Color != "" {
			colorHex = opts.Color
		}
		fontPath = opts.FontPath
		if opts.FontSize != nil {
			fontSize = *opts.FontSize
		}
		if opts.HeightCrop != nil {
			heightCrop = *opts.HeightCrop
		}
	}

	face, err := loadFontFaceWithFallback(fontPath, fontSize)
	if err != nil {
		return nil, err
	}
	colorVal, err := parseHexColor(colorHex)
	if err != nil {
		return nil, err
	}

	runes := []rune(text)
	tmpW := maxInt(200, fontSize*maxInt(4, len(runes)))
	tmpH := maxInt(64, int(float64(fontSize)*2.5))
	canvas := image.NewNRGBA(image.Rect(0, 0, tmpW, tmpH))

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(colorVal),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(0),
			Y: fixed.I(0) + face.Metrics().Ascent,
		},
	}
	d.DrawString(text)

	bbox, ok := tightAlphaBounds(canvas)
	if !ok {
		return nil, errors.New("text produced no visible glyphs")
	}
	mark := imaging.Crop(canvas, bbox)

	if heightCrop > 0 && heightCrop != 1.0 {
		newH := int(math.Max(1, math.Round(float64(fontSize)*heightCrop)))
		mark = imaging.Resize(mark, mark.Bounds().Dx(), newH, imaging.Lanczos)
	}

	return mark, nil
}

func loadFontFace(path string, size int) (font.Face, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("font path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func loadFontFaceWithFallback(path string, size int) (font.Face, error) {
	if strings.TrimSpace(path) != "" {
		face, err := loadFontFace(path, size)
		if err == nil {
			return face, nil
		}
		log.Printf("failed to load font %q, falling back to Go Regular: %v", path, err)
	}
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func parseHexColor(s string) (color.NRGBA, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return color.NRGBA{}, errors.New("color must not be empty")
	}
	str = strings.TrimPrefix(str, "#")
	switch len(str) {
	case 3:
		str = fmt.Sprintf("%c%c%c%c%c%c", str[0], str[0], str[1], str[1], str[2], str[2])
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color format: %q", s)
	}

	var r, g, b, a uint8
	hexRGB := str
	if len(str) == 8 {
		hexRGB = str[:6]
	}
	_, err := fmt.Sscanf(hexRGB, "%02x%02x%02x", &r, &g, &b)
	if err != nil {
		return color.NRGBA{}, err
	}
	if len(str) == 8 {
		_, err = fmt.Sscanf(str[6:], "%02x", &a)
		if err != nil {
			return color.NRGBA{}, err
		}
	} else {
		a = 255
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

func tightAlphaBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A != 0 {
				if !found {
					minX, minY = x, y
					maxX, maxY = x, y
					found = true
				} else {
					if x < minX {
						minX = x
					}
					if y < minY {
						minY = y
					}
					if x > maxX {
						maxX = x
					}
					if y > maxY {
						maxY = y
					}
				}
			}
		}
	}
	if !found {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
