// Package watermark stamps a watermark image onto every slide of a
// PPTX presentation, computing placement and scale from a named layout
// position.
package watermark

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"pptxmark/pkg/pptx"
)

// Options control watermark appearance and placement. Nil pointer
// fields take the documented defaults.
type Options struct {
	Opacity        *float64 // alpha multiplier, default 0.5
	Position       Position // default Center
	SizePercentage *float64 // scale relative to slide width, default 0.3; ignored for ribbon positions
	OnTop          *bool    // default true; false moves the mark beneath existing shapes
	OutputPath     string   // default: input with its extension replaced by "_watermarked.pptx"
}

// AddImageWatermark stamps the image at markPath onto every slide of
// the presentation at pptxPath and writes the result. It returns the
// output path.
func AddImageWatermark(pptxPath, markPath string, opts *Options) (string, error) {
	mark, err := imaging.Open(markPath)
	if err != nil {
		return "", err
	}
	return addWatermark(pptxPath, mark, opts)
}

// AddTextWatermark renders text to a mark image and stamps it onto
// every slide, using the same placement and opacity pipeline as image
// marks.
func AddTextWatermark(pptxPath, text string, topts *TextOptions, opts *Options) (string, error) {
	mark, err := RenderTextMark(text, topts)
	if err != nil {
		return "", err
	}
	return addWatermark(pptxPath, mark, opts)
}

func addWatermark(pptxPath string, mark image.Image, opts *Options) (string, error) {
	opacity := 0.5
	pos := Center
	size := 0.3
	onTop := true
	outPath := ""

	if opts != nil {
		if opts.Opacity != nil {
			opacity = *opts.Opacity
		}
		if opts.Position != "" {
			pos = opts.Position
		}
		if opts.SizePercentage != nil {
			size = *opts.SizePercentage
		}
		if opts.OnTop != nil {
			onTop = *opts.OnTop
		}
		outPath = opts.OutputPath
	}
	if outPath == "" {
		outPath = defaultOutputPath(pptxPath)
	}

	deck, err := pptx.Open(pptxPath)
	if err != nil {
		return "", err
	}

	// The mark is processed once and the encoded bytes shared across
	// all slides; the pptx layer stores identical bytes as one part.
	processed := applyOpacity(mark, opacity)
	var buf bytes.Buffer
	if err := png.Encode(&buf, processed); err != nil {
		return "", err
	}

	slideW, slideH := deck.SlideSize()
	b := processed.Bounds()
	pl := PlacementFor(pos, slideW, slideH, b.Dx(), b.Dy(), size)

	for i := 0; i < deck.SlideCount(); i++ {
		id, err := deck.AddPicture(i, pptx.Picture{
			Data:     buf.Bytes(),
			Ext:      "png",
			Name:     "Watermark",
			Left:     pl.Left,
			Top:      pl.Top,
			Width:    pl.Width,
			Height:   pl.Height,
			Rotation: pl.Rotation,
		})
		if err != nil {
			return "", err
		}
		if !onTop {
			if err := deck.MoveShape(i, id, 2); err != nil {
				return "", err
			}
		}
	}

	if err := deck.Save(outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// applyOpacity scales every alpha sample by opacity, flooring and
// clamping each to the 8-bit range. The opacity argument itself is
// passed through unvalidated.
func applyOpacity(img image.Image, opacity float64) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		v := math.Floor(float64(out.Pix[i]) * opacity)
		switch {
		case v < 0:
			out.Pix[i] = 0
		case v > 255:
			out.Pix[i] = 255
		default:
			out.Pix[i] = uint8(v)
		}
	}
	return out
}

// defaultOutputPath strips the last dot-delimited extension and appends
// the watermarked suffix.
func defaultOutputPath(in string) string {
	if i := strings.LastIndexByte(in, '.'); i >= 0 {
		in = in[:i]
	}
	return in + "_watermarked.pptx"
}
