package watermark

import (
	"math"
	"strings"
)

// Position names a watermark layout on a slide. Standard positions
// anchor the mark to a corner or the center and scale it relative to
// slide width; ribbon positions span a slide edge and pick their own
// scale from the mark's proportions. Unrecognized names behave like
// Center.
type Position string

const (
	Center      Position = "center"
	BottomRight Position = "bottom-right"
	BottomLeft  Position = "bottom-left"
	TopRight    Position = "top-right"
	TopLeft     Position = "top-left"

	DiagonalRibbon   Position = "diagonal-ribbon"
	HorizontalRibbon Position = "horizontal-ribbon"
	VerticalRibbon   Position = "vertical-ribbon"
)

const (
	emuPerInch = 914400
	edgeMargin = emuPerInch / 2 // half-inch inset for corner positions

	// Ribbon scale fractions, chosen from the mark's own proportions.
	ribbonFracWide   = 0.20
	ribbonFracNormal = 0.35
	wideAspectCutoff = 2.5
)

// Ribbon reports whether the position is one of the edge-spanning
// ribbon layouts. Any name ending in "-ribbon" counts, so an unknown
// ribbon-like name gets ribbon sizing even though only the three named
// variants have coordinate table entries.
func (p Position) Ribbon() bool {
	return strings.HasSuffix(string(p), "-ribbon")
}

// Placement describes where a watermark lands on a slide, in EMUs.
// Rotation is in 60000ths of a degree, 0 for all positions except the
// diagonal ribbon.
type Placement struct {
	Width  int64
	Height int64
	Left   int64
	Top    int64

	Rotation int
}

// PlacementFor computes the rendered size, anchor and rotation of a
// watermark with the given native pixel size on a slide of the given
// extent. sizeFraction scales standard positions relative to slide
// width; ribbon positions ignore it.
func PlacementFor(pos Position, slideW, slideH int64, markW, markH int, sizeFraction float64) Placement {
	var w, h int64
	if pos.Ribbon() {
		w, h = ribbonSize(pos, slideW, slideH, markW, markH)
	} else {
		w = int64(float64(slideW) * sizeFraction)
		h = int64(float64(w) * float64(markH) / float64(markW))
	}

	left, top := anchor(pos, slideW, slideH, w, h)
	p := Placement{Width: w, Height: h, Left: left, Top: top}
	if pos == DiagonalRibbon {
		p.Rotation = diagonalAngle(slideW, slideH)
	}
	return p
}

// ribbonSize sizes an edge-spanning mark. Vertical ribbons are sized
// from slide width using the mark's height/width ratio; horizontal and
// diagonal ribbons are sized from slide height by dividing by that
// ratio. The two are not interchangeable for non-square marks.
func ribbonSize(pos Position, slideW, slideH int64, markW, markH int) (int64, int64) {
	frac := ribbonFracNormal
	if float64(markW)/float64(markH) > wideAspectCutoff {
		frac = ribbonFracWide
	}
	aspect := float64(markH) / float64(markW)

	if pos == VerticalRibbon {
		w := int64(float64(slideW) * frac)
		return w, int64(float64(w) * aspect)
	}
	h := int64(float64(slideH) * frac)
	return int64(float64(h) / aspect), h
}

// anchor maps a position to the mark's top-left corner. Only the eight
// named positions have entries; everything else lands on center,
// including unknown "-ribbon" names.
func anchor(pos Position, slideW, slideH, w, h int64) (left, top int64) {
	switch pos {
	case BottomRight:
		return slideW - w - edgeMargin, slideH - h - edgeMargin
	case BottomLeft:
		return edgeMargin, slideH - h - edgeMargin
	case TopRight:
		return slideW - w - edgeMargin, edgeMargin
	case TopLeft:
		return edgeMargin, edgeMargin
	case HorizontalRibbon:
		return 0, (slideH - h) / 2
	case VerticalRibbon:
		return (slideW - w) / 2, 0
	default: // Center, DiagonalRibbon and anything unrecognized
		return (slideW - w) / 2, (slideH - h) / 2
	}
}

// diagonalAngle returns the slide diagonal's inclination in the
// 60000ths-of-a-degree unit PresentationML uses for shape rotation.
func diagonalAngle(slideW, slideH int64) int {
	deg := math.Atan2(float64(slideH), float64(slideW)) * 180 / math.Pi
	return int(math.Round(deg * 60000))
}
