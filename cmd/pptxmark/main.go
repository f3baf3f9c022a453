package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"pptxmark/pkg/watermark"
)

func main() {
	input := flag.String("in", "", "input presentation path (required)")
	markPath := flag.String("mark", "", "watermark image path")
	text := flag.String("text", "", "watermark text (alternative to -mark)")
	output := flag.String("out", "", "output path (default: input with _watermarked.pptx suffix)")

	opacity := flag.Float64("opacity", 0.5, "watermark opacity 0..1")
	position := flag.String("position", "center", "position: center|bottom-right|bottom-left|top-right|top-left|diagonal-ribbon|horizontal-ribbon|vertical-ribbon")
	size := flag.Float64("size", 0.3, "size relative to slide width (ignored for ribbon positions)")
	under := flag.Bool("under", false, "place watermark beneath existing slide content")

	colorHex := flag.String("color", "#808080", "text: watermark color hex")
	fontPath := flag.String("font", "", "text: font path (.ttf/.otf), Go Regular if unset")
	fontSize := flag.Int("font-size", 96, "text: font size")

	flag.Parse()

	if err := validateRequired(*input, *markPath, *text); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	onTop := !*under
	opts := &watermark.Options{
		Opacity:        opacity,
		Position:       watermark.Position(strings.ToLower(*position)),
		SizePercentage: size,
		OnTop:          &onTop,
		OutputPath:     *output,
	}

	var (
		outPath string
		err     error
	)
	if *text != "" {
		topts := &watermark.TextOptions{
			Color:    *colorHex,
			FontPath: *fontPath,
			FontSize: fontSize,
		}
		outPath, err = watermark.AddTextWatermark(*input, *text, topts, opts)
	} else {
		outPath, err = watermark.AddImageWatermark(*input, *markPath, opts)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(outPath)
}

func validateRequired(input, markPath, text string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("missing -in")
	}
	if strings.TrimSpace(markPath) == "" && strings.TrimSpace(text) == "" {
		return errors.New("one of -mark or -text is required")
	}
	if strings.TrimSpace(markPath) != "" && strings.TrimSpace(text) != "" {
		return errors.New("-mark and -text are mutually exclusive")
	}
	return nil
}
