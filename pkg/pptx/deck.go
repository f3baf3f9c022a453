// Package pptx reads and rewrites PPTX (Office Open XML Presentation)
// containers with enough fidelity to insert pictures into slides and
// reorder them within a slide's shape tree. Parts that are not touched
// are carried through byte-for-byte.
package pptx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Deck is an in-memory PPTX package. All parts are read up front so a
// failed mutation never leaves a partially written file behind.
type Deck struct {
	names  []string          // part names in archive order
	parts  map[string][]byte // part name -> content
	slides []string          // slide part names, sorted by slide number

	slideW int64
	slideH int64

	media map[[32]byte]string // content digest -> media part name
}

// Open reads a PPTX file fully into memory.
func Open(filename string) (*Deck, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	defer zr.Close()

	d := &Deck{
		parts: make(map[string][]byte),
		media: make(map[[32]byte]string),
	}

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading part %s: %w", f.Name, err)
		}
		d.names = append(d.names, f.Name)
		d.parts[f.Name] = data
	}

	if err := d.validate(); err != nil {
		return nil, err
	}
	if err := d.collectSlides(); err != nil {
		return nil, err
	}
	if err := d.parseSlideSize(); err != nil {
		return nil, fmt.Errorf("parsing presentation: %w", err)
	}

	return d, nil
}

// validate checks that required PPTX parts exist.
func (d *Deck) validate() error {
	required := []string{
		"[Content_Types].xml",
		"ppt/presentation.xml",
	}
	for _, name := range required {
		if _, ok := d.parts[name]; !ok {
			return fmt.Errorf("missing required part: %s", name)
		}
	}
	return nil
}

// collectSlides finds slide parts and orders them by slide number.
func (d *Deck) collectSlides() error {
	for name := range d.parts {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			if !strings.Contains(name, "_rels") {
				d.slides = append(d.slides, name)
			}
		}
	}
	if len(d.slides) == 0 {
		return fmt.Errorf("no slides found in presentation")
	}
	sort.Slice(d.slides, func(i, j int) bool {
		return slideNumber(d.slides[i]) < slideNumber(d.slides[j])
	})
	return nil
}

// slideNumber extracts N from a path like "ppt/slides/slideN.xml".
func slideNumber(path string) int {
	name := strings.TrimPrefix(path, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	var num int
	fmt.Sscanf(name, "%d", &num)
	return num
}

// parseSlideSize reads the slide extent from ppt/presentation.xml.
func (d *Deck) parseSlideSize() error {
	var pres presentationXML
	if err := xml.Unmarshal(d.parts["ppt/presentation.xml"], &pres); err != nil {
		return err
	}
	if pres.SlideSz == nil {
		return fmt.Errorf("presentation declares no slide size")
	}
	if pres.SlideSz.Cx <= 0 || pres.SlideSz.Cy <= 0 {
		return fmt.Errorf("invalid slide size %dx%d", pres.SlideSz.Cx, pres.SlideSz.Cy)
	}
	d.slideW = pres.SlideSz.Cx
	d.slideH = pres.SlideSz.Cy
	return nil
}

// SlideCount returns the number of slides.
func (d *Deck) SlideCount() int {
	return len(d.slides)
}

// SlideSize returns the slide extent in EMUs.
func (d *Deck) SlideSize() (cx, cy int64) {
	return d.slideW, d.slideH
}

// slidePart returns the part name for the slide at index (0-based).
func (d *Deck) slidePart(index int) (string, error) {
	if index < 0 || index >= len(d.slides) {
		return "", fmt.Errorf("slide index %d out of range (0-%d)", index, len(d.slides)-1)
	}
	return d.slides[index], nil
}

// setPart replaces a part's content, registering the name if new.
func (d *Deck) setPart(name string, data []byte) {
	if _, ok := d.parts[name]; !ok {
		d.names = append(d.names, name)
	}
	d.parts[name] = data
}

// Save writes the package to path. Parts keep their original archive
// order; parts added since Open are appended at the end.
func (d *Deck) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range d.names {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("creating part %s: %w", name, err)
		}
		if _, err := w.Write(d.parts[name]); err != nil {
			return fmt.Errorf("writing part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing ZIP archive: %w", err)
	}
	return nil
}
