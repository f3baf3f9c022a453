package pptx

import (
	"bytes"
	"crypto/sha256"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Picture describes an image to place on a slide. Geometry is in EMUs;
// Rotation is in 60000ths of a degree (the xfrm rot unit), 0 for none.
type Picture struct {
	Data []byte
	Ext  string // media extension without the dot, e.g. "png"
	Name string // shape name; defaults to "Picture"

	Left   int64
	Top    int64
	Width  int64
	Height int64

	Rotation int
}

// contentTypeForExt maps a media extension to its MIME content type.
func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff", "tif":
		return "image/tiff"
	default:
		return "image/" + strings.ToLower(ext)
	}
}

// AddPicture appends a picture shape to the slide's shape tree and
// returns the shape ID assigned to it. The image bytes are stored as a
// media part once; adding the same bytes to several slides shares one
// part. The slide's existing XML is preserved byte-for-byte.
func (d *Deck) AddPicture(slide int, pic Picture) (int, error) {
	part, err := d.slidePart(slide)
	if err != nil {
		return 0, err
	}
	if len(pic.Data) == 0 {
		return 0, fmt.Errorf("picture has no data")
	}
	if pic.Ext == "" {
		pic.Ext = "png"
	}
	if pic.Name == "" {
		pic.Name = "Picture"
	}

	mediaName := d.ensureMedia(pic.Data, pic.Ext)
	d.ensureDefaultContentType(pic.Ext)

	relID, err := d.ensureImageRel(part, "../"+strings.TrimPrefix(mediaName, "ppt/"))
	if err != nil {
		return 0, fmt.Errorf("updating relationships for %s: %w", part, err)
	}

	data := d.parts[part]
	shapeID, err := nextShapeID(data)
	if err != nil {
		return 0, fmt.Errorf("scanning shape IDs in %s: %w", part, err)
	}

	tree, err := parseShapeTree(data)
	if err != nil {
		return 0, fmt.Errorf("locating shape tree in %s: %w", part, err)
	}

	el := pictureElement(pic, shapeID, relID)
	off := tree.insertOffset(len(tree.children))
	d.parts[part] = spliceBytes(data, off, el)

	return shapeID, nil
}

// MoveShape relocates the shape with the given ID to the given child
// index of the slide's shape tree. Index 2 places it immediately after
// the tree's two bookkeeping children (nvGrpSpPr and grpSpPr), i.e.
// beneath every drawable shape.
func (d *Deck) MoveShape(slide, shapeID, index int) error {
	part, err := d.slidePart(slide)
	if err != nil {
		return err
	}
	data := d.parts[part]

	tree, err := parseShapeTree(data)
	if err != nil {
		return fmt.Errorf("locating shape tree in %s: %w", part, err)
	}

	child := tree.childByID(shapeID)
	if child == nil {
		return fmt.Errorf("no shape with ID %d on slide %d", shapeID, slide+1)
	}

	segment := append([]byte(nil), data[child.start:child.end]...)
	cut := append([]byte(nil), data[:child.start]...)
	cut = append(cut, data[child.end:]...)

	// Re-walk after the cut so the insertion offset is exact.
	tree, err = parseShapeTree(cut)
	if err != nil {
		return fmt.Errorf("locating shape tree in %s: %w", part, err)
	}
	d.parts[part] = spliceBytes(cut, tree.insertOffset(index), segment)
	return nil
}

// ensureMedia stores image bytes as a media part, reusing an existing
// part when the same bytes were already added.
func (d *Deck) ensureMedia(data []byte, ext string) string {
	digest := sha256.Sum256(data)
	if name, ok := d.media[digest]; ok {
		return name
	}

	next := 1
	for _, name := range d.names {
		var num int
		if _, err := fmt.Sscanf(name, "ppt/media/image%d.", &num); err == nil && num >= next {
			next = num + 1
		}
	}

	name := fmt.Sprintf("ppt/media/image%d.%s", next, ext)
	d.setPart(name, data)
	d.media[digest] = name
	return name
}

// ensureDefaultContentType registers a Default entry for the extension
// in [Content_Types].xml if one is not present.
func (d *Deck) ensureDefaultContentType(ext string) {
	data := d.parts["[Content_Types].xml"]
	if bytes.Contains(data, []byte(`Extension="`+ext+`"`)) {
		return
	}
	entry := fmt.Sprintf(`<Default Extension=%q ContentType=%q/>`, ext, contentTypeForExt(ext))
	idx := bytes.LastIndex(data, []byte("</Types>"))
	if idx < 0 {
		return
	}
	d.setPart("[Content_Types].xml", spliceBytes(data, int64(idx), []byte(entry)))
}

// ensureImageRel adds an image relationship targeting the media part to
// the slide's rels part, creating the part if absent. An existing
// relationship with the same target is reused.
func (d *Deck) ensureImageRel(slidePart, target string) (string, error) {
	relsPart := relsPartFor(slidePart)

	data, ok := d.parts[relsPart]
	if !ok {
		data = []byte(xml.Header +
			`<Relationships xmlns="` + nsPackageRels + `"></Relationships>`)
	}

	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return "", err
	}

	maxID := 0
	for _, rel := range rels.Relationship {
		if rel.Type == relTypeImage && rel.Target == target {
			return rel.ID, nil
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}

	relID := fmt.Sprintf("rId%d", maxID+1)
	entry := fmt.Sprintf(`<Relationship Id=%q Type=%q Target=%q/>`, relID, relTypeImage, target)
	idx := bytes.LastIndex(data, []byte("</Relationships>"))
	if idx < 0 {
		return "", fmt.Errorf("malformed relationships part %s", relsPart)
	}
	d.setPart(relsPart, spliceBytes(data, int64(idx), []byte(entry)))
	return relID, nil
}

// relsPartFor returns the relationships part name for a slide part,
// e.g. ppt/slides/slide1.xml -> ppt/slides/_rels/slide1.xml.rels.
func relsPartFor(part string) string {
	i := strings.LastIndexByte(part, '/')
	return part[:i] + "/_rels/" + part[i+1:] + ".rels"
}

// pictureElement renders the p:pic element. Namespaces are declared
// inline so the element is valid regardless of which prefixes the
// slide's root element declares.
func pictureElement(pic Picture, shapeID int, relID string) []byte {
	var xfrmAttrs string
	if pic.Rotation != 0 {
		xfrmAttrs = fmt.Sprintf(` rot="%d"`, pic.Rotation)
	}
	return []byte(fmt.Sprintf(
		`<p:pic xmlns:p=%q xmlns:a=%q xmlns:r=%q>`+
			`<p:nvPicPr><p:cNvPr id="%d" name=%q/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
			`<p:blipFill><a:blip r:embed=%q/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
			`<p:spPr><a:xfrm%s><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
			`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
			`</p:pic>`,
		nsPresentationML, nsDrawingML, nsRelationships,
		shapeID, pic.Name,
		relID,
		xfrmAttrs, pic.Left, pic.Top, pic.Width, pic.Height,
	))
}

// shapeTree records byte positions of a slide's p:spTree children.
type shapeTree struct {
	contentStart int64       // offset just after the spTree start tag
	children     []treeChild // direct children in document order
}

// treeChild spans the bytes of one direct child element, including any
// whitespace separating it from the previous child.
type treeChild struct {
	start   int64
	end     int64
	shapeID int // first cNvPr id within the child, 0 if none
}

// parseShapeTree walks the slide XML and records the byte extents of
// the shape tree's direct children.
func parseShapeTree(data []byte) (*shapeTree, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var tree *shapeTree
	depth := 0
	var current *treeChild

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if tree == nil {
				if t.Name.Local == "spTree" {
					tree = &shapeTree{contentStart: dec.InputOffset()}
				}
				continue
			}
			depth++
			if depth == 1 {
				start := tree.contentStart
				if n := len(tree.children); n > 0 {
					start = tree.children[n-1].end
				}
				tree.children = append(tree.children, treeChild{start: start})
				current = &tree.children[len(tree.children)-1]
			}
			if current != nil && current.shapeID == 0 && t.Name.Local == "cNvPr" {
				for _, a := range t.Attr {
					if a.Name.Local == "id" {
						if id, err := strconv.Atoi(a.Value); err == nil {
							current.shapeID = id
						}
					}
				}
			}
		case xml.EndElement:
			if tree == nil {
				continue
			}
			if depth == 0 {
				return tree, nil // spTree closed
			}
			depth--
			if depth == 0 {
				current.end = dec.InputOffset()
				current = nil
			}
		}
	}
	return nil, fmt.Errorf("no spTree element found")
}

// insertOffset returns the byte offset at which a new child should be
// spliced to land at the given child index. Out-of-range indexes clamp
// to the ends of the child list.
func (t *shapeTree) insertOffset(index int) int64 {
	if index <= 0 || len(t.children) == 0 {
		return t.contentStart
	}
	if index > len(t.children) {
		index = len(t.children)
	}
	return t.children[index-1].end
}

// childByID returns the direct child containing the given shape ID.
func (t *shapeTree) childByID(shapeID int) *treeChild {
	for i := range t.children {
		if t.children[i].shapeID == shapeID {
			return &t.children[i]
		}
	}
	return nil
}

// nextShapeID returns one more than the highest cNvPr id in the slide.
func nextShapeID(data []byte) (int, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	maxID := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		if t, ok := tok.(xml.StartElement); ok && t.Name.Local == "cNvPr" {
			for _, a := range t.Attr {
				if a.Name.Local == "id" {
					if id, err := strconv.Atoi(a.Value); err == nil && id > maxID {
						maxID = id
					}
				}
			}
		}
	}
	return maxID + 1, nil
}

// spliceBytes inserts ins into data at off.
func spliceBytes(data []byte, off int64, ins []byte) []byte {
	out := make([]byte, 0, len(data)+len(ins))
	out = append(out, data[:off]...)
	out = append(out, ins...)
	out = append(out, data[off:]...)
	return out
}
