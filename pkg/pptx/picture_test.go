package pptx

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func testPicture(data []byte) Picture {
	return Picture{
		Data:   data,
		Ext:    "png",
		Name:   "Watermark",
		Left:   100,
		Top:    200,
		Width:  300,
		Height: 400,
	}
}

func TestAddPicture(t *testing.T) {
	d, err := Open(createDeck(t, 1, defaultSlideSize))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	id, err := d.AddPicture(0, testPicture([]byte("not-really-a-png")))
	if err != nil {
		t.Fatalf("AddPicture failed: %v", err)
	}
	if id != 3 {
		t.Errorf("shape ID = %d, want 3 (fixture has ids 1 and 2)", id)
	}

	slide := string(d.parts["ppt/slides/slide1.xml"])
	if !strings.Contains(slide, "<p:pic") {
		t.Fatal("slide has no p:pic element")
	}
	if !strings.Contains(slide, `r:embed="rId1"`) {
		t.Errorf("pic does not reference rId1:\n%s", slide)
	}
	if !strings.Contains(slide, `<a:off x="100" y="200"/>`) || !strings.Contains(slide, `<a:ext cx="300" cy="400"/>`) {
		t.Errorf("pic geometry missing:\n%s", slide)
	}
	if strings.Contains(slide, "rot=") {
		t.Error("unrotated picture must not carry a rot attribute")
	}

	// Appended pictures go to the end of the shape tree, above
	// existing content.
	if strings.Index(slide, "<p:pic") < strings.Index(slide, "<p:sp>") {
		t.Error("appended picture should follow existing shapes")
	}

	if _, ok := d.parts["ppt/media/image1.png"]; !ok {
		t.Error("media part not written")
	}
	rels := string(d.parts["ppt/slides/_rels/slide1.xml.rels"])
	if !strings.Contains(rels, `Target="../media/image1.png"`) {
		t.Errorf("slide rels missing image target:\n%s", rels)
	}
	ct := string(d.parts["[Content_Types].xml"])
	if !strings.Contains(ct, `Extension="png"`) {
		t.Errorf("content types missing png default:\n%s", ct)
	}
}

func TestAddPictureRotation(t *testing.T) {
	d, err := Open(createDeck(t, 1, defaultSlideSize))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	pic := testPicture([]byte("img"))
	pic.Rotation = 1761466
	if _, err := d.AddPicture(0, pic); err != nil {
		t.Fatalf("AddPicture failed: %v", err)
	}

	slide := string(d.parts["ppt/slides/slide1.xml"])
	if !strings.Contains(slide, `<a:xfrm rot="1761466">`) {
		t.Errorf("rotation attribute missing:\n%s", slide)
	}
}

func TestAddPictureSharesMedia(t *testing.T) {
	d, err := Open(createDeck(t, 2, defaultSlideSize))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	data := []byte("shared-image-bytes")
	for i := 0; i < 2; i++ {
		if _, err := d.AddPicture(i, testPicture(data)); err != nil {
			t.Fatalf("AddPicture slide %d failed: %v", i, err)
		}
	}

	count := 0
	for _, name := range d.names {
		if strings.HasPrefix(name, "ppt/media/") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("media parts = %d, want 1 (identical bytes should share a part)", count)
	}
	for i := 1; i <= 2; i++ {
		rels := string(d.parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i)])
		if !strings.Contains(rels, `Target="../media/image1.png"`) {
			t.Errorf("slide %d rels missing shared media target:\n%s", i, rels)
		}
	}
}

func TestAddPictureDistinctMedia(t *testing.T) {
	d, err := Open(createDeck(t, 1, defaultSlideSize))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := d.AddPicture(0, testPicture([]byte("first"))); err != nil {
		t.Fatalf("AddPicture failed: %v", err)
	}
	if _, err := d.AddPicture(0, testPicture([]byte("second"))); err != nil {
		t.Fatalf("AddPicture failed: %v", err)
	}

	if _, ok := d.parts["ppt/media/image1.png"]; !ok {
		t.Error("first media part missing")
	}
	if _, ok := d.parts["ppt/media/image2.png"]; !ok {
		t.Error("second media part missing")
	}
	rels := string(d.parts["ppt/slides/_rels/slide1.xml.rels"])
	if !strings.Contains(rels, "rId1") || !strings.Contains(rels, "rId2") {
		t.Errorf("expected two relationships:\n%s", rels)
	}
}

func TestAddPictureOutOfRange(t *testing.T) {
	d, err := Open(createDeck(t, 1, defaultSlideSize))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := d.AddPicture(5, testPicture([]byte("img"))); err == nil {
		t.Error("expected error for out-of-range slide index")
	}
}

func TestMoveShape(t *testing.T) {
	d, err := Open(createDeck(t, 1, defaultSlideSize))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	id, err := d.AddPicture(0, testPicture([]byte("img")))
	if err != nil {
		t.Fatalf("AddPicture failed: %v", err)
	}
	if err := d.MoveShape(0, id, 2); err != nil {
		t.Fatalf("MoveShape failed: %v", err)
	}

	slide := string(d.parts["ppt/slides/slide1.xml"])
	picIdx := strings.Index(slide, "<p:pic")
	spIdx := strings.Index(slide, "<p:sp>")
	grpIdx := strings.Index(slide, "<p:grpSpPr")
	if picIdx < 0 || spIdx < 0 {
		t.Fatalf("missing elements in slide:\n%s", slide)
	}
	if picIdx > spIdx {
		t.Error("moved picture should precede existing shapes")
	}
	if picIdx < grpIdx {
		t.Error("moved picture should follow the grpSpPr bookkeeping child")
	}

	// The move must not lose or duplicate content.
	if strings.Count(slide, "<p:pic") != 1 {
		t.Error("picture duplicated or lost by move")
	}
	if !strings.Contains(slide, "Slide 1") {
		t.Error("existing slide content lost by move")
	}
}

func TestMoveShapeUnknownID(t *testing.T) {
	d, err := Open(createDeck(t, 1, defaultSlideSize))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := d.MoveShape(0, 99, 2); err == nil {
		t.Error("expected error for unknown shape ID")
	}
}

func TestShapeTreeOffsets(t *testing.T) {
	slide := []byte(slideXMLBody("Offsets"))
	tree, err := parseShapeTree(slide)
	if err != nil {
		t.Fatalf("parseShapeTree failed: %v", err)
	}
	if len(tree.children) != 3 {
		t.Fatalf("children = %d, want 3 (nvGrpSpPr, grpSpPr, sp)", len(tree.children))
	}
	if tree.children[0].shapeID != 1 || tree.children[2].shapeID != 2 {
		t.Errorf("child shape IDs = %d,%d,%d", tree.children[0].shapeID, tree.children[1].shapeID, tree.children[2].shapeID)
	}

	// Splicing at index 2 must land between grpSpPr and the first sp.
	ins := []byte("<p:marker/>")
	out := spliceBytes(slide, tree.insertOffset(2), ins)
	markerIdx := bytes.Index(out, ins)
	if markerIdx < bytes.Index(out, []byte("<p:grpSpPr")) {
		t.Error("insert at 2 landed before grpSpPr")
	}
	if markerIdx > bytes.Index(out, []byte("<p:sp>")) {
		t.Error("insert at 2 landed after the first shape")
	}
}

func TestNextShapeID(t *testing.T) {
	id, err := nextShapeID([]byte(slideXMLBody("IDs")))
	if err != nil {
		t.Fatalf("nextShapeID failed: %v", err)
	}
	if id != 3 {
		t.Errorf("nextShapeID = %d, want 3", id)
	}
}
