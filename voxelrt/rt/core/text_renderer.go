package core

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// AtlasSize is the edge length of the square alpha atlas.
const AtlasSize = 512

// TextVertexSize is the byte stride of one TextVertex.
const TextVertexSize = 32

type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// TextItem is one block of text. Position is in pixels from the top-left
// corner of the target.
type TextItem struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// TextRenderer rasterizes printable ASCII into an alpha atlas once and lays
// out quads against it.
type TextRenderer struct {
	Atlas  *image.Alpha
	Glyphs map[rune]GlyphInfo

	ascent     float32
	lineHeight float32
}

// NewDefaultTextRenderer uses the embedded Go Regular face.
func NewDefaultTextRenderer(size float64) (*TextRenderer, error) {
	return NewTextRenderer(goregular.TTF, size)
}

func NewTextRenderer(ttf []byte, size float64) (*TextRenderer, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, errors.Wrap(err, "parse font")
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create face")
	}
	defer face.Close()

	atlas := image.NewAlpha(image.Rect(0, 0, AtlasSize, AtlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0
	for r := rune(32); r < 127; r++ {
		bounds, mask, maskPt, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w, h := bounds.Dx(), bounds.Dy()
		if x+w >= AtlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= AtlasSize {
			return nil, errors.Errorf("glyph atlas overflow at %q (size %g)", r, size)
		}
		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, maskPt, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / AtlasSize, float32(y) / AtlasSize},
			UVMax: [2]float32{float32(x+w) / AtlasSize, float32(y+h) / AtlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64,
		}
		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	m := face.Metrics()
	return &TextRenderer{
		Atlas:      atlas,
		Glyphs:     glyphs,
		ascent:     float32(m.Ascent.Ceil()),
		lineHeight: float32(m.Height.Ceil()),
	}, nil
}

// BuildVertices emits two triangles per visible glyph in clip space for a
// screenW x screenH target.
func (tr *TextRenderer) BuildVertices(items []TextItem, screenW, screenH uint32) []TextVertex {
	if screenW == 0 || screenH == 0 {
		return nil
	}
	sw, sh := float32(screenW), float32(screenH)
	vertices := make([]TextVertex, 0, 6*len(items)*16)

	for _, item := range items {
		startX := item.Position[0]
		penX := startX
		penY := item.Position[1] + tr.ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				penX = startX
				penY += tr.lineHeight * item.Scale
				continue
			}
			g, ok := tr.Glyphs[r]
			if !ok {
				continue
			}
			if g.Size[0] > 0 && g.Size[1] > 0 {
				x0 := (penX+g.Off[0]*item.Scale)/sw*2 - 1
				y0 := 1 - (penY+g.Off[1]*item.Scale)/sh*2
				x1 := (penX+(g.Off[0]+g.Size[0])*item.Scale)/sw*2 - 1
				y1 := 1 - (penY+(g.Off[1]+g.Size[1])*item.Scale)/sh*2

				v00 := TextVertex{Pos: [2]float32{x0, y0}, UV: g.UVMin, Color: item.Color}
				v10 := TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color}
				v01 := TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color}
				v11 := TextVertex{Pos: [2]float32{x1, y1}, UV: g.UVMax, Color: item.Color}
				vertices = append(vertices, v00, v10, v01, v10, v11, v01)
			}
			penX += g.Adv * item.Scale
		}
	}
	return vertices
}

func (tr *TextRenderer) MeasureText(text string, scale float32) (float32, float32) {
	maxW, curW := float32(0), float32(0)
	lines := 1
	for _, r := range text {
		if r == '\n' {
			if curW > maxW {
				maxW = curW
			}
			curW = 0
			lines++
			continue
		}
		if g, ok := tr.Glyphs[r]; ok {
			curW += g.Adv * scale
		}
	}
	if curW > maxW {
		maxW = curW
	}
	return maxW, tr.lineHeight * scale * float32(lines)
}

func (tr *TextRenderer) LineHeight(scale float32) float32 {
	return tr.lineHeight * scale
}

// VertexBytes flattens vertices into the TextVertexSize-strided layout the
// overlay pipeline reads.
func VertexBytes(vertices []TextVertex) []byte {
	buf := make([]byte, len(vertices)*TextVertexSize)
	for i, v := range vertices {
		o := buf[i*TextVertexSize:]
		putF32(o[0:], v.Pos[0])
		putF32(o[4:], v.Pos[1])
		putF32(o[8:], v.UV[0])
		putF32(o[12:], v.UV[1])
		for c := 0; c < 4; c++ {
			putF32(o[16+c*4:], v.Color[c])
		}
	}
	return buf
}
