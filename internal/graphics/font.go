package graphics

import (
	_ "embed"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	//go:embed shaders/font.vert
	fontVertexSource string
	//go:embed shaders/font.frag
	fontFragmentSource string
)

// FontCharacter describes a single character's placement and metrics within the atlas
type FontCharacter struct {
	// Pixel coordinates of the glyph in the atlas texture (top-left origin)
	AtlasX float32
	AtlasY float32
	// Glyph bitmap size in pixels
	Width  float32
	Height float32
	// Bearing (offset from baseline) in pixels
	BearingX float32
	BearingY float32
	// Advance in whole pixels
	Advance int
}

// FontAtlas holds the baked glyphs of one face. TextureID is zero until Upload.
type FontAtlas struct {
	TextureID  uint32
	Image      *image.Alpha
	Characters map[rune]FontCharacter
}

const atlasWidth = 512

// BakeFontAtlas rasterizes the printable ASCII range of a TrueType/OpenType font at
// fontPixels into a single-channel image, packing glyphs in rows.
func BakeFontAtlas(ttf []byte, fontPixels int) (*FontAtlas, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(fontPixels), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	defer func() { _ = face.Close() }()

	const padding = 1
	var runes []rune
	for r := rune(32); r <= 126; r++ {
		runes = append(runes, r)
	}

	// First pass: place glyphs to find the atlas height
	type slot struct{ x, y int }
	slots := make(map[rune]slot, len(runes))
	offsetX, offsetY, rowHeight := 0, 0, 0
	for _, r := range runes {
		dr, _, _, _, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok {
			continue
		}
		gw, gh := dr.Dx(), dr.Dy()
		if offsetX+gw > atlasWidth {
			offsetX = 0
			offsetY += rowHeight + padding
			rowHeight = 0
		}
		slots[r] = slot{offsetX, offsetY}
		offsetX += gw + padding
		rowHeight = max(rowHeight, gh)
	}
	atlasHeight := offsetY + rowHeight + padding

	// Second pass: rasterize again and copy each mask before the face reuses it
	img := image.NewAlpha(image.Rect(0, 0, atlasWidth, atlasHeight))
	characters := make(map[rune]FontCharacter, len(slots))
	for _, r := range runes {
		at, placed := slots[r]
		if !placed {
			continue
		}
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok {
			continue
		}
		gw, gh := dr.Dx(), dr.Dy()
		if gw > 0 && gh > 0 && mask != nil {
			draw.Draw(img, image.Rect(at.x, at.y, at.x+gw, at.y+gh), mask, maskp, draw.Src)
		}
		characters[r] = FontCharacter{
			AtlasX:   float32(at.x),
			AtlasY:   float32(at.y),
			Width:    float32(gw),
			Height:   float32(gh),
			BearingX: float32(dr.Min.X),
			BearingY: float32(-dr.Min.Y),
			Advance:  int(math.Round(float64(advance) / 64.0)),
		}
	}
	return &FontAtlas{Image: img, Characters: characters}, nil
}

// Upload copies the atlas into a GL_RED texture.
func (a *FontAtlas) Upload() {
	b := a.Image.Bounds()
	gl.GenTextures(1, &a.TextureID)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, a.TextureID)
	// Ensure tight byte alignment for single-channel upload
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R8, int32(b.Dx()), int32(b.Dy()), 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(a.Image.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
}

// FontRenderer renders ASCII text strings using an uploaded atlas
type FontRenderer struct {
	atlas      *FontAtlas
	shader     *Shader
	projection mgl32.Mat4
	vao        uint32
	vbo        uint32
}

// NewFontRenderer uploads atlas if needed and creates the text pipeline
func NewFontRenderer(atlas *FontAtlas, width, height int) (*FontRenderer, error) {
	if atlas == nil || len(atlas.Characters) == 0 {
		return nil, fmt.Errorf("invalid font atlas")
	}
	shader, err := NewShader(fontVertexSource, fontFragmentSource)
	if err != nil {
		return nil, fmt.Errorf("font shader: %w", err)
	}
	if atlas.TextureID == 0 {
		atlas.Upload()
	}
	fr := &FontRenderer{atlas: atlas, shader: shader}
	fr.SetViewport(width, height)

	gl.GenVertexArrays(1, &fr.vao)
	gl.GenBuffers(1, &fr.vbo)
	gl.BindVertexArray(fr.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, fr.vbo)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 4, gl.FLOAT, false, 4*4, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return fr, nil
}

// SetViewport sets a pixel-space orthographic projection with the origin top-left
func (fr *FontRenderer) SetViewport(width, height int) {
	fr.projection = mgl32.Ortho(0, float32(width), float32(height), 0, -1, 1)
}

// RenderLines draws lines of text starting at baseline (x, yStart), lineStep pixels apart.
func (fr *FontRenderer) RenderLines(lines []string, x, yStart, lineStep, scale float32, color mgl32.Vec3) {
	var vertices []float32
	y := yStart
	for _, line := range lines {
		vertices = append(vertices, fr.buildVertices([]rune(line), x, y, scale)...)
		y += lineStep
	}
	if len(vertices) == 0 {
		return
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	fr.shader.Use()
	fr.shader.SetVector3("textColor", color.X(), color.Y(), color.Z())
	fr.shader.SetMatrix4("projection", &fr.projection[0])
	fr.shader.SetInt("text", 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, fr.atlas.TextureID)

	gl.BindVertexArray(fr.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, fr.vbo)
	// orphan the previous frame's storage
	size := len(vertices) * 4
	gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.STREAM_DRAW)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(vertices))
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(vertices)/4))
	gl.BindVertexArray(0)

	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
}

// Measure returns the width and tallest glyph height in pixels of text at scale.
func (fr *FontRenderer) Measure(text string, scale float32) (float32, float32) {
	return measure(fr.atlas, text, scale)
}

// Dispose frees the GL objects
func (fr *FontRenderer) Dispose() {
	fr.shader.Delete()
	gl.DeleteVertexArrays(1, &fr.vao)
	gl.DeleteBuffers(1, &fr.vbo)
	if fr.atlas.TextureID != 0 {
		gl.DeleteTextures(1, &fr.atlas.TextureID)
		fr.atlas.TextureID = 0
	}
}

func measure(a *FontAtlas, text string, scale float32) (float32, float32) {
	var width, maxH float32
	for _, r := range text {
		fc, ok := a.Characters[r]
		if !ok {
			fc = a.Characters[' ']
		}
		width += float32(fc.Advance) * scale
		maxH = max(maxH, fc.Height*scale)
	}
	return width, maxH
}

// buildVertices emits two triangles per glyph, 4 floats per vertex (x, y, u, v).
// Missing glyphs advance like a space.
func (fr *FontRenderer) buildVertices(chars []rune, x, y, scale float32) []float32 {
	a := fr.atlas
	b := a.Image.Bounds()
	aw, ah := float32(b.Dx()), float32(b.Dy())

	vertices := make([]float32, 0, len(chars)*6*4)
	for _, r := range chars {
		fc, ok := a.Characters[r]
		if !ok {
			x += float32(a.Characters[' '].Advance) * scale
			continue
		}
		if fc.Width > 0 && fc.Height > 0 {
			xPos := x + fc.BearingX*scale
			yPos := y - fc.BearingY*scale
			w, h := fc.Width*scale, fc.Height*scale
			u0, v0 := fc.AtlasX/aw, fc.AtlasY/ah
			u1, v1 := (fc.AtlasX+fc.Width)/aw, (fc.AtlasY+fc.Height)/ah
			vertices = append(vertices,
				xPos, yPos+h, u0, v1,
				xPos, yPos, u0, v0,
				xPos+w, yPos, u1, v0,
				xPos, yPos+h, u0, v1,
				xPos+w, yPos, u1, v0,
				xPos+w, yPos+h, u1, v1,
			)
		}
		x += float32(fc.Advance) * scale
	}
	return vertices
}
