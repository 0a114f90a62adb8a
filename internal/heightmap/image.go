package heightmap

import (
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"perlin-terrain/internal/noise"
)

// RenderOptions controls Render.
type RenderOptions struct {
	// FullAmplitude maps heights to [-1, 1]. Zero or less falls back to the map's largest magnitude.
	FullAmplitude float64
	// Scale enlarges the image by an integer factor using Catmull-Rom resampling.
	Scale   int
	Caption string
	Ramp    Ramp
}

// Render draws one pixel per vertex, row 0 at the top. Odd rows are shifted half a pixel
// in the mesh, which a raster image cannot show, so the map reads as a slightly sheared grid.
func Render(heights []float32, grid noise.VertexGrid, opts RenderOptions) (*image.RGBA, error) {
	if len(heights) < grid.Count() {
		return nil, fmt.Errorf("render: %d heights for %dx%d grid", len(heights), grid.Columns, grid.Rows)
	}
	ramp := opts.Ramp
	if len(ramp) == 0 {
		ramp = DefaultRamp()
	}
	ramp = ramp.Sorted()

	scale := float32(opts.FullAmplitude)
	if scale <= 0 {
		scale = ComputeStats(heights[:grid.Count()]).MaxAbs()
	}
	if scale <= 0 {
		scale = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, grid.Columns, grid.Rows))
	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Columns; col++ {
			img.SetRGBA(col, row, ramp.At(heights[grid.Index(col, row)]/scale))
		}
	}

	if opts.Scale > 1 {
		img = upscale(img, opts.Scale)
	}
	if opts.Caption != "" {
		if err := caption(img, opts.Caption); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func upscale(src *image.RGBA, factor int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// caption writes text in the bottom-left corner on a dark band.
func caption(img *image.RGBA, text string) error {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	size := max(10, float64(img.Bounds().Dy())/40)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("new face: %w", err)
	}
	defer func() { _ = face.Close() }()

	m := face.Metrics()
	band := (m.Ascent + m.Descent).Ceil() + 4
	b := img.Bounds()
	bg := image.Rect(b.Min.X, b.Max.Y-band, b.Max.X, b.Max.Y)
	xdraw.Draw(img, bg, image.NewUniform(color.RGBA{0, 0, 0, 160}), image.Point{}, xdraw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(b.Min.X+4, b.Max.Y-2-m.Descent.Ceil()),
	}
	d.DrawString(text)
	return nil
}
