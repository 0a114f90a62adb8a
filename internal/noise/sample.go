package noise

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Fade is the improved Perlin curve 6t^5 - 15t^4 + 10t^3.
func Fade(t float32) float32 {
	return t * t * t * (t*(t*6-15) + 10)
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

func gradientAt(gradients []float32, l Lattice, col, row int) mgl32.Vec2 {
	i := 2 * l.Index(col, row)
	return mgl32.Vec2{gradients[i], gradients[i+1]}
}

// Sample evaluates one layer of gradient noise at world position p.
// gradients holds the lattice corners as interleaved x,y pairs.
// The result lies in [-sqrt(2)/2, sqrt(2)/2].
func Sample(gradients []float32, l Lattice, p mgl32.Vec2) (float32, error) {
	col, row, f := l.Locate(p)
	if col < 0 || row < 0 || col+1 >= l.Columns() || row+1 >= l.Rows() {
		return 0, fmt.Errorf("%w: point (%g,%g) in cell (%d,%d), lattice has %dx%d corners",
			ErrOutOfBoundsLattice, p.X(), p.Y(), col, row, l.Columns(), l.Rows())
	}
	if need := 2 * l.Points(); len(gradients) < need {
		return 0, fmt.Errorf("%w: gradient buffer holds %d floats, lattice needs %d",
			ErrOutOfBoundsLattice, len(gradients), need)
	}

	d00 := gradientAt(gradients, l, col, row).Dot(f)
	d10 := gradientAt(gradients, l, col+1, row).Dot(f.Sub(mgl32.Vec2{1, 0}))
	d01 := gradientAt(gradients, l, col, row+1).Dot(f.Sub(mgl32.Vec2{0, 1}))
	d11 := gradientAt(gradients, l, col+1, row+1).Dot(f.Sub(mgl32.Vec2{1, 1}))

	u := Fade(f.X())
	v := Fade(f.Y())
	return Lerp(Lerp(d00, d10, u), Lerp(d01, d11, u), v), nil
}

// AccumulateRows adds amplitude*Sample for every vertex in rows [rowLo, rowHi) into heights.
func AccumulateRows(heights, gradients []float32, grid VertexGrid, l Lattice, amplitude float32, rowLo, rowHi int) error {
	for row := rowLo; row < rowHi; row++ {
		for col := 0; col < grid.Columns; col++ {
			n, err := Sample(gradients, l, grid.Position(col, row))
			if err != nil {
				return err
			}
			heights[grid.Index(col, row)] += amplitude * n
		}
	}
	return nil
}
