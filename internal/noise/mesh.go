package noise

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// sqrt3Over2 is the row pitch of the triangular tiling relative to the side length.
const sqrt3Over2 = float32(0.8660254037844386)

// VertexGrid describes the vertices of the triangular mesh.
// Odd rows are shifted right by half a triangle side.
type VertexGrid struct {
	Columns int
	Rows    int
	Side    float32
}

// NewVertexGrid derives the vertex grid from map dimensions measured in sections.
func NewVertexGrid(lengthInSections, heightInSections int, side float64) (VertexGrid, error) {
	if lengthInSections <= 0 || heightInSections <= 0 {
		return VertexGrid{}, fmt.Errorf("%w: map sections must be positive, got %dx%d",
			ErrInvalidConfiguration, lengthInSections, heightInSections)
	}
	if !(side > 0) || math.IsInf(side, 0) {
		return VertexGrid{}, fmt.Errorf("%w: triangle side length must be positive, got %v",
			ErrInvalidConfiguration, side)
	}
	return VertexGrid{
		Columns: lengthInSections + 1,
		Rows:    1 + 2*heightInSections,
		Side:    float32(side),
	}, nil
}

// Count returns the number of vertices in the grid.
func (g VertexGrid) Count() int {
	return g.Columns * g.Rows
}

// Index returns the height map slot of vertex (col, row).
func (g VertexGrid) Index(col, row int) int {
	return row*g.Columns + col
}

// RowPitch is the vertical distance between two vertex rows in world units.
func (g VertexGrid) RowPitch() float32 {
	return g.Side * sqrt3Over2
}

// Position returns the world position of vertex (col, row).
func (g VertexGrid) Position(col, row int) mgl32.Vec2 {
	x := float32(col) * g.Side
	if row&1 == 1 {
		x += g.Side * 0.5
	}
	y := float32(row) * g.Side * sqrt3Over2
	return mgl32.Vec2{x, y}
}

// Extent returns the map size in world units used for lattice sizing:
// Columns*Side wide and Rows*Side*sqrt(3)/2 tall.
func (g VertexGrid) Extent() (width, height float64) {
	side := float64(g.Side)
	width = float64(g.Columns) * side
	height = float64(g.Rows) * (side * math.Sqrt(3) / 2)
	return width, height
}

// FarCorner returns the largest x and y any vertex reaches.
func (g VertexGrid) FarCorner() mgl32.Vec2 {
	maxX := g.Position(g.Columns-1, 0).X()
	if g.Rows > 1 {
		maxX = g.Position(g.Columns-1, 1).X()
	}
	maxY := g.Position(0, g.Rows-1).Y()
	return mgl32.Vec2{maxX, maxY}
}

// TriangleCount returns the number of triangles covering the grid.
func (g VertexGrid) TriangleCount() int {
	if g.Columns < 2 || g.Rows < 2 {
		return 0
	}
	return 2 * (g.Columns - 1) * (g.Rows - 1)
}

// TriangleIndices returns three vertex indices per triangle for the whole mesh.
func (g VertexGrid) TriangleIndices() []uint32 {
	out := make([]uint32, 0, 3*g.TriangleCount())
	idx := func(c, r int) uint32 { return uint32(g.Index(c, r)) }

	for r := 0; r+1 < g.Rows; r++ {
		for c := 0; c+1 < g.Columns; c++ {
			if r&1 == 0 {
				// lower row flush left, upper row shifted right
				out = append(out,
					idx(c, r), idx(c+1, r), idx(c, r+1),
					idx(c+1, r), idx(c+1, r+1), idx(c, r+1),
				)
			} else {
				out = append(out,
					idx(c, r), idx(c+1, r+1), idx(c, r+1),
					idx(c, r), idx(c+1, r), idx(c+1, r+1),
				)
			}
		}
	}
	return out
}
