package noise

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrInvalidConfiguration reports dimensions or settings that cannot produce a lattice.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrOutOfBoundsLattice reports a vertex whose enclosing cell lacks a +1 corner.
	ErrOutOfBoundsLattice = errors.New("vertex outside gradient lattice")
)

// OverscanPolicy selects how many lattice cells cover the mesh.
type OverscanPolicy uint8

const (
	// OverscanSource sizes the lattice with floor(extent/cell) and bumps the count when
	// count*vertexCount <= extent. The comparison mixes a cell count with a vertex count;
	// it is kept as-is for compatibility with existing height maps.
	OverscanSource OverscanPolicy = iota
	// OverscanStrict sizes the lattice so the farthest vertex always has a +1 corner.
	OverscanStrict
)

func (p OverscanPolicy) String() string {
	switch p {
	case OverscanSource:
		return "source"
	case OverscanStrict:
		return "strict"
	default:
		return fmt.Sprintf("OverscanPolicy(%d)", uint8(p))
	}
}

// ParseOverscanPolicy maps a config name to a policy. Empty means OverscanSource.
func ParseOverscanPolicy(name string) (OverscanPolicy, error) {
	switch name {
	case "", "source":
		return OverscanSource, nil
	case "strict":
		return OverscanStrict, nil
	default:
		return 0, fmt.Errorf("%w: unknown overscan policy %q", ErrInvalidConfiguration, name)
	}
}

// Lattice is the square gradient lattice laid over the mesh for one layer.
// Gradients live on cell corners, so there are (WidthCells+1)*(HeightCells+1) of them.
type Lattice struct {
	WidthCells  int
	HeightCells int
	CellSide    float32
}

// CellSide returns floor(side*granularity), the lattice cell size in world units.
func CellSide(side float32, granularity float64) (float32, error) {
	if !(granularity > 0) || math.IsInf(granularity, 0) {
		return 0, fmt.Errorf("%w: granularity must be positive, got %v", ErrInvalidConfiguration, granularity)
	}
	cell := math.Floor(float64(side) * granularity)
	if cell < 1 {
		return 0, fmt.Errorf("%w: granularity %v gives cell side %v for triangle side %v",
			ErrInvalidConfiguration, granularity, cell, side)
	}
	if cell > math.MaxInt32 {
		return 0, fmt.Errorf("%w: granularity %v gives oversized cell side %v",
			ErrInvalidConfiguration, granularity, cell)
	}
	return float32(cell), nil
}

// BuildLattice sizes the gradient lattice for one layer.
func BuildLattice(grid VertexGrid, granularity float64, policy OverscanPolicy) (Lattice, error) {
	cell, err := CellSide(grid.Side, granularity)
	if err != nil {
		return Lattice{}, err
	}

	l := Lattice{CellSide: cell}
	switch policy {
	case OverscanSource:
		mapWidth, mapHeight := grid.Extent()
		l.WidthCells = overscanCount(mapWidth, float64(cell), grid.Columns)
		l.HeightCells = overscanCount(mapHeight, float64(cell), grid.Rows)
	case OverscanStrict:
		far := grid.FarCorner()
		l.WidthCells = int(math.Floor(float64(far.X()/cell))) + 1
		l.HeightCells = int(math.Floor(float64(far.Y()/cell))) + 1
	default:
		return Lattice{}, fmt.Errorf("%w: unknown overscan policy %d", ErrInvalidConfiguration, policy)
	}
	return l, nil
}

func overscanCount(extent, cell float64, vertices int) int {
	n := int(math.Floor(extent / cell))
	if float64(n*vertices) <= extent {
		n++
	}
	return n
}

// Columns returns the number of gradient corners per lattice row.
func (l Lattice) Columns() int { return l.WidthCells + 1 }

// Rows returns the number of gradient corner rows.
func (l Lattice) Rows() int { return l.HeightCells + 1 }

// Points returns the number of gradient vectors in the lattice.
func (l Lattice) Points() int { return l.Columns() * l.Rows() }

// Index returns the gradient slot of corner (col, row).
func (l Lattice) Index(col, row int) int { return row*l.Columns() + col }

// Locate returns the cell containing p and the offset of p inside it, each in [0,1).
func (l Lattice) Locate(p mgl32.Vec2) (col, row int, f mgl32.Vec2) {
	sx := p.X() / l.CellSide
	sy := p.Y() / l.CellSide
	cx := float32(math.Floor(float64(sx)))
	cy := float32(math.Floor(float64(sy)))
	return int(cx), int(cy), mgl32.Vec2{sx - cx, sy - cy}
}

// Covers checks that every vertex of grid has four lattice corners around it.
func (l Lattice) Covers(grid VertexGrid) error {
	col, row, _ := l.Locate(grid.FarCorner())
	if col < 0 || row < 0 || col+1 >= l.Columns() || row+1 >= l.Rows() {
		return fmt.Errorf("%w: far vertex in cell (%d,%d), lattice has %dx%d corners",
			ErrOutOfBoundsLattice, col, row, l.Columns(), l.Rows())
	}
	return nil
}
