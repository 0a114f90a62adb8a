package noise

import (
	"errors"
	"math"
	"testing"
)

func TestVertexGridCount(t *testing.T) {
	cases := []struct{ length, height int }{
		{1, 1}, {4, 4}, {7, 3}, {128, 128}, {33, 1},
	}
	for _, c := range cases {
		g, err := NewVertexGrid(c.length, c.height, 32)
		if err != nil {
			t.Fatalf("NewVertexGrid(%d,%d): %v", c.length, c.height, err)
		}
		want := (c.length + 1) * (1 + 2*c.height)
		if g.Count() != want {
			t.Errorf("NewVertexGrid(%d,%d).Count() = %d, want %d", c.length, c.height, g.Count(), want)
		}
	}
}

func TestNewVertexGridRejectsNonPositive(t *testing.T) {
	cases := []struct {
		length, height int
		side           float64
	}{
		{0, 4, 32}, {4, 0, 32}, {-1, 4, 32}, {4, 4, 0}, {4, 4, -2},
	}
	for _, c := range cases {
		if _, err := NewVertexGrid(c.length, c.height, c.side); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("NewVertexGrid(%d,%d,%v): expected ErrInvalidConfiguration, got %v", c.length, c.height, c.side, err)
		}
	}
}

func TestVertexPositionsOffsetOddRows(t *testing.T) {
	g, _ := NewVertexGrid(4, 4, 32)
	if p := g.Position(1, 0); p.X() != 32 || p.Y() != 0 {
		t.Errorf("Position(1,0) = %v, want (32,0)", p)
	}
	if p := g.Position(1, 1); p.X() != 48 {
		t.Errorf("Position(1,1).X = %v, want 48", p.X())
	}
	if p := g.Position(0, 2); p.Y() != 2*g.RowPitch() {
		t.Errorf("Position(0,2).Y = %v, want %v", p.Y(), 2*g.RowPitch())
	}
}

func TestTriangleIndices(t *testing.T) {
	g, _ := NewVertexGrid(5, 3, 10)
	idx := g.TriangleIndices()
	if len(idx) != 3*g.TriangleCount() {
		t.Fatalf("got %d indices, want %d", len(idx), 3*g.TriangleCount())
	}
	if g.TriangleCount() != 2*5*6 {
		t.Errorf("TriangleCount = %d, want %d", g.TriangleCount(), 60)
	}
	for i, v := range idx {
		if int(v) >= g.Count() {
			t.Fatalf("index %d = %d out of range (%d vertices)", i, v, g.Count())
		}
	}
	// every triangle must have unit-length edges
	for i := 0; i < len(idx); i += 3 {
		a := g.Position(int(idx[i])%g.Columns, int(idx[i])/g.Columns)
		b := g.Position(int(idx[i+1])%g.Columns, int(idx[i+1])/g.Columns)
		c := g.Position(int(idx[i+2])%g.Columns, int(idx[i+2])/g.Columns)
		for _, e := range []float32{a.Sub(b).Len(), b.Sub(c).Len(), c.Sub(a).Len()} {
			if e < 9.99 || e > 10.01 {
				t.Fatalf("triangle %d has edge %v, want 10", i/3, e)
			}
		}
	}
}

func TestCellSide(t *testing.T) {
	if c, err := CellSide(32, 4); err != nil || c != 128 {
		t.Errorf("CellSide(32,4) = %v, %v; want 128", c, err)
	}
	if c, err := CellSide(32, 0.7); err != nil || c != 22 {
		t.Errorf("CellSide(32,0.7) = %v, %v; want 22", c, err)
	}
	for _, g := range []float64{0, -1, 0.01} {
		if _, err := CellSide(32, g); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("CellSide(32,%v): expected ErrInvalidConfiguration, got %v", g, err)
		}
	}
}

func TestBuildLatticeScenario(t *testing.T) {
	grid, _ := NewVertexGrid(4, 4, 32)
	l, err := BuildLattice(grid, 4, OverscanSource)
	if err != nil {
		t.Fatalf("BuildLattice: %v", err)
	}
	// mapWidth 160 / 128 -> 1, bumped; mapHeight ~249.4 / 128 -> 1, bumped
	if l.WidthCells != 2 || l.HeightCells != 2 || l.CellSide != 128 {
		t.Errorf("lattice = %+v, want 2x2 cells of 128", l)
	}
	if err := l.Covers(grid); err != nil {
		t.Errorf("Covers: %v", err)
	}
}

func TestBuildLatticeSourceNoBump(t *testing.T) {
	// mapWidth 33*32=1056, cell 20: 52 cells and 52*33 > 1056, so no bump
	grid, _ := NewVertexGrid(32, 1, 32)
	l, err := BuildLattice(grid, 0.625, OverscanSource)
	if err != nil {
		t.Fatalf("BuildLattice: %v", err)
	}
	if l.WidthCells != 52 {
		t.Errorf("WidthCells = %d, want 52", l.WidthCells)
	}
	// the far vertex at x=1040 sits in cell 52 and needs corner 53
	if err := l.Covers(grid); !errors.Is(err, ErrOutOfBoundsLattice) {
		t.Errorf("expected source policy to miss the far vertex, got %v", err)
	}

	strict, err := BuildLattice(grid, 0.625, OverscanStrict)
	if err != nil {
		t.Fatalf("BuildLattice strict: %v", err)
	}
	if err := strict.Covers(grid); err != nil {
		t.Errorf("strict lattice should cover: %v", err)
	}
}

func TestBuildLatticeAtLeastOneCell(t *testing.T) {
	dims := [][2]int{{1, 1}, {4, 4}, {16, 3}, {64, 64}}
	for _, d := range dims {
		grid, _ := NewVertexGrid(d[0], d[1], 32)
		for g := 0.05; g < 80; g *= 1.37 {
			for _, policy := range []OverscanPolicy{OverscanSource, OverscanStrict} {
				l, err := BuildLattice(grid, g, policy)
				if err != nil {
					t.Fatalf("BuildLattice(%v, %v, %v): %v", d, g, policy, err)
				}
				if l.WidthCells < 1 || l.HeightCells < 1 {
					t.Errorf("BuildLattice(%v, %v, %v) = %+v, want >= 1 cell per axis", d, g, policy, l)
				}
			}
		}
	}
}

func TestStrictLatticeAlwaysCovers(t *testing.T) {
	for length := 1; length <= 40; length += 3 {
		for height := 1; height <= 20; height += 3 {
			grid, _ := NewVertexGrid(length, height, 24)
			for g := 0.05; g < 60; g *= 1.21 {
				l, err := BuildLattice(grid, g, OverscanStrict)
				if err != nil {
					t.Fatalf("BuildLattice: %v", err)
				}
				if err := l.Covers(grid); err != nil {
					t.Fatalf("grid %dx%d granularity %v: %v", length, height, g, err)
				}
			}
		}
	}
}

func TestSourceLatticeCoversWhenBumped(t *testing.T) {
	// when both axes get the extra cell, the corner lattice always reaches past the mesh
	for length := 1; length <= 24; length++ {
		for height := 1; height <= 12; height++ {
			grid, _ := NewVertexGrid(length, height, 32)
			for g := 1.0; g < 16; g += 0.5 {
				l, err := BuildLattice(grid, g, OverscanSource)
				if err != nil {
					t.Fatalf("BuildLattice: %v", err)
				}
				w, h := grid.Extent()
				cell := float64(l.CellSide)
				if l.WidthCells != int(math.Floor(w/cell))+1 || l.HeightCells != int(math.Floor(h/cell))+1 {
					continue
				}
				if err := l.Covers(grid); err != nil {
					t.Errorf("grid %dx%d granularity %v: %v", length, height, g, err)
				}
			}
		}
	}
}

func TestParseOverscanPolicy(t *testing.T) {
	if p, err := ParseOverscanPolicy(""); err != nil || p != OverscanSource {
		t.Errorf("empty policy: got %v, %v", p, err)
	}
	if p, err := ParseOverscanPolicy("strict"); err != nil || p != OverscanStrict {
		t.Errorf("strict policy: got %v, %v", p, err)
	}
	if _, err := ParseOverscanPolicy("loose"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("unknown policy: expected ErrInvalidConfiguration, got %v", err)
	}
}
