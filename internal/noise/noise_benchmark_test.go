package noise

import "testing"

func benchLayer(b *testing.B) (VertexGrid, Lattice, []float32) {
	b.Helper()
	grid, err := NewVertexGrid(128, 128, 32)
	if err != nil {
		b.Fatal(err)
	}
	l, err := BuildLattice(grid, 4, OverscanSource)
	if err != nil {
		b.Fatal(err)
	}
	grads := make([]float32, 2*l.Points())
	FillGradients(grads, l, 1, 0, l.Rows())
	return grid, l, grads
}

func BenchmarkFillGradients(b *testing.B) {
	_, l, grads := benchLayer(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FillGradients(grads, l, uint32(i), 0, l.Rows())
	}
}

func BenchmarkAccumulateRows(b *testing.B) {
	grid, l, grads := benchLayer(b)
	heights := make([]float32, grid.Count())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := AccumulateRows(heights, grads, grid, l, 1, 0, grid.Rows); err != nil {
			b.Fatal(err)
		}
	}
}
