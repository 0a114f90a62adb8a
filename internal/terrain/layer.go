package terrain

import (
	"fmt"

	"perlin-terrain/internal/compute"
	"perlin-terrain/internal/config"
	"perlin-terrain/internal/noise"
)

// layerContext carries everything one octave needs. It is built fresh per layer.
type layerContext struct {
	index       int
	amplitude   float32
	granularity float64
	lattice     noise.Lattice
	params      compute.Params
}

func newLayerContext(index int, s config.PerlinSettings) layerContext {
	return layerContext{
		index:       index,
		amplitude:   float32(s.LayerAmplitude(index)),
		granularity: s.LayerGranularity(index),
	}
}

// buildLattice sizes the layer's lattice and asserts it surrounds every vertex.
func (lc layerContext) buildLattice(grid noise.VertexGrid, policy noise.OverscanPolicy, seed uint32) (layerContext, error) {
	l, err := noise.BuildLattice(grid, lc.granularity, policy)
	if err != nil {
		return lc, fmt.Errorf("layer %d: %w", lc.index, err)
	}
	if err := l.Covers(grid); err != nil {
		return lc, fmt.Errorf("layer %d (%s overscan, cell %v): %w", lc.index, policy, l.CellSide, err)
	}
	lc.lattice = l
	lc.params = compute.Params{
		VertexColumns:  uint32(grid.Columns),
		VertexRows:     uint32(grid.Rows),
		TriangleSide:   grid.Side,
		LatticeColumns: uint32(l.Columns()),
		LatticeRows:    uint32(l.Rows()),
		CellSide:       l.CellSide,
		Seed:           seed,
		Amplitude:      lc.amplitude,
	}
	return lc, nil
}

func (lc layerContext) gradientFill(gradients compute.Buffer) compute.Dispatch {
	return compute.Dispatch{
		Kernel:    compute.KernelGradientFill,
		Width:     lc.params.LatticeColumns,
		Height:    lc.params.LatticeRows,
		Params:    lc.params,
		Gradients: gradients,
	}
}

func (lc layerContext) vertexEvaluate(gradients, heights compute.Buffer) compute.Dispatch {
	return compute.Dispatch{
		Kernel:    compute.KernelVertexEvaluate,
		Width:     lc.params.VertexColumns,
		Height:    lc.params.VertexRows,
		Params:    lc.params,
		Gradients: gradients,
		Heights:   heights,
	}
}

// gradientCapacity returns the float32 count of the largest layer's gradient lattice.
func gradientCapacity(grid noise.VertexGrid, s config.PerlinSettings) (int, error) {
	policy, err := s.OverscanPolicy()
	if err != nil {
		return 0, err
	}
	most := 0
	for i := 0; i < s.Layers; i++ {
		l, err := noise.BuildLattice(grid, s.LayerGranularity(i), policy)
		if err != nil {
			return 0, fmt.Errorf("layer %d: %w", i, err)
		}
		most = max(most, 2*l.Points())
	}
	return most, nil
}
