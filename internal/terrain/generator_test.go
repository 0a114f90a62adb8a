package terrain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"perlin-terrain/internal/compute"
	"perlin-terrain/internal/compute/cpu"
	"perlin-terrain/internal/config"
	"perlin-terrain/internal/noise"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func scenarioDims() config.MapDimensions {
	return config.MapDimensions{LengthInSections: 4, HeightInSections: 4, TriangleSideLength: 32}
}

func scenarioSettings() config.PerlinSettings {
	return config.PerlinSettings{
		Seed:               42,
		InitialAmplitude:   10,
		InitialGranularity: 4,
		Layers:             1,
		GranularityRatio:   2,
		AmplitudeRatio:     2,
		EmitReadableMap:    true,
	}
}

func newTestGenerator(t *testing.T, dev compute.Device, dims config.MapDimensions, s config.PerlinSettings) *Generator {
	t.Helper()
	g, err := New(dev, dims, s, WithLogger(quiet))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func newCPU(t *testing.T, workers int) *cpu.Device {
	t.Helper()
	d := cpu.New(workers, cpu.WithLogger(quiet))
	t.Cleanup(func() { d.Close() })
	return d
}

// hostReference evaluates every layer on the host with the same lattice and gradients.
func hostReference(t *testing.T, dims config.MapDimensions, s config.PerlinSettings) []float32 {
	t.Helper()
	grid, err := dims.Grid()
	if err != nil {
		t.Fatal(err)
	}
	policy, _ := s.OverscanPolicy()
	out := make([]float32, grid.Count())
	for i := 0; i < s.Layers; i++ {
		l, err := noise.BuildLattice(grid, s.LayerGranularity(i), policy)
		if err != nil {
			t.Fatal(err)
		}
		grads := make([]float32, 2*l.Points())
		noise.FillGradients(grads, l, s.Seed, 0, l.Rows())
		if err := noise.AccumulateRows(out, grads, grid, l, float32(s.LayerAmplitude(i)), 0, grid.Rows); err != nil {
			t.Fatal(err)
		}
	}
	return out
}

func TestRunScenarioMatchesHostReference(t *testing.T) {
	g := newTestGenerator(t, newCPU(t, 4), scenarioDims(), scenarioSettings())

	hm, host, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(host) != 45 {
		t.Fatalf("got %d heights, want 45", len(host))
	}
	if hm.Columns != 5 || hm.Rows != 9 || hm.Buffer == nil {
		t.Errorf("height map = %+v, want 5x9 with a buffer", hm)
	}

	want := hostReference(t, scenarioDims(), scenarioSettings())
	for i, h := range host {
		if h < -10 || h > 10 {
			t.Errorf("height %d = %v outside [-10,10]", i, h)
		}
		if math.Abs(float64(h-want[i])) > 1e-4 {
			t.Errorf("height %d = %v, want %v", i, h, want[i])
		}
	}
	if g.State() != StateDone {
		t.Errorf("state = %v, want done", g.State())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	s := scenarioSettings()
	s.Layers = 4
	s.GranularityRatio = 0.5
	s.AmplitudeRatio = 0.5
	g := newTestGenerator(t, newCPU(t, 3), config.MapDimensions{LengthInSections: 12, HeightInSections: 7, TriangleSideLength: 16}, s)

	_, first, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	_, second, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("height %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestMultiLayerEqualsSumOfSingleLayers(t *testing.T) {
	dims := scenarioDims()
	s := scenarioSettings()
	s.Layers = 3
	s.InitialAmplitude = 100
	s.AmplitudeRatio = 0.5
	s.GranularityRatio = 0.5

	dev := newCPU(t, 2)
	g := newTestGenerator(t, dev, dims, s)
	_, combined, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sum := make([]float32, len(combined))
	for i := 0; i < s.Layers; i++ {
		single := s
		single.Layers = 1
		single.InitialAmplitude = s.LayerAmplitude(i)
		single.InitialGranularity = s.LayerGranularity(i)
		if err := g.ChangeSettings(single); err != nil {
			t.Fatalf("ChangeSettings layer %d: %v", i, err)
		}
		_, h, err := g.Run(context.Background())
		if err != nil {
			t.Fatalf("Run layer %d: %v", i, err)
		}
		for j := range h {
			sum[j] += h[j]
		}
	}
	for j := range sum {
		if math.Abs(float64(sum[j]-combined[j])) > 1e-3 {
			t.Errorf("vertex %d: layered %v, summed %v", j, combined[j], sum[j])
		}
	}
}

func TestDeterministicAcrossWorkerCounts(t *testing.T) {
	s := config.DefaultPerlinSettings()
	s.EmitReadableMap = true
	dims := config.MapDimensions{LengthInSections: 24, HeightInSections: 10, TriangleSideLength: 32}

	var ref []float32
	for _, workers := range []int{1, 5} {
		g := newTestGenerator(t, newCPU(t, workers), dims, s)
		_, h, err := g.Run(context.Background())
		if err != nil {
			t.Fatalf("%d workers: %v", workers, err)
		}
		if ref == nil {
			ref = h
			continue
		}
		for i := range ref {
			if h[i] != ref[i] {
				t.Fatalf("%d workers: height %d = %v, want %v", workers, i, h[i], ref[i])
			}
		}
	}
}

func TestFullAmplitude(t *testing.T) {
	s := config.PerlinSettings{InitialAmplitude: 100, AmplitudeRatio: 0.5, Layers: 3}
	if got := FullAmplitude(s); got != 150 {
		t.Errorf("FullAmplitude = %v, want 150", got)
	}
	if got := FullAmplitudeAllLayers(s); got != 175 {
		t.Errorf("FullAmplitudeAllLayers = %v, want 175", got)
	}
	s.Layers = 1
	if got := FullAmplitude(s); got != 0 {
		t.Errorf("FullAmplitude with one layer = %v, want 0", got)
	}
}

func TestHeightsBoundedByAllLayerAmplitude(t *testing.T) {
	s := config.DefaultPerlinSettings()
	s.EmitReadableMap = true
	dims := config.MapDimensions{LengthInSections: 32, HeightInSections: 16, TriangleSideLength: 32}
	g := newTestGenerator(t, newCPU(t, 0), dims, s)
	_, h, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	limit := float32(g.FullAmplitudeAllLayers()*math.Sqrt2/2) + 1e-3
	for i, v := range h {
		if v < -limit || v > limit {
			t.Fatalf("height %d = %v exceeds %v", i, v, limit)
		}
	}
}

func TestHeightMapBeforeRun(t *testing.T) {
	g := newTestGenerator(t, newCPU(t, 1), scenarioDims(), scenarioSettings())
	if _, err := g.HeightMap(); !errors.Is(err, ErrNotGenerated) {
		t.Errorf("expected ErrNotGenerated, got %v", err)
	}
	if g.State() != StateIdle {
		t.Errorf("state = %v, want idle", g.State())
	}
	if _, _, err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := g.HeightMap(); err != nil {
		t.Errorf("HeightMap after run: %v", err)
	}
}

func TestRunWithoutReadbackReturnsNoHostCopy(t *testing.T) {
	s := scenarioSettings()
	s.EmitReadableMap = false
	dev := newCPU(t, 2)
	g := newTestGenerator(t, dev, scenarioDims(), s)
	hm, host, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if host != nil {
		t.Errorf("host heights returned without EmitReadableMap")
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Wait: %v", err)
	}
	if hm.Buffer.Len() != 45 {
		t.Errorf("buffer holds %d floats, want 45", hm.Buffer.Len())
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	dev := newCPU(t, 1)
	bad := scenarioSettings()
	bad.Layers = 0
	if _, err := New(dev, scenarioDims(), bad, WithLogger(quiet)); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("zero layers: expected ErrInvalidConfiguration, got %v", err)
	}
	dims := scenarioDims()
	dims.HeightInSections = 0
	if _, err := New(dev, dims, scenarioSettings(), WithLogger(quiet)); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("zero height: expected ErrInvalidConfiguration, got %v", err)
	}
	tiny := scenarioSettings()
	tiny.InitialGranularity = 0.01
	if _, err := New(dev, scenarioDims(), tiny, WithLogger(quiet)); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("sub-unit cell: expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestSourceOverscanCounterexampleFails(t *testing.T) {
	dims := config.MapDimensions{LengthInSections: 32, HeightInSections: 1, TriangleSideLength: 32}
	s := scenarioSettings()
	s.InitialGranularity = 0.625

	g := newTestGenerator(t, newCPU(t, 2), dims, s)
	if _, _, err := g.Run(context.Background()); !errors.Is(err, ErrOutOfBoundsLattice) {
		t.Fatalf("source overscan: expected ErrOutOfBoundsLattice, got %v", err)
	}
	if g.State() != StateFailed {
		t.Errorf("state = %v, want failed", g.State())
	}
	if _, err := g.HeightMap(); !errors.Is(err, ErrNotGenerated) {
		t.Errorf("HeightMap after failure: expected ErrNotGenerated, got %v", err)
	}

	s.Overscan = "strict"
	if err := g.ChangeSettings(s); err != nil {
		t.Fatalf("ChangeSettings: %v", err)
	}
	if _, h, err := g.Run(context.Background()); err != nil || len(h) != 33*3 {
		t.Fatalf("strict overscan: %d heights, %v", len(h), err)
	}
	if g.State() != StateDone {
		t.Errorf("state = %v, want done", g.State())
	}
}

func TestChangeDimensions(t *testing.T) {
	g := newTestGenerator(t, newCPU(t, 2), scenarioDims(), scenarioSettings())
	if _, _, err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	bigger := config.MapDimensions{LengthInSections: 10, HeightInSections: 6, TriangleSideLength: 32}
	if err := g.ChangeDimensions(bigger); err != nil {
		t.Fatalf("ChangeDimensions: %v", err)
	}
	if _, err := g.HeightMap(); !errors.Is(err, ErrNotGenerated) {
		t.Errorf("HeightMap after resize: expected ErrNotGenerated, got %v", err)
	}
	hm, h, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h) != 11*13 || hm.Columns != 11 || hm.Rows != 13 {
		t.Errorf("resized run: %d heights, %dx%d", len(h), hm.Columns, hm.Rows)
	}
	want := hostReference(t, bigger, scenarioSettings())
	for i := range want {
		if math.Abs(float64(h[i]-want[i])) > 1e-4 {
			t.Fatalf("height %d = %v, want %v", i, h[i], want[i])
		}
	}
}

func TestGradientBufferGrows(t *testing.T) {
	g := newTestGenerator(t, newCPU(t, 2), scenarioDims(), scenarioSettings())
	before := g.gradients.Len()

	s := scenarioSettings()
	s.InitialGranularity = 1
	if err := g.ChangeSettings(s); err != nil {
		t.Fatal(err)
	}
	if g.gradients.Len() <= before {
		t.Errorf("gradient buffer %d floats, want more than %d", g.gradients.Len(), before)
	}
	if _, _, err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run after growth: %v", err)
	}
}

func TestClosedGenerator(t *testing.T) {
	g, err := New(newCPU(t, 1), scenarioDims(), scenarioSettings(), WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	g.Close()
	if _, _, err := g.Run(context.Background()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Run after Close: expected ErrDeviceUnavailable, got %v", err)
	}
	if err := g.ChangeSettings(scenarioSettings()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("ChangeSettings after Close: expected ErrDeviceUnavailable, got %v", err)
	}
}
