// Package terrain composes octaves of gradient noise into a height map on a compute device.
package terrain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"perlin-terrain/internal/compute"
	"perlin-terrain/internal/config"
	"perlin-terrain/internal/noise"
	"perlin-terrain/internal/profiling"
)

var (
	ErrInvalidConfiguration = noise.ErrInvalidConfiguration
	ErrOutOfBoundsLattice   = noise.ErrOutOfBoundsLattice
	ErrDeviceUnavailable    = compute.ErrDeviceUnavailable
	ErrReadback             = compute.ErrReadback

	// ErrRunInFlight is returned when Run, ChangeSettings or ChangeDimensions overlap a run.
	ErrRunInFlight = errors.New("generation run in flight")
	// ErrNotGenerated is returned by HeightMap before a run has completed successfully.
	ErrNotGenerated = errors.New("height map not generated")
)

// HeightMap is a read-only view of the generated heights, one float32 per vertex in row-major order.
type HeightMap struct {
	Columns int
	Rows    int
	Side    float32
	Buffer  compute.Buffer
}

// Grid returns the vertex grid the heights belong to.
func (h HeightMap) Grid() noise.VertexGrid {
	return noise.VertexGrid{Columns: h.Columns, Rows: h.Rows, Side: h.Side}
}

// Generator owns the height and gradient buffers of one map on one device.
type Generator struct {
	device compute.Device
	logger *slog.Logger

	// run is held for the whole of Run; setters use TryLock to refuse overlap
	run sync.Mutex

	mu        sync.RWMutex
	dims      config.MapDimensions
	grid      noise.VertexGrid
	settings  config.PerlinSettings
	policy    noise.OverscanPolicy
	heights   compute.Buffer
	readback  compute.Buffer
	gradients compute.Buffer
	state     State
	generated bool
	closed    bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the generator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New validates dims and settings and allocates the device buffers.
func New(device compute.Device, dims config.MapDimensions, settings config.PerlinSettings, opts ...Option) (*Generator, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: nil device", ErrDeviceUnavailable)
	}
	g := &Generator{
		device: device,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}

	if err := settings.Validate(dims); err != nil {
		return nil, err
	}
	if err := g.resize(dims); err != nil {
		return nil, err
	}
	if err := g.adopt(settings); err != nil {
		g.releaseAll()
		return nil, err
	}
	g.logger.Debug("terrain generator ready",
		"device", device.Name(),
		"vertices", g.grid.Count(),
		"columns", g.grid.Columns,
		"rows", g.grid.Rows)
	return g, nil
}

// resize allocates the height buffer for dims. Callers hold the run lock or own g exclusively.
func (g *Generator) resize(dims config.MapDimensions) error {
	grid, err := dims.Grid()
	if err != nil {
		return err
	}
	heights, err := g.device.NewBuffer("height map", grid.Count(), compute.UsageStorage)
	if err != nil {
		return fmt.Errorf("allocate height map: %w", err)
	}

	g.mu.Lock()
	old, oldRead := g.heights, g.readback
	g.dims = dims
	g.grid = grid
	g.heights = heights
	g.readback = nil
	g.generated = false
	g.state = StateIdle
	g.mu.Unlock()

	if old != nil {
		g.device.Release(old)
	}
	if oldRead != nil {
		g.device.Release(oldRead)
	}
	return nil
}

// adopt makes settings current and grows the gradient buffer to fit its largest layer.
func (g *Generator) adopt(settings config.PerlinSettings) error {
	policy, err := settings.OverscanPolicy()
	if err != nil {
		return err
	}
	g.mu.RLock()
	grid, grads := g.grid, g.gradients
	g.mu.RUnlock()

	need, err := gradientCapacity(grid, settings)
	if err != nil {
		return err
	}
	if grads == nil || grads.Len() < need {
		next, err := g.device.NewBuffer("gradients", need, compute.UsageStorage)
		if err != nil {
			return fmt.Errorf("allocate gradient buffer: %w", err)
		}
		if grads != nil {
			g.device.Release(grads)
		}
		grads = next
	}

	g.mu.Lock()
	g.settings = settings
	g.policy = policy
	g.gradients = grads
	g.mu.Unlock()
	return nil
}

// ChangeSettings replaces the settings used by the next run.
func (g *Generator) ChangeSettings(settings config.PerlinSettings) error {
	if !g.run.TryLock() {
		return ErrRunInFlight
	}
	defer g.run.Unlock()
	if err := g.checkOpen(); err != nil {
		return err
	}

	if err := settings.Validate(g.Dimensions()); err != nil {
		return err
	}
	return g.adopt(settings)
}

// ChangeDimensions reallocates the height buffer for a new map size.
// The current settings must stay valid for the new dimensions.
func (g *Generator) ChangeDimensions(dims config.MapDimensions) error {
	if !g.run.TryLock() {
		return ErrRunInFlight
	}
	defer g.run.Unlock()
	if err := g.checkOpen(); err != nil {
		return err
	}

	settings := g.Settings()
	if err := settings.Validate(dims); err != nil {
		return err
	}
	if err := g.resize(dims); err != nil {
		return err
	}
	return g.adopt(settings)
}

func (g *Generator) checkOpen() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return fmt.Errorf("%w: generator closed", ErrDeviceUnavailable)
	}
	return nil
}

func (g *Generator) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Run generates every layer of the current settings into the height map.
// The map is fully overwritten. When EmitReadableMap is set the heights are also
// copied back to the host and returned; otherwise Run returns once all work is queued.
func (g *Generator) Run(ctx context.Context) (HeightMap, []float32, error) {
	if !g.run.TryLock() {
		return HeightMap{}, nil, ErrRunInFlight
	}
	defer g.run.Unlock()
	if err := g.checkOpen(); err != nil {
		return HeightMap{}, nil, err
	}
	defer profiling.Track("terrain.Run")()

	g.mu.Lock()
	g.generated = false
	settings, grid, policy := g.settings, g.grid, g.policy
	heights, grads := g.heights, g.gradients
	g.mu.Unlock()

	start := time.Now()
	g.logger.Info("terrain run started",
		"seed", settings.Seed,
		"layers", settings.Layers,
		"overscan", policy.String(),
		"device", g.device.Name())

	for i := 0; i < settings.Layers; i++ {
		if err := ctx.Err(); err != nil {
			return HeightMap{}, nil, g.fail(err)
		}
		if err := g.runLayer(i, settings, grid, policy, heights, grads); err != nil {
			return HeightMap{}, nil, g.fail(err)
		}
	}

	var host []float32
	if settings.EmitReadableMap {
		var err error
		host, err = g.readBack(ctx, grid, heights)
		if err != nil {
			return HeightMap{}, nil, g.fail(err)
		}
	}

	g.mu.Lock()
	g.state = StateDone
	g.generated = true
	g.mu.Unlock()

	g.logger.Info("terrain run finished",
		"duration", time.Since(start),
		"readback", settings.EmitReadableMap)
	return g.view(grid, heights), host, nil
}

func (g *Generator) runLayer(i int, settings config.PerlinSettings, grid noise.VertexGrid, policy noise.OverscanPolicy, heights, grads compute.Buffer) error {
	g.setState(StateLayerSetup)
	lc := newLayerContext(i, settings)

	g.setState(StateLatticeBuild)
	stop := profiling.Track("terrain.LatticeBuild")
	lc, err := lc.buildLattice(grid, policy, settings.Seed)
	stop()
	if err != nil {
		return err
	}
	g.logger.Debug("terrain layer",
		"layer", i,
		"amplitude", lc.amplitude,
		"granularity", lc.granularity,
		"cell_side", lc.lattice.CellSide,
		"cells", fmt.Sprintf("%dx%d", lc.lattice.WidthCells, lc.lattice.HeightCells))

	batch := compute.NewBatch(fmt.Sprintf("layer %d", i))
	if i == 0 {
		batch.Clear(heights)
	}

	g.setState(StateGradientFill)
	batch.Dispatch(lc.gradientFill(grads))

	g.setState(StateVertexEvaluate)
	batch.Dispatch(lc.vertexEvaluate(grads, heights))

	defer profiling.Track("terrain.Submit")()
	if err := g.device.Submit(batch); err != nil {
		return fmt.Errorf("submit layer %d: %w", i, err)
	}
	return nil
}

func (g *Generator) readBack(ctx context.Context, grid noise.VertexGrid, heights compute.Buffer) ([]float32, error) {
	defer profiling.Track("terrain.Readback")()

	g.mu.RLock()
	rb := g.readback
	g.mu.RUnlock()
	if rb == nil {
		var err error
		rb, err = g.device.NewBuffer("height map readback", grid.Count(), compute.UsageReadback)
		if err != nil {
			return nil, fmt.Errorf("allocate readback buffer: %w", err)
		}
		g.mu.Lock()
		g.readback = rb
		g.mu.Unlock()
	}

	if err := g.device.Submit(compute.NewBatch("readback").Copy(heights, rb)); err != nil {
		return nil, fmt.Errorf("submit readback: %w", err)
	}
	host := make([]float32, grid.Count())
	if err := g.device.Read(ctx, rb, host); err != nil {
		return nil, fmt.Errorf("read height map: %w", err)
	}
	return host, nil
}

func (g *Generator) fail(err error) error {
	g.mu.Lock()
	g.state = StateFailed
	g.generated = false
	g.mu.Unlock()
	g.logger.Error("terrain run failed", "error", err)
	return err
}

func (g *Generator) view(grid noise.VertexGrid, heights compute.Buffer) HeightMap {
	return HeightMap{Columns: grid.Columns, Rows: grid.Rows, Side: grid.Side, Buffer: heights}
}

// HeightMap returns the map of the last successful run.
func (g *Generator) HeightMap() (HeightMap, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.generated {
		return HeightMap{}, ErrNotGenerated
	}
	return g.view(g.grid, g.heights), nil
}

// Wait blocks until the device has finished all queued layers and reports kernel faults.
func (g *Generator) Wait(ctx context.Context) error {
	if err := g.device.Wait(ctx); err != nil {
		if errors.Is(err, ErrOutOfBoundsLattice) {
			g.fail(err)
		}
		return err
	}
	return nil
}

// FullAmplitude returns the sum of the layer amplitudes used to scale colors and place the
// camera. It stops one layer short of Layers, matching the existing renderer's color ramp.
func (g *Generator) FullAmplitude() float64 {
	return FullAmplitude(g.Settings())
}

// FullAmplitudeAllLayers returns the sum of every layer amplitude, the true bound of |height|/(sqrt(2)/2).
func (g *Generator) FullAmplitudeAllLayers() float64 {
	return FullAmplitudeAllLayers(g.Settings())
}

// FullAmplitude sums InitialAmplitude*AmplitudeRatio^i for i in [0, Layers-2].
func FullAmplitude(s config.PerlinSettings) float64 {
	total := 0.0
	for i := 0; i < s.Layers-1; i++ {
		total += s.LayerAmplitude(i)
	}
	return total
}

// FullAmplitudeAllLayers sums InitialAmplitude*AmplitudeRatio^i for i in [0, Layers-1].
func FullAmplitudeAllLayers(s config.PerlinSettings) float64 {
	total := 0.0
	for i := 0; i < s.Layers; i++ {
		total += s.LayerAmplitude(i)
	}
	return total
}

// State returns the current stage.
func (g *Generator) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Settings returns the settings of the next run.
func (g *Generator) Settings() config.PerlinSettings {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings
}

// Dimensions returns the map dimensions.
func (g *Generator) Dimensions() config.MapDimensions {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dims
}

// Grid returns the vertex grid of the current dimensions.
func (g *Generator) Grid() noise.VertexGrid {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.grid
}

// Device returns the device the generator dispatches to.
func (g *Generator) Device() compute.Device {
	return g.device
}

// Close releases the generator's buffers. The device stays open.
func (g *Generator) Close() error {
	g.run.Lock()
	defer g.run.Unlock()
	g.releaseAll()
	return nil
}

func (g *Generator) releaseAll() {
	g.mu.Lock()
	bufs := []compute.Buffer{g.heights, g.readback, g.gradients}
	g.heights, g.readback, g.gradients = nil, nil, nil
	g.generated = false
	g.closed = true
	g.mu.Unlock()
	for _, b := range bufs {
		if b != nil {
			g.device.Release(b)
		}
	}
}
