// Package terrain draws a generated height map straight from its device buffer.
//
// The vertex shader reads heights from the storage buffer the compute device wrote, so a
// regenerated map is visible without a CPU round trip. Only GL device buffers can be drawn.
package terrain

import (
	_ "embed"
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"perlin-terrain/internal/compute/glcompute"
	"perlin-terrain/internal/graphics"
	renderer "perlin-terrain/internal/graphics/renderer"
	"perlin-terrain/internal/heightmap"
	"perlin-terrain/internal/noise"
	"perlin-terrain/internal/profiling"
	gen "perlin-terrain/internal/terrain"
)

// MaxStops is the number of ramp stops the fragment shader accepts.
const MaxStops = 8

// heightsBinding matches the storage binding in terrain.vert.
const heightsBinding = 1

var (
	//go:embed shaders/terrain.vert
	vertexSource string
	//go:embed shaders/terrain.frag
	fragmentSource string
)

// Terrain implements renderer.Renderable for one height map
type Terrain struct {
	shader *graphics.Shader
	vao    uint32
	ebo    uint32

	grid          noise.VertexGrid
	indexCount    int32
	heights       uint32
	fullAmplitude float32

	stops  []float32
	colors []mgl32.Vec4
}

// NewTerrain creates a terrain renderable using ramp for coloring
func NewTerrain(ramp heightmap.Ramp) *Terrain {
	if len(ramp) == 0 {
		ramp = heightmap.DefaultRamp()
	}
	stops, colors := rampUniforms(ramp)
	return &Terrain{stops: stops, colors: colors}
}

// Init compiles the shader and creates the vertex array and index buffer
func (t *Terrain) Init() error {
	var err error
	t.shader, err = graphics.NewShader(vertexSource, fragmentSource)
	if err != nil {
		return fmt.Errorf("terrain shader: %w", err)
	}

	// core profile needs a bound VAO even though positions come from gl_VertexID
	gl.GenVertexArrays(1, &t.vao)
	gl.GenBuffers(1, &t.ebo)
	return nil
}

// SetHeightMap points the renderer at a generated map. The index buffer is rebuilt only
// when the grid changes.
func (t *Terrain) SetHeightMap(hm gen.HeightMap, fullAmplitude float64) error {
	id, ok := glcompute.BufferID(hm.Buffer)
	if !ok {
		return fmt.Errorf("height map buffer %q is not a GL buffer", hm.Buffer.Label())
	}
	t.heights = id
	t.fullAmplitude = float32(fullAmplitude)

	grid := hm.Grid()
	if grid == t.grid && t.indexCount > 0 {
		return nil
	}
	defer profiling.Track("terrain.UploadIndices")()

	indices := grid.TriangleIndices()
	gl.BindVertexArray(t.vao)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, t.ebo)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	} else {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, 0, nil, gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)

	t.grid = grid
	t.indexCount = int32(len(indices))
	return nil
}

// Render draws the mesh
func (t *Terrain) Render(ctx renderer.RenderContext) {
	if t.indexCount == 0 || t.heights == 0 {
		return
	}
	t.shader.Use()
	t.shader.SetMatrix4("proj", &ctx.Proj[0])
	t.shader.SetMatrix4("view", &ctx.View[0])
	t.shader.SetUint("columns", uint32(t.grid.Columns))
	t.shader.SetFloat("side", t.grid.Side)
	t.shader.SetFloat("fullAmplitude", t.fullAmplitude)
	t.shader.SetInt("stopCount", int32(len(t.stops)))
	t.shader.SetFloats("stops", t.stops)
	t.shader.SetVector4s("colors", t.colors)

	light := mgl32.Vec3{0.3, 1.0, 0.3}.Normalize()
	t.shader.SetVector3("lightDir", light.X(), light.Y(), light.Z())

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, heightsBinding, t.heights)
	gl.BindVertexArray(t.vao)
	gl.DrawElements(gl.TRIANGLES, t.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// SetViewport is a no-op; the projection lives in the camera
func (t *Terrain) SetViewport(width, height int) {}

// Dispose cleans up OpenGL resources. The height buffer belongs to the compute device.
func (t *Terrain) Dispose() {
	if t.shader != nil {
		t.shader.Delete()
	}
	if t.vao != 0 {
		gl.DeleteVertexArrays(1, &t.vao)
	}
	if t.ebo != 0 {
		gl.DeleteBuffers(1, &t.ebo)
	}
	t.heights = 0
	t.indexCount = 0
}

// rampUniforms flattens a ramp into the shader's stop and color arrays, keeping at most
// MaxStops stops in ascending order.
func rampUniforms(r heightmap.Ramp) ([]float32, []mgl32.Vec4) {
	r = r.Sorted()
	if len(r) > MaxStops {
		r = r[:MaxStops]
	}
	stops := make([]float32, len(r))
	colors := make([]mgl32.Vec4, len(r))
	for i, s := range r {
		stops[i] = s.At
		colors[i] = mgl32.Vec4{
			float32(s.Color.R) / 255,
			float32(s.Color.G) / 255,
			float32(s.Color.B) / 255,
			float32(s.Color.A) / 255,
		}
	}
	return stops, colors
}
