package renderer

import (
	"perlin-terrain/internal/graphics"
	"perlin-terrain/internal/profiling"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// Renderer orchestrates rendering via renderable features
type Renderer struct {
	renderables []Renderable
	camera      *graphics.Camera
	wireframe   bool
}

// NewRenderer creates a new renderer with the given renderables
func NewRenderer(camera *graphics.Camera, rs ...Renderable) (*Renderer, error) {
	gl.Enable(gl.DEPTH_TEST)

	renderer := &Renderer{
		renderables: rs,
		camera:      camera,
	}

	// Initialize all renderables
	for i, r := range rs {
		if err := r.Init(); err != nil {
			for _, done := range rs[:i] {
				done.Dispose()
			}
			return nil, err
		}
	}

	return renderer, nil
}

// Camera returns the camera the renderer draws through
func (r *Renderer) Camera() *graphics.Camera {
	return r.camera
}

// ToggleWireframe switches between filled and line polygon mode
func (r *Renderer) ToggleWireframe() bool {
	r.wireframe = !r.wireframe
	return r.wireframe
}

// Render executes the main render loop
func (r *Renderer) Render(dt float64) {
	gl.ClearColor(0.53, 0.81, 0.92, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if r.wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	ctx := RenderContext{
		Camera: r.camera,
		DT:     dt,
		View:   r.camera.GetViewMatrix(),
		Proj:   r.camera.GetProjectionMatrix(),
	}
	for _, rb := range r.renderables {
		func() {
			defer profiling.Track("renderer.Render")()
			rb.Render(ctx)
		}()
	}

	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
}

// SetViewport propagates a framebuffer resize
func (r *Renderer) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	r.camera.SetViewport(width, height)
	for _, rb := range r.renderables {
		rb.SetViewport(width, height)
	}
}

// Dispose releases every renderable
func (r *Renderer) Dispose() {
	for _, rb := range r.renderables {
		rb.Dispose()
	}
}
