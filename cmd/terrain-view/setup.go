package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"perlin-terrain/internal/compute/glcompute"
	"perlin-terrain/internal/config"
	"perlin-terrain/internal/graphics"
	terrainview "perlin-terrain/internal/graphics/renderables/terrain"
	"perlin-terrain/internal/graphics/renderables/hud"
	renderer "perlin-terrain/internal/graphics/renderer"
	"perlin-terrain/internal/heightmap"
	"perlin-terrain/internal/input"
	"perlin-terrain/internal/terrain"
)

const (
	winWidth  = 1280
	winHeight = 800
)

func setupWindow() (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(winWidth, winHeight, "perlin-terrain", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create window (OpenGL 4.3 required): %w", err)
	}
	window.MakeContextCurrent()

	// the frame limiter paces the loop
	glfw.SwapInterval(0)
	return window, nil
}

// viewer holds all the initialized viewer components
type viewer struct {
	window   *glfw.Window
	device   *glcompute.Device
	gen      *terrain.Generator
	mesh     *terrainview.Terrain
	hud      *hud.HUD
	renderer *renderer.Renderer
	camera   *graphics.Camera
	input    *input.InputManager
	manager  *config.Manager
	limiter  *fpsLimiter
	logger   *slog.Logger

	framed  bool
	lastRun time.Duration
}

func setupViewer(s config.Settings, fps int, logger *slog.Logger) (*viewer, error) {
	window, err := setupWindow()
	if err != nil {
		return nil, err
	}

	// the compute device shares the window's context, so its buffers are drawable
	dev, err := glcompute.New(glcompute.WithLogger(logger))
	if err != nil {
		window.Destroy()
		return nil, err
	}

	gen, err := terrain.New(dev, s.Map, s.Perlin, terrain.WithLogger(logger))
	if err != nil {
		dev.Close()
		window.Destroy()
		return nil, err
	}

	camera := graphics.NewCamera(winWidth, winHeight)
	mesh := terrainview.NewTerrain(heightmap.DefaultRamp())
	overlay := hud.NewHUD(winWidth, winHeight)
	r, err := renderer.NewRenderer(camera, mesh, overlay)
	if err != nil {
		gen.Close()
		dev.Close()
		window.Destroy()
		return nil, err
	}

	v := &viewer{
		window:   window,
		device:   dev,
		gen:      gen,
		mesh:     mesh,
		hud:      overlay,
		renderer: r,
		camera:   camera,
		input:    input.NewInputManager(),
		manager:  config.NewManager(s),
		limiter:  newFPSLimiter(fps),
		logger:   logger,
	}
	v.setupInputHandlers()

	fbw, fbh := window.GetFramebufferSize()
	r.SetViewport(fbw, fbh)
	return v, nil
}

func (v *viewer) setupInputHandlers() {
	v.input.SetCallbacks(v.window)

	// mouse look while the look button is held
	v.window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if v.input.IsActive(input.ActionMouseLook) {
			v.camera.HandleMouseMovement(xpos, ypos)
		} else {
			v.camera.FirstMouse = true
		}
	})

	v.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		v.renderer.SetViewport(width, height)
	})
}

func (v *viewer) dispose() {
	v.renderer.Dispose()
	if err := v.gen.Close(); err != nil {
		v.logger.Warn("close generator", "error", err)
	}
	if err := v.device.Close(); err != nil {
		v.logger.Warn("close device", "error", err)
	}
	v.window.Destroy()
}
