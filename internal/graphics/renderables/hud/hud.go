// Package hud draws the viewer's text overlay: current settings, generation state and
// optionally the slowest profiled stages.
package hud

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/font/gofont/gomono"

	"perlin-terrain/internal/config"
	"perlin-terrain/internal/graphics"
	renderer "perlin-terrain/internal/graphics/renderer"
	"perlin-terrain/internal/profiling"
	"perlin-terrain/internal/terrain"
)

const (
	fontPixels = 16
	lineStep   = 20
	margin     = 12
	// stages listed by the profiling panel
	profileRows = 5
)

// Status is what the overlay reports about the current map.
type Status struct {
	Map           config.MapDimensions
	Perlin        config.PerlinSettings
	State         terrain.State
	Device        string
	FullAmplitude float64
	LastRun       time.Duration
	FPS           int
}

// HUD implements renderer.Renderable for the text overlay
type HUD struct {
	font          *graphics.FontRenderer
	width, height int
	status        Status
	showProfiling bool
}

// NewHUD creates a new HUD renderable
func NewHUD(width, height int) *HUD {
	return &HUD{width: width, height: height}
}

// Init bakes the font atlas and creates the text renderer
func (h *HUD) Init() error {
	atlas, err := graphics.BakeFontAtlas(gomono.TTF, fontPixels)
	if err != nil {
		return err
	}
	h.font, err = graphics.NewFontRenderer(atlas, h.width, h.height)
	return err
}

// SetStatus replaces the reported status
func (h *HUD) SetStatus(s Status) {
	h.status = s
}

// ToggleProfiling shows or hides the profiling panel
func (h *HUD) ToggleProfiling() bool {
	h.showProfiling = !h.showProfiling
	return h.showProfiling
}

// Render draws the overlay on top of the scene
func (h *HUD) Render(ctx renderer.RenderContext) {
	lines := statusLines(h.status)
	if h.showProfiling {
		lines = append(lines, "")
		lines = append(lines, profileLines(profiling.Snapshot(), profileRows)...)
	}
	y := float32(margin + fontPixels)
	// drop shadow, then text
	h.font.RenderLines(lines, margin+1, y+1, lineStep, 1, mgl32.Vec3{0, 0, 0})
	h.font.RenderLines(lines, margin, y, lineStep, 1, mgl32.Vec3{1, 1, 1})
}

// SetViewport keeps the text projection in pixels
func (h *HUD) SetViewport(width, height int) {
	h.width, h.height = width, height
	if h.font != nil {
		h.font.SetViewport(width, height)
	}
}

// Dispose cleans up OpenGL resources
func (h *HUD) Dispose() {
	if h.font != nil {
		h.font.Dispose()
	}
}

func statusLines(s Status) []string {
	p := s.Perlin
	overscan := p.Overscan
	if overscan == "" {
		overscan = "source"
	}
	return []string{
		fmt.Sprintf("seed %d   layers %d   amplitude %g   granularity %g", p.Seed, p.Layers, p.InitialAmplitude, p.InitialGranularity),
		fmt.Sprintf("ratios amp %g gran %g   overscan %s", p.AmplitudeRatio, p.GranularityRatio, overscan),
		fmt.Sprintf("map %dx%d sections, side %g   full amplitude %.1f", s.Map.LengthInSections, s.Map.HeightInSections, s.Map.TriangleSideLength, s.FullAmplitude),
		fmt.Sprintf("%s   %s in %s   %d fps", s.Device, s.State, s.LastRun.Round(time.Microsecond), s.FPS),
		"N/B seed  ]/[ layers  =/- amplitude  F wireframe  V profile  RMB look",
	}
}

func profileLines(stages []profiling.Stage, n int) []string {
	if len(stages) == 0 {
		return []string{"no profiled stages"}
	}
	if len(stages) > n {
		stages = stages[:n]
	}
	out := make([]string, 0, len(stages))
	for _, s := range stages {
		ms := float64(s.Total.Microseconds()) / 1000
		out = append(out, fmt.Sprintf("%-24s %9.2fms  x%d", s.Name, ms, s.Calls))
	}
	return out
}
