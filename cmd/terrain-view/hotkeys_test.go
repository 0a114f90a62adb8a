package main

import (
	"testing"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"perlin-terrain/internal/config"
	"perlin-terrain/internal/input"
)

func tap(im *input.InputManager, key glfw.Key) {
	im.HandleKeyEvent(key, glfw.Press)
	im.HandleKeyEvent(key, glfw.Release)
}

func testManager() *config.Manager {
	m := config.NewManager(config.Settings{
		Map:    config.MapDimensions{LengthInSections: 16, HeightInSections: 8, TriangleSideLength: 32},
		Perlin: config.DefaultPerlinSettings(),
	})
	m.ShouldRegenerate()
	return m
}

func TestHotkeysUpdateSettings(t *testing.T) {
	im := input.NewInputManager()
	m := testManager()
	before := m.Get().Perlin

	tap(im, glfw.KeyN)
	tap(im, glfw.KeyEqual)
	if err := applyHotkeys(im, m); err != nil {
		t.Fatal(err)
	}
	im.PostUpdate()

	after := m.Get().Perlin
	if after.Seed != before.Seed+1 {
		t.Errorf("seed = %d, want %d", after.Seed, before.Seed+1)
	}
	if after.InitialAmplitude != 2*before.InitialAmplitude {
		t.Errorf("amplitude = %v, want doubled", after.InitialAmplitude)
	}
	if !m.ShouldRegenerate() {
		t.Error("a hotkey change should request regeneration")
	}

	// no keys this frame
	if err := applyHotkeys(im, m); err != nil {
		t.Fatal(err)
	}
	if m.ShouldRegenerate() {
		t.Error("an idle frame should not request regeneration")
	}
}

func TestHotkeysLayerBounds(t *testing.T) {
	im := input.NewInputManager()
	m := testManager()
	if err := m.Update(func(s *config.Settings) { s.Perlin.Layers = 1 }); err != nil {
		t.Fatal(err)
	}
	m.ShouldRegenerate()

	tap(im, glfw.KeyLeftBracket)
	if err := applyHotkeys(im, m); err != nil {
		t.Fatal(err)
	}
	im.PostUpdate()
	if m.Get().Perlin.Layers != 1 {
		t.Errorf("layers dropped below 1: %d", m.Get().Perlin.Layers)
	}
	if m.ShouldRegenerate() {
		t.Error("a clamped change should not request regeneration")
	}

	// cell side 32*4*0.5^i stays >= 1 through layer index 7
	for i := 0; i < 7; i++ {
		tap(im, glfw.KeyRightBracket)
		if err := applyHotkeys(im, m); err != nil {
			t.Fatalf("layer %d: %v", i+2, err)
		}
		im.PostUpdate()
	}
	tap(im, glfw.KeyRightBracket)
	if err := applyHotkeys(im, m); err == nil {
		t.Error("a layer with a sub-unit lattice cell should be rejected")
	}
	if m.Get().Perlin.Layers != 8 {
		t.Errorf("layers = %d, want 8 after the rejected change", m.Get().Perlin.Layers)
	}
}

func TestSeedWraps(t *testing.T) {
	im := input.NewInputManager()
	m := testManager()
	_ = m.Update(func(s *config.Settings) { s.Perlin.Seed = 0 })

	tap(im, glfw.KeyB)
	if err := applyHotkeys(im, m); err != nil {
		t.Fatal(err)
	}
	if m.Get().Perlin.Seed != ^uint32(0) {
		t.Errorf("seed = %d, want wrap to max", m.Get().Perlin.Seed)
	}
}

func TestLimiter(t *testing.T) {
	unlimited := newFPSLimiter(0)
	start := time.Now()
	unlimited.Wait()
	if time.Since(start) > 50*time.Millisecond {
		t.Error("an uncapped limiter should not block")
	}

	l := newFPSLimiter(200)
	if l.target() != 5*time.Millisecond {
		t.Fatalf("target = %v, want 5ms", l.target())
	}
	start = time.Now()
	for i := 0; i < 4; i++ {
		l.Wait()
	}
	if el := time.Since(start); el < 19*time.Millisecond {
		t.Errorf("4 frames at 200 fps took %v, want at least 20ms", el)
	}
}
