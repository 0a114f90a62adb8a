package hud

import (
	"strings"
	"testing"
	"time"

	"perlin-terrain/internal/config"
	"perlin-terrain/internal/profiling"
	"perlin-terrain/internal/terrain"
)

func TestStatusLines(t *testing.T) {
	lines := statusLines(Status{
		Map:           config.DefaultDimensions(),
		Perlin:        config.DefaultPerlinSettings(),
		State:         terrain.StateDone,
		Device:        "gl(test)",
		FullAmplitude: 992,
		LastRun:       3 * time.Millisecond,
		FPS:           60,
	})
	text := strings.Join(lines, "\n")
	for _, want := range []string{"seed 1", "layers 6", "amplitude 512", "overscan source", "full amplitude 992.0", "gl(test)", "60 fps"} {
		if !strings.Contains(text, want) {
			t.Errorf("status missing %q:\n%s", want, text)
		}
	}
	for _, l := range lines {
		for _, r := range l {
			if r < 32 || r > 126 {
				t.Errorf("line %q has %q outside the baked glyph range", l, r)
			}
		}
	}
}

func TestProfileLines(t *testing.T) {
	if got := profileLines(nil, 5); len(got) != 1 {
		t.Errorf("empty profile gave %v", got)
	}
	stages := []profiling.Stage{
		{Name: "terrain.Run", Total: 12 * time.Millisecond, Calls: 2},
		{Name: "cpu.Dispatch", Total: 8 * time.Millisecond, Calls: 4},
		{Name: "terrain.Readback", Total: time.Millisecond, Calls: 1},
	}
	got := profileLines(stages, 2)
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if !strings.Contains(got[0], "terrain.Run") || !strings.Contains(got[0], "12.00ms") || !strings.Contains(got[0], "x2") {
		t.Errorf("first line %q", got[0])
	}
}
