package terrain

import (
	"image/color"
	"strings"
	"testing"

	"perlin-terrain/internal/heightmap"
)

func TestRampUniforms(t *testing.T) {
	r := heightmap.Ramp{
		{At: 1, Color: color.RGBA{255, 255, 255, 255}},
		{At: -1, Color: color.RGBA{0, 0, 255, 255}},
	}
	stops, colors := rampUniforms(r)
	if len(stops) != 2 || stops[0] != -1 || stops[1] != 1 {
		t.Fatalf("stops = %v, want [-1 1]", stops)
	}
	if colors[0].Z() != 1 || colors[0].X() != 0 || colors[1].W() != 1 {
		t.Errorf("colors = %v", colors)
	}
}

func TestRampUniformsTruncates(t *testing.T) {
	r := make(heightmap.Ramp, MaxStops+3)
	for i := range r {
		r[i] = heightmap.Stop{At: float32(i)}
	}
	stops, colors := rampUniforms(r)
	if len(stops) != MaxStops || len(colors) != MaxStops {
		t.Errorf("got %d stops and %d colors, want %d", len(stops), len(colors), MaxStops)
	}
	if len(heightmap.DefaultRamp()) > MaxStops {
		t.Errorf("default ramp has %d stops, shader takes %d", len(heightmap.DefaultRamp()), MaxStops)
	}
}

func TestShaderUniformsDeclared(t *testing.T) {
	for _, name := range []string{"proj", "view", "columns", "side", "fullAmplitude"} {
		if !strings.Contains(vertexSource, " "+name+";") {
			t.Errorf("vertex shader does not declare %q", name)
		}
	}
	for _, name := range []string{"stopCount", "lightDir"} {
		if !strings.Contains(fragmentSource, " "+name+";") {
			t.Errorf("fragment shader does not declare %q", name)
		}
	}
	if !strings.Contains(vertexSource, "binding = 1") {
		t.Error("vertex shader must read heights from storage binding 1")
	}
	if !strings.Contains(fragmentSource, "#define MAX_STOPS 8") {
		t.Error("fragment shader stop count out of sync with MaxStops")
	}
}
