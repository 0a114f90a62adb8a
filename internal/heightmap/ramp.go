package heightmap

import (
	"image/color"
	"sort"
)

// Stop pins a color to a normalized height in [-1, 1].
type Stop struct {
	At    float32
	Color color.RGBA
}

// Ramp maps normalized heights to colors by linear interpolation between stops.
type Ramp []Stop

// DefaultRamp runs from deep water through sand and grass to rock and snow.
func DefaultRamp() Ramp {
	return Ramp{
		{At: -1.0, Color: color.RGBA{10, 20, 90, 255}},
		{At: -0.25, Color: color.RGBA{30, 80, 170, 255}},
		{At: 0.0, Color: color.RGBA{210, 200, 140, 255}},
		{At: 0.1, Color: color.RGBA{70, 150, 60, 255}},
		{At: 0.45, Color: color.RGBA{40, 100, 40, 255}},
		{At: 0.7, Color: color.RGBA{120, 110, 100, 255}},
		{At: 1.0, Color: color.RGBA{250, 250, 250, 255}},
	}
}

// Sorted returns a copy of r ordered by At.
func (r Ramp) Sorted() Ramp {
	out := append(Ramp(nil), r...)
	sort.Slice(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

// At returns the color for normalized height t. r must be sorted and non-empty.
func (r Ramp) At(t float32) color.RGBA {
	if t <= r[0].At {
		return r[0].Color
	}
	last := r[len(r)-1]
	if t >= last.At {
		return last.Color
	}
	i := sort.Search(len(r), func(i int) bool { return r[i].At >= t })
	a, b := r[i-1], r[i]
	f := (t - a.At) / (b.At - a.At)
	return color.RGBA{
		R: mix(a.Color.R, b.Color.R, f),
		G: mix(a.Color.G, b.Color.G, f),
		B: mix(a.Color.B, b.Color.B, f),
		A: mix(a.Color.A, b.Color.A, f),
	}
}

func mix(a, b uint8, f float32) uint8 {
	return uint8(float32(a) + (float32(b)-float32(a))*f + 0.5)
}
