package noise

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Hash32 mixes a 32-bit value with a murmur-style finalizer.
// The same arithmetic runs in the GLSL gradient kernel, so keep it to uint32 ops.
func Hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// Hash2 returns a stable hash for a lattice corner and seed.
func Hash2(seed uint32, x, y uint32) uint32 {
	h := seed
	h ^= x * 0x9e3779b1
	h ^= y * 0x85ebca6b
	return Hash32(h)
}

// Gradient returns the unit gradient vector at lattice corner (col, row).
func Gradient(seed uint32, col, row int) mgl32.Vec2 {
	h := Hash2(seed, uint32(col), uint32(row))
	angle := float64(h) / 4294967296.0 * 2 * math.Pi
	s, c := math.Sincos(angle)
	return mgl32.Vec2{float32(c), float32(s)}
}

// FillGradients writes the gradients of rows [rowLo, rowHi) into dst as interleaved x,y pairs.
func FillGradients(dst []float32, l Lattice, seed uint32, rowLo, rowHi int) {
	cols := l.Columns()
	for row := rowLo; row < rowHi; row++ {
		for col := 0; col < cols; col++ {
			g := Gradient(seed, col, row)
			i := 2 * l.Index(col, row)
			dst[i] = g.X()
			dst[i+1] = g.Y()
		}
	}
}
