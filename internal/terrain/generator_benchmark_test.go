package terrain

import (
	"context"
	"testing"

	"perlin-terrain/internal/compute/cpu"
	"perlin-terrain/internal/config"
)

func BenchmarkRunDefaultMap(b *testing.B) {
	dev := cpu.New(0, cpu.WithLogger(quiet))
	defer dev.Close()
	s := config.DefaultPerlinSettings()
	s.EmitReadableMap = true
	g, err := New(dev, config.DefaultDimensions(), s, WithLogger(quiet))
	if err != nil {
		b.Fatal(err)
	}
	defer g.Close()

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := g.Run(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
