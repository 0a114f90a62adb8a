// Package heightmap turns generated heights into images, raw dumps and summary statistics.
package heightmap

import (
	"fmt"
	"math"
)

// Stats summarizes a height map.
type Stats struct {
	Count int
	Min   float32
	Max   float32
	Mean  float64
}

// ComputeStats scans heights once. An empty slice yields the zero Stats.
func ComputeStats(heights []float32) Stats {
	if len(heights) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(heights), Min: heights[0], Max: heights[0]}
	var sum float64
	for _, h := range heights {
		s.Min = min(s.Min, h)
		s.Max = max(s.Max, h)
		sum += float64(h)
	}
	s.Mean = sum / float64(len(heights))
	return s
}

// MaxAbs returns the largest magnitude in the map.
func (s Stats) MaxAbs() float32 {
	return float32(math.Max(math.Abs(float64(s.Min)), math.Abs(float64(s.Max))))
}

func (s Stats) String() string {
	return fmt.Sprintf("n=%d min=%.3f max=%.3f mean=%.3f", s.Count, s.Min, s.Max, s.Mean)
}
