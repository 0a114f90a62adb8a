package glcompute

import (
	"strings"
	"testing"

	"perlin-terrain/internal/compute"
)

func TestKernelSourceSplicesHelpers(t *testing.T) {
	for k := range kernelSources {
		src, err := kernelSource(k)
		if err != nil {
			t.Fatalf("kernelSource(%s): %v", k, err)
		}
		if !strings.HasPrefix(src, "#version 430") {
			t.Errorf("%s: source must start with the version directive", k)
		}
		if strings.Contains(src, includeDirective) {
			t.Errorf("%s: include directive left in source", k)
		}
		if !strings.Contains(src, "uint hash2(") {
			t.Errorf("%s: shared helpers missing", k)
		}
	}
}

func TestKernelSourceUniformsMatchParams(t *testing.T) {
	want := map[compute.Kernel][]string{
		compute.KernelGradientFill: {"latticeColumns", "latticeRows", "seed"},
		compute.KernelVertexEvaluate: {
			"vertexColumns", "vertexRows", "triangleSide",
			"latticeColumns", "latticeRows", "cellSide", "amplitude",
		},
	}
	for k, names := range want {
		src, err := kernelSource(k)
		if err != nil {
			t.Fatal(err)
		}
		for _, n := range names {
			if !strings.Contains(src, " "+n+";") {
				t.Errorf("%s: uniform %s not declared", k, n)
			}
		}
	}
}

func TestKernelSourceUnknownKernel(t *testing.T) {
	if _, err := kernelSource(compute.Kernel(99)); err == nil {
		t.Error("expected an error for an unknown kernel")
	}
}

func TestGroupsRoundsUp(t *testing.T) {
	cases := []struct{ n, want uint32 }{
		{1, 1}, {8, 1}, {9, 2}, {129, 17}, {0, 0},
	}
	for _, c := range cases {
		if got := groups(c.n); got != c.want {
			t.Errorf("groups(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}
