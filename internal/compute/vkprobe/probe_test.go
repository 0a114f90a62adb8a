package vkprobe

import "testing"

func TestFormatVersion(t *testing.T) {
	cases := []struct {
		v    uint32
		want string
	}{
		{apiVersion10, "1.0.0"},
		{1<<22 | 3<<12 | 231, "1.3.231"},
		{0, "0.0.0"},
	}
	for _, c := range cases {
		if got := formatVersion(c.v); got != c.want {
			t.Errorf("formatVersion(%#x) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "llvmpipe")
	if got := cString(name[:]); got != "llvmpipe" {
		t.Errorf("cString = %q, want llvmpipe", got)
	}
	if got := cString([]byte("full")); got != "full" {
		t.Errorf("cString without terminator = %q", got)
	}
}

func TestReportHasGPUCompute(t *testing.T) {
	cpuOnly := Report{Devices: []PhysicalDevice{{Name: "llvmpipe", Type: "cpu", ComputeQueueFamilies: 1}}}
	if cpuOnly.HasGPUCompute() {
		t.Error("software rasterizer should not count as GPU compute")
	}
	noQueues := Report{Devices: []PhysicalDevice{{Name: "odd", Type: "discrete"}}}
	if noQueues.HasGPUCompute() {
		t.Error("device without compute queues should not count")
	}
	gpu := Report{Devices: []PhysicalDevice{
		{Name: "llvmpipe", Type: "cpu", ComputeQueueFamilies: 1},
		{Name: "card", Type: "discrete", ComputeQueueFamilies: 2},
	}}
	if !gpu.HasGPUCompute() {
		t.Error("discrete GPU with compute queues should count")
	}
}
