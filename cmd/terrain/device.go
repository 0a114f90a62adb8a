package main

import (
	"fmt"
	"log/slog"

	"perlin-terrain/internal/compute"
	"perlin-terrain/internal/compute/cpu"
	"perlin-terrain/internal/compute/glcompute"
	"perlin-terrain/internal/compute/vkprobe"
	"perlin-terrain/internal/noise"
)

type vkReport = vkprobe.Report

func probeVulkan() (vkReport, error) {
	return vkprobe.Probe()
}

// openDevice builds the requested compute device. "auto" uses the GL device when Vulkan
// reports a GPU with compute queues and falls back to the CPU otherwise.
func openDevice(kind string, workers int, logger *slog.Logger, probe func() (vkReport, error)) (compute.Device, error) {
	switch kind {
	case "", "cpu":
		return cpu.New(workers, cpu.WithLogger(logger)), nil
	case "gl":
		return glcompute.NewHeadless(glcompute.WithLogger(logger))
	case "auto":
		report, err := probe()
		if err != nil {
			logger.Info("no GPU probe, using cpu", "error", err)
			return cpu.New(workers, cpu.WithLogger(logger)), nil
		}
		if !report.HasGPUCompute() {
			logger.Info("no GPU compute adapter, using cpu", "adapters", len(report.Devices))
			return cpu.New(workers, cpu.WithLogger(logger)), nil
		}
		dev, err := glcompute.NewHeadless(glcompute.WithLogger(logger))
		if err != nil {
			logger.Warn("gl device failed, using cpu", "error", err)
			return cpu.New(workers, cpu.WithLogger(logger)), nil
		}
		return dev, nil
	default:
		return nil, fmt.Errorf("%w: unknown device %q", noise.ErrInvalidConfiguration, kind)
	}
}
