// Command terrain generates a Perlin height map headlessly and exports it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/xlab/closer"

	"perlin-terrain/internal/config"
	"perlin-terrain/internal/heightmap"
	"perlin-terrain/internal/noise"
	"perlin-terrain/internal/profiling"
	"perlin-terrain/internal/terrain"
)

// GL contexts are per-thread; keep main on the thread that creates them.
func init() {
	runtime.LockOSThread()
}

type options struct {
	configSrc string
	fetchDir  string
	out       string
	raw       string
	scale     int
	caption   bool
	probe     bool
	verbose   bool
}

func main() {
	cfg := config.DefaultFile()
	var opts options
	seed := uint64(cfg.Perlin.Seed)

	flag.StringVar(&opts.configSrc, "config", "", "settings file path or go-getter URL (http, s3, git::...)")
	flag.StringVar(&opts.fetchDir, "fetch-dir", filepath.Join(os.TempDir(), "perlin-terrain"), "download directory for remote settings")
	flag.IntVar(&cfg.Map.LengthInSections, "length", cfg.Map.LengthInSections, "map length in triangle sections")
	flag.IntVar(&cfg.Map.HeightInSections, "height", cfg.Map.HeightInSections, "map height in triangle sections")
	flag.Float64Var(&cfg.Map.TriangleSideLength, "side", cfg.Map.TriangleSideLength, "triangle side length")
	flag.Uint64Var(&seed, "seed", seed, "noise seed")
	flag.Float64Var(&cfg.Perlin.InitialAmplitude, "amplitude", cfg.Perlin.InitialAmplitude, "amplitude of the first layer")
	flag.Float64Var(&cfg.Perlin.InitialGranularity, "granularity", cfg.Perlin.InitialGranularity, "lattice cell size of the first layer, in triangle sides")
	flag.IntVar(&cfg.Perlin.Layers, "layers", cfg.Perlin.Layers, "number of octaves")
	flag.Float64Var(&cfg.Perlin.GranularityRatio, "granularity-ratio", cfg.Perlin.GranularityRatio, "granularity multiplier per layer")
	flag.Float64Var(&cfg.Perlin.AmplitudeRatio, "amplitude-ratio", cfg.Perlin.AmplitudeRatio, "amplitude multiplier per layer")
	flag.StringVar(&cfg.Perlin.Overscan, "overscan", "source", "lattice sizing policy: source or strict")
	flag.StringVar(&cfg.Device, "device", cfg.Device, "compute device: cpu, gl or auto")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "cpu device workers (0 = GOMAXPROCS)")
	flag.StringVar(&opts.out, "out", "", "write a color image (.png, .tif or .tiff)")
	flag.StringVar(&opts.raw, "raw", "", "write heights as little-endian float32")
	flag.IntVar(&opts.scale, "scale", 1, "image upscale factor")
	flag.BoolVar(&opts.caption, "caption", false, "print the settings onto the image")
	flag.BoolVar(&opts.probe, "probe", false, "list Vulkan compute adapters and exit")
	flag.BoolVar(&opts.verbose, "verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if seed > math.MaxUint32 {
		closer.Fatalln(fmt.Errorf("%w: seed %d does not fit in 32 bits", noise.ErrInvalidConfiguration, seed))
	}
	cfg.Perlin.Seed = uint32(seed)

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	ctx, cancel := context.WithCancel(context.Background())
	closer.Bind(cancel)

	if opts.probe {
		if err := printProbe(os.Stdout, probeVulkan); err != nil {
			closer.Fatalln(err)
		}
		closer.Close()
	}
	if err := run(ctx, &cfg, explicit, opts, logger); err != nil {
		closer.Fatalln(err)
	}
	closer.Close()
}

// run loads settings, generates one map and exports it.
func run(ctx context.Context, cfg *config.File, explicit map[string]bool, opts options, logger *slog.Logger) error {
	if opts.configSrc != "" {
		fromFile, err := config.LoadFrom(ctx, opts.configSrc, opts.fetchDir)
		if err != nil {
			return err
		}
		config.Merge(cfg, fromFile, explicit)
		logger.Debug("settings loaded", "source", opts.configSrc)
	}
	if opts.out != "" || opts.raw != "" {
		cfg.Perlin.EmitReadableMap = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dev, err := openDevice(cfg.Device, cfg.Workers, logger, probeVulkan)
	if err != nil {
		return err
	}
	defer dev.Close()

	gen, err := terrain.New(dev, cfg.Map, cfg.Perlin, terrain.WithLogger(logger))
	if err != nil {
		return err
	}
	defer gen.Close()

	hm, heights, err := gen.Run(ctx)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if heights == nil {
		// nothing to export; still surface kernel faults
		if err := gen.Wait(ctx); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
	}
	logger.Info("height map ready",
		"columns", hm.Columns,
		"rows", hm.Rows,
		"full_amplitude", gen.FullAmplitude(),
		"settings", cfg.Perlin.String())

	if heights != nil {
		stats := heightmap.ComputeStats(heights)
		logger.Info("height statistics", "min", stats.Min, "max", stats.Max, "mean", stats.Mean)
		if err := export(heights, gen, cfg.Perlin, opts, logger); err != nil {
			return err
		}
	}
	logger.Debug("profile", "top", profiling.TopN(5))
	return nil
}

func export(heights []float32, gen *terrain.Generator, s config.PerlinSettings, opts options, logger *slog.Logger) error {
	if opts.out != "" {
		ro := heightmap.RenderOptions{
			FullAmplitude: gen.FullAmplitude(),
			Scale:         opts.scale,
		}
		if opts.caption {
			ro.Caption = fmt.Sprintf("seed %d  layers %d  amplitude %g", s.Seed, s.Layers, s.InitialAmplitude)
		}
		img, err := heightmap.Render(heights, gen.Grid(), ro)
		if err != nil {
			return err
		}
		if err := heightmap.WriteImage(opts.out, img); err != nil {
			return err
		}
		logger.Info("image written", "path", opts.out, "format", heightmap.FormatFromPath(opts.out))
	}
	if opts.raw != "" {
		if err := heightmap.WriteRawFile(opts.raw, heights); err != nil {
			return err
		}
		logger.Info("raw heights written", "path", opts.raw, "values", len(heights))
	}
	return nil
}

func printProbe(w io.Writer, probe func() (vkReport, error)) error {
	report, err := probe()
	if err != nil {
		return err
	}
	if len(report.Devices) == 0 {
		fmt.Fprintln(w, "no Vulkan devices")
		return nil
	}
	for _, d := range report.Devices {
		fmt.Fprintf(w, "%s\t%s\tapi %s\tcompute queues %d\tmax invocations %d\n",
			d.Name, d.Type, d.APIVersion, d.ComputeQueueFamilies, d.MaxWorkgroupInvocations)
	}
	return nil
}
