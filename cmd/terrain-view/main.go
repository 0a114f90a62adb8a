// Command terrain-view renders Perlin terrain generated on the GPU and regenerates it from hotkeys.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"

	"perlin-terrain/internal/config"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configSrc := flag.String("config", "", "settings file path or go-getter URL")
	fetchDir := flag.String("fetch-dir", filepath.Join(os.TempDir(), "perlin-terrain"), "download directory for remote settings")
	fps := flag.Int("fps", 120, "frame rate cap (0 = uncapped)")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	closer.Bind(cancel)

	file := config.DefaultFile()
	if *configSrc != "" {
		loaded, err := config.LoadFrom(ctx, *configSrc, *fetchDir)
		if err != nil {
			closer.Fatalln(err)
		}
		file = *loaded
	}
	// heights stay on the GPU; the renderer reads them in place
	file.Perlin.EmitReadableMap = false

	if err := glfw.Init(); err != nil {
		closer.Fatalln(err)
	}

	v, err := setupViewer(file.Settings(), *fps, logger)
	if err != nil {
		glfw.Terminate()
		closer.Fatalln(err)
	}
	v.loop(ctx)
	v.dispose()
	glfw.Terminate()
	closer.Close()
}
