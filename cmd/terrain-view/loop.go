package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"perlin-terrain/internal/graphics"
	"perlin-terrain/internal/graphics/renderables/hud"
	"perlin-terrain/internal/input"
	"perlin-terrain/internal/profiling"
)

var moves = []struct {
	action input.Action
	dir    graphics.Direction
}{
	{input.ActionMoveForward, graphics.Forward},
	{input.ActionMoveBackward, graphics.Backward},
	{input.ActionMoveLeft, graphics.Left},
	{input.ActionMoveRight, graphics.Right},
	{input.ActionMoveUp, graphics.Up},
	{input.ActionMoveDown, graphics.Down},
}

func (v *viewer) loop(ctx context.Context) {
	frames := 0
	lastFPSCheckTime := time.Now()
	lastTime := time.Now()

	for !v.window.ShouldClose() && ctx.Err() == nil {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		func() { defer profiling.Track("glfw.PollEvents")(); glfw.PollEvents() }()
		v.handleInput(dt)
		v.input.PostUpdate()

		if v.manager.ShouldRegenerate() {
			if err := v.regenerate(ctx); err != nil {
				v.logger.Error("regenerate failed", "error", err)
			}
		}

		func() { defer profiling.Track("renderer.Frame")(); v.renderer.Render(dt) }()
		func() { defer profiling.Track("glfw.SwapBuffers")(); v.window.SwapBuffers() }()
		frames++

		if time.Since(lastFPSCheckTime) >= time.Second {
			s := v.manager.Get().Perlin
			v.window.SetTitle(fmt.Sprintf("perlin-terrain  seed %d  layers %d  amplitude %g  %d fps",
				s.Seed, s.Layers, s.InitialAmplitude, frames))
			v.hud.SetStatus(hud.Status{
				Map:           v.gen.Dimensions(),
				Perlin:        v.gen.Settings(),
				State:         v.gen.State(),
				Device:        v.device.Name(),
				FullAmplitude: v.gen.FullAmplitude(),
				LastRun:       v.lastRun,
				FPS:           frames,
			})
			profiling.Reset()
			frames = 0
			lastFPSCheckTime = time.Now()
		}

		if target := v.limiter.target(); target > 0 {
			if took := time.Since(now); took > 2*target {
				log.Printf("Frame took too long: %.2fms (target: %.2fms)",
					float64(took.Nanoseconds())/1e6, float64(target.Nanoseconds())/1e6)
			}
		}
		v.limiter.Wait()
	}
}

func (v *viewer) handleInput(dt float64) {
	if v.input.JustPressed(input.ActionQuit) {
		v.window.SetShouldClose(true)
		return
	}
	if v.input.JustPressed(input.ActionToggleWireframe) {
		v.renderer.ToggleWireframe()
	}
	if v.input.JustPressed(input.ActionToggleProfiling) {
		v.hud.ToggleProfiling()
	}
	for _, m := range moves {
		if v.input.IsActive(m.action) {
			v.camera.Move(m.dir, dt)
		}
	}
	if err := applyHotkeys(v.input, v.manager); err != nil {
		v.logger.Warn("settings change rejected", "error", err)
	}
}

// regenerate brings the generator in line with the manager and runs it. The renderer keeps
// drawing the previous map if anything fails.
func (v *viewer) regenerate(ctx context.Context) error {
	defer profiling.Track("viewer.Regenerate")()
	s := v.manager.Get()
	if s.Map != v.gen.Dimensions() {
		if err := v.gen.ChangeDimensions(s.Map); err != nil {
			return err
		}
		v.framed = false
	}
	if err := v.gen.ChangeSettings(s.Perlin); err != nil {
		return err
	}

	start := time.Now()
	hm, _, err := v.gen.Run(ctx)
	if err != nil {
		return err
	}
	if err := v.gen.Wait(ctx); err != nil {
		return err
	}
	v.lastRun = time.Since(start)
	v.logger.Info("terrain regenerated", "settings", s.Perlin.String(), "took", v.lastRun)

	full := v.gen.FullAmplitude()
	if err := v.mesh.SetHeightMap(hm, full); err != nil {
		return err
	}
	if !v.framed {
		v.camera.Frame(hm.Grid(), full)
		v.framed = true
	}
	return nil
}
