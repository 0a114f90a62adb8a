package main

import (
	"perlin-terrain/internal/config"
	"perlin-terrain/internal/input"
)

// applyHotkeys folds this frame's generation hotkeys into one settings update.
// Updates that would not validate are rejected whole and the settings stay as they were.
func applyHotkeys(im *input.InputManager, m *config.Manager) error {
	pressed := func(a input.Action) bool { return im.JustPressed(a) }
	return m.Update(func(s *config.Settings) {
		p := &s.Perlin
		if pressed(input.ActionNextSeed) {
			p.Seed++
		}
		if pressed(input.ActionPrevSeed) {
			p.Seed--
		}
		if pressed(input.ActionMoreLayers) {
			p.Layers++
		}
		if pressed(input.ActionFewerLayers) && p.Layers > 1 {
			p.Layers--
		}
		if pressed(input.ActionRaiseAmplitude) {
			p.InitialAmplitude *= 2
		}
		if pressed(input.ActionLowerAmplitude) {
			p.InitialAmplitude /= 2
		}
	})
}
