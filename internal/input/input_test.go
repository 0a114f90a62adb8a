package input

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestDefaultBindings(t *testing.T) {
	im := NewInputManager()
	cases := map[glfw.Key]Action{
		glfw.KeyW:            ActionMoveForward,
		glfw.KeySpace:        ActionMoveUp,
		glfw.KeyLeftShift:    ActionMoveDown,
		glfw.KeyN:            ActionNextSeed,
		glfw.KeyB:            ActionPrevSeed,
		glfw.KeyRightBracket: ActionMoreLayers,
		glfw.KeyLeftBracket:  ActionFewerLayers,
		glfw.KeyEqual:        ActionRaiseAmplitude,
		glfw.KeyMinus:        ActionLowerAmplitude,
		glfw.KeyF:            ActionToggleWireframe,
		glfw.KeyEscape:       ActionQuit,
	}
	for key, want := range cases {
		im.HandleKeyEvent(key, glfw.Press)
		if !im.JustPressed(want) {
			t.Errorf("key %v did not trigger %v", key, want)
		}
		im.HandleKeyEvent(key, glfw.Release)
		im.PostUpdate()
	}
}

func TestEdgeDetection(t *testing.T) {
	im := NewInputManager()

	im.HandleKeyEvent(glfw.KeyN, glfw.Press)
	if !im.JustPressed(ActionNextSeed) || !im.IsActive(ActionNextSeed) {
		t.Fatal("press should be active and just pressed")
	}
	im.PostUpdate()
	if im.JustPressed(ActionNextSeed) {
		t.Error("JustPressed should reset after PostUpdate")
	}
	im.HandleKeyEvent(glfw.KeyN, glfw.Repeat)
	if im.JustPressed(ActionNextSeed) {
		t.Error("key repeat should not count as a new press")
	}
	im.HandleKeyEvent(glfw.KeyN, glfw.Release)
	if !im.JustReleased(ActionNextSeed) || im.IsActive(ActionNextSeed) {
		t.Error("release should be recorded")
	}
}

func TestPressAndReleaseWithinOneFrame(t *testing.T) {
	im := NewInputManager()
	im.HandleKeyEvent(glfw.KeyF, glfw.Press)
	im.HandleKeyEvent(glfw.KeyF, glfw.Release)
	if !im.JustPressed(ActionToggleWireframe) {
		t.Error("a tap shorter than a frame should still register")
	}
}

func TestMouseAndUnbind(t *testing.T) {
	im := NewInputManager()
	im.HandleMouseButtonEvent(glfw.MouseButtonRight, glfw.Press)
	if !im.IsActive(ActionMouseLook) {
		t.Error("right mouse button should enable mouse look")
	}

	im.UnbindKey(glfw.KeyW)
	im.HandleKeyEvent(glfw.KeyW, glfw.Press)
	if im.IsActive(ActionMoveForward) {
		t.Error("unbound key should not trigger its old action")
	}
	im.BindKey(glfw.KeyW, ActionCount)
	im.HandleKeyEvent(glfw.KeyW, glfw.Press)
	if im.IsActive(ActionCount) {
		t.Error("out of range actions are ignored")
	}
}

func TestActionString(t *testing.T) {
	if ActionNextSeed.String() != "next-seed" || Action(-1).String() != "unknown" {
		t.Errorf("unexpected names %q %q", ActionNextSeed, Action(-1))
	}
	for a := Action(0); a < ActionCount; a++ {
		if a.String() == "" {
			t.Errorf("action %d has no name", int(a))
		}
	}
}
