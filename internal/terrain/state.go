package terrain

import "fmt"

// State is the stage the generator is in.
type State uint8

const (
	StateIdle State = iota
	StateLayerSetup
	StateLatticeBuild
	StateGradientFill
	StateVertexEvaluate
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateLayerSetup:     "layer-setup",
	StateLatticeBuild:   "lattice-build",
	StateGradientFill:   "gradient-fill",
	StateVertexEvaluate: "vertex-evaluate",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Running reports whether s is one of the per-layer stages.
func (s State) Running() bool {
	return s >= StateLayerSetup && s <= StateVertexEvaluate
}
