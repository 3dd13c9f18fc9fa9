package planner

// State is a step of the generation state machine.
type State int

const (
	StateDrafting State = iota
	StateValidating
	StateAccepted
	StateRegenerating
	StateAutoFixing
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDrafting:
		return "drafting"
	case StateValidating:
		return "validating"
	case StateAccepted:
		return "accepted"
	case StateRegenerating:
		return "regenerating"
	case StateAutoFixing:
		return "autofixing"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the machine stops in this state.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateFailed
}
