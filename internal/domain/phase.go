package domain

// Phase is the dialogue session state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwake
	PhaseListeningForCommand
	PhaseProcessing
	PhaseResponding
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwake:
		return "awake"
	case PhaseListeningForCommand:
		return "listening_for_command"
	case PhaseProcessing:
		return "processing"
	case PhaseResponding:
		return "responding"
	default:
		return "unknown"
	}
}
