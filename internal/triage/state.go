package triage

// State is a step of the run state machine.
type State int

const (
	StateFetching State = iota
	StateLoading
	StateClassifying
	StateCalendar
	StateDrafting
	StateRecording
	StateDigesting
	StateDone
)

var stateNames = [...]string{
	StateFetching:    "FETCHING",
	StateLoading:     "LOADING",
	StateClassifying: "CLASSIFYING",
	StateCalendar:    "CALENDAR",
	StateDrafting:    "DRAFTING",
	StateRecording:   "RECORDING",
	StateDigesting:   "DIGESTING",
	StateDone:        "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
