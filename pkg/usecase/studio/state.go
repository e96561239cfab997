package studio

// State is the busy/error status shown next to the request form
type State struct {
	Busy bool
	Err  string
}

type eventKind int

const (
	eventSubmitted eventKind = iota
	eventSucceeded
	eventFailed
)

type event struct {
	kind    eventKind
	message string
}

// reduce is the only place State changes
func reduce(s State, ev event) State {
	switch ev.kind {
	case eventSubmitted:
		return State{Busy: true}
	case eventSucceeded:
		return State{Busy: false, Err: s.Err}
	case eventFailed:
		return State{Busy: false, Err: ev.message}
	}
	return s
}
