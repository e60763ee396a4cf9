package loadmore

import "fmt"

type Status int

const (
	StatusReady Status = iota
	StatusLoading
	StatusError
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Clickable reports whether a click starts a request.
func (s Status) Clickable() bool {
	return s == StatusReady || s == StatusError
}

// State is the controller's view of the control. Cursor is the next page
// to request; it is meaningless once Status is StatusExhausted.
type State struct {
	Cursor int
	Status Status
}

func (s State) String() string {
	if s.Status == StatusExhausted {
		return s.Status.String()
	}
	return fmt.Sprintf("%s(page=%d)", s.Status, s.Cursor)
}
