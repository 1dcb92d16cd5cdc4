package app

// Intent is a user request coming from a frontend.
type Intent int

const (
	IntentStart Intent = iota + 1
	IntentStop
	IntentSnapshot
)

func (i Intent) String() string {
	switch i {
	case IntentStart:
		return "start"
	case IntentStop:
		return "stop"
	case IntentSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// ParseIntent maps a frontend action name to an Intent.
func ParseIntent(s string) (Intent, bool) {
	switch s {
	case "start":
		return IntentStart, true
	case "stop":
		return IntentStop, true
	case "snapshot":
		return IntentSnapshot, true
	}
	return 0, false
}
