package interrupt

import "fmt"

// Mode selects how ready events are noticed.
type Mode int

// Dispatch modes.
const (
	// ModePolling only notices ready events inside the periodic poll window.
	ModePolling Mode = iota

	// ModeInterrupt dispatches an event as soon as it is ready.
	ModeInterrupt
)

func (m Mode) String() string {
	switch m {
	case ModePolling:
		return "polling"
	case ModeInterrupt:
		return "interrupt"
	default:
		panic(fmt.Sprintf("interrupt: unknown mode %d", int(m)))
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// ParseMode converts a mode name into a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "polling":
		return ModePolling, nil
	case "interrupt":
		return ModeInterrupt, nil
	default:
		return 0, fmt.Errorf("interrupt: unknown mode %q", name)
	}
}
