package state

import (
	"encoding/json"
	"fmt"
)

// ExecState is the outcome of a transaction execution.
type ExecState byte

// Possible execution outcomes. A HALTed transaction changed the state, a
// FAULTed one is only recorded so that it can't be replayed.
const (
	Halt ExecState = iota
	Fault
)

// String implements the fmt.Stringer interface.
func (s ExecState) String() string {
	switch s {
	case Halt:
		return "HALT"
	case Fault:
		return "FAULT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(s))
	}
}

// ExecStateFromString converts a string into the ExecState.
func ExecStateFromString(s string) (ExecState, error) {
	switch s {
	case "HALT":
		return Halt, nil
	case "FAULT":
		return Fault, nil
	default:
		return 0, fmt.Errorf("unknown execution state %q", s)
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (s ExecState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (s *ExecState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	st, err := ExecStateFromString(str)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
