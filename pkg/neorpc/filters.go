package neorpc

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/util"
)

// MaxEventNameLen is the maximum length of the event name used in filters.
const MaxEventNameLen = 32

// ExecutionFilter is a wrapper structure used for transaction execution
// events. It allows to choose executions emitting an event with the specified
// name and/or executions of the specified transaction. nil value treated as
// missing filter.
type ExecutionFilter struct {
	Name      *string       `json:"name,omitempty"`
	Container *util.Uint256 `json:"container,omitempty"`
}

// SubscriptionFilter is an interface for all subscription filters.
type SubscriptionFilter interface {
	// IsValid checks whether the filter is valid and returns
	// a specific [ErrInvalidSubscriptionFilter] error if not.
	IsValid() error
}

// ErrInvalidSubscriptionFilter is returned when the subscription filter is invalid.
var ErrInvalidSubscriptionFilter = errors.New("invalid subscription filter")

// Copy creates a deep copy of the ExecutionFilter. It handles nil
// ExecutionFilter correctly.
func (f *ExecutionFilter) Copy() *ExecutionFilter {
	if f == nil {
		return nil
	}
	var res = new(ExecutionFilter)
	if f.Name != nil {
		res.Name = new(string)
		*res.Name = *f.Name
	}
	if f.Container != nil {
		res.Container = new(util.Uint256)
		*res.Container = *f.Container
	}
	return res
}

// IsValid implements SubscriptionFilter interface.
func (f ExecutionFilter) IsValid() error {
	if f.Name != nil && (len(*f.Name) == 0 || len(*f.Name) > MaxEventNameLen) {
		return fmt.Errorf("%w: bad event name length %d", ErrInvalidSubscriptionFilter, len(*f.Name))
	}
	return nil
}
