/*
Package rpcevent matches node events against subscription filters.
*/
package rpcevent

import (
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/neorpc"
)

type (
	// Comparator is an interface required from notification event filter to be able to
	// filter notifications.
	Comparator interface {
		EventID() neorpc.EventID
		Filter() any
	}
	// Container is an interface required from notification event to be able to
	// pass filter.
	Container interface {
		EventID() neorpc.EventID
		EventPayload() any
	}
)

// Matches filters our given Container against Comparator filter.
func Matches(f Comparator, r Container) bool {
	expectedEvent := f.EventID()
	filter := f.Filter()
	if r.EventID() != expectedEvent {
		return false
	}
	if filter == nil {
		return true
	}
	switch f.EventID() {
	case neorpc.ExecutionEventID:
		filt := filter.(neorpc.ExecutionFilter)
		aer := r.EventPayload().(*state.AppExecResult)
		containerOK := filt.Container == nil || aer.Container.Equals(*filt.Container)
		nameOK := filt.Name == nil
		for i := 0; !nameOK && i < len(aer.Events); i++ {
			nameOK = aer.Events[i].Name == *filt.Name
		}
		return containerOK && nameOK
	default:
		return false
	}
}
