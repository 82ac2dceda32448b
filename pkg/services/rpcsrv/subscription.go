package rpcsrv

import (
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/aioracle/pkg/neorpc"
)

type (
	// subscriber is an event subscriber.
	subscriber struct {
		writer    chan<- *websocket.PreparedMessage
		overflown atomic.Bool
		// These work like slots as there is not a lot of them (it's
		// cheaper doing it this way rather than creating a map).
		feeds []feed
	}
	// feed stores subscriber's desired event ID with filter.
	feed struct {
		id     string
		event  neorpc.EventID
		filter any
	}
)

// EventID implements neorpc.EventComparator interface and returns notification ID.
func (f feed) EventID() neorpc.EventID {
	return f.event
}

// Filter implements neorpc.EventComparator interface and returns notification filter.
func (f feed) Filter() any {
	return f.filter
}

const (
	// This sets notification messages buffer depth. Every committed
	// transaction produces one event and commits can come in bursts, while
	// network delivery is much slower. The channel carries pointers, so
	// it's cheap memory-wise.
	notificationBufSize = 1024
)
