package interop

import (
	"github.com/nspcc-dev/aioracle/pkg/core/dao"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"go.uber.org/zap"
)

// Context represents context in which oracle commands are executed.
type Context struct {
	// DAO is the write set of the transaction being executed, it's only
	// persisted if the command succeeds.
	DAO *dao.Simple
	// Sender is the account hash of the transaction sender.
	Sender util.Uint160
	// Height is the height the transaction is being committed at.
	Height        uint64
	Notifications []state.NotificationEvent
	Log           *zap.Logger
}

// NewContext returns new interop context.
func NewContext(d *dao.Simple, sender util.Uint160, height uint64, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		DAO:           d,
		Sender:        sender,
		Height:        height,
		Notifications: make([]state.NotificationEvent, 0),
		Log:           log,
	}
}

// AddNotification adds notification with the given name and attributes to
// the list of the context notifications.
func (ic *Context) AddNotification(name string, attrs ...state.Attribute) {
	ic.Notifications = append(ic.Notifications, state.NotificationEvent{
		Name:       name,
		Attributes: attrs,
	})
}
