package state

import (
	"errors"

	"github.com/nspcc-dev/aioracle/pkg/io"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

// maxEvents is the maximum number of events stored for one transaction.
const maxEvents = 16

// Attribute is a key-value pair attached to an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NotificationEvent is an event emitted by a successfully executed command.
type NotificationEvent struct {
	Name       string      `json:"eventname"`
	Attributes []Attribute `json:"attributes"`
}

// MaxExceptionLen is the maximum length of the stored fault message.
const MaxExceptionLen = 1024

// AppExecResult represents the result of a transaction execution with all
// the events it emitted. Faulted transactions have no events and carry the
// reason of the failure instead.
type AppExecResult struct {
	Container      util.Uint256        `json:"txid"`
	Height         uint64              `json:"height"`
	State          ExecState           `json:"state"`
	FaultException string              `json:"exception,omitempty"`
	Events         []NotificationEvent `json:"events"`
}

// Attr is a shortcut for Attribute creation.
func Attr(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Get returns the value of the attribute with the given key.
func (ne *NotificationEvent) Get(key string) (string, bool) {
	for _, a := range ne.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// EncodeBinary implements the io.Serializable interface.
func (a *Attribute) EncodeBinary(w *io.BinWriter) {
	w.WriteString(a.Key)
	w.WriteString(a.Value)
}

// DecodeBinary implements the io.Serializable interface.
func (a *Attribute) DecodeBinary(r *io.BinReader) {
	a.Key = r.ReadString()
	a.Value = r.ReadString()
}

// EncodeBinary implements the io.Serializable interface.
func (ne *NotificationEvent) EncodeBinary(w *io.BinWriter) {
	w.WriteString(ne.Name)
	io.WriteArray(w, ne.Attributes)
}

// DecodeBinary implements the io.Serializable interface.
func (ne *NotificationEvent) DecodeBinary(r *io.BinReader) {
	ne.Name = r.ReadString()
	ne.Attributes = io.ReadArray[[]Attribute](r)
}

// EncodeBinary implements the io.Serializable interface.
func (aer *AppExecResult) EncodeBinary(w *io.BinWriter) {
	if len(aer.Events) > maxEvents {
		w.Err = errors.New("too many events")
		return
	}
	aer.Container.EncodeBinary(w)
	w.WriteU64LE(aer.Height)
	w.WriteB(byte(aer.State))
	w.WriteString(aer.FaultException)
	io.WriteArray(w, aer.Events)
}

// DecodeBinary implements the io.Serializable interface.
func (aer *AppExecResult) DecodeBinary(r *io.BinReader) {
	aer.Container.DecodeBinary(r)
	aer.Height = r.ReadU64LE()
	aer.State = ExecState(r.ReadB())
	aer.FaultException = r.ReadString(MaxExceptionLen)
	aer.Events = io.ReadArray[[]NotificationEvent](r, maxEvents)
}
