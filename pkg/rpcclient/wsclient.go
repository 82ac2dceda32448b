package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/neorpc"
	"github.com/nspcc-dev/aioracle/pkg/neorpc/rpcevent"
)

// WSClient is a websocket-enabled RPC client that can be used with appropriate
// servers. It's supposed to be faster than Client because it has persistent
// connection to the server and at the same time it exposes some functionality
// that is only provided via websockets (like event subscription mechanism).
// WSClient is thread-safe and can be used from multiple goroutines to perform
// RPC requests.
//
// Execution events are delivered to the receiver channels passed to
// ReceiveExecutions, they must be read from constantly. All receivers are
// closed when the connection is lost or when the server reports missed
// events.
type WSClient struct {
	Client

	ws          *websocket.Conn
	done        chan struct{}
	requests    chan *neorpc.Request
	shutdown    chan struct{}
	closeCalled atomic.Bool

	closeErrLock sync.RWMutex
	closeErr     error

	subscriptionsLock sync.RWMutex
	receivers         map[string]*execReceiver

	respLock     sync.RWMutex
	respChannels map[uint64]chan *neorpc.Response
}

// execReceiver is a subscription for execution events.
type execReceiver struct {
	filter *neorpc.ExecutionFilter
	ch     chan<- *state.AppExecResult
}

// EventID implements the rpcevent.Comparator interface.
func (r *execReceiver) EventID() neorpc.EventID {
	return neorpc.ExecutionEventID
}

// Filter implements the rpcevent.Comparator interface.
func (r *execReceiver) Filter() any {
	if r.filter == nil {
		return nil
	}
	return *r.filter
}

// wsMessage is any message received from the server, responses have an ID
// while notifications have a method.
type wsMessage struct {
	neorpc.HeaderAndError
	Result json.RawMessage   `json:"result,omitempty"`
	Method string            `json:"method,omitempty"`
	Params []json.RawMessage `json:"params,omitempty"`
}

const (
	// Message limit for receiving side.
	wsReadLimit = 10 * 1024 * 1024

	// Disconnection timeout.
	wsPongLimit = 60 * time.Second

	// Ping period for connection liveness check.
	wsPingPeriod = wsPongLimit / 2

	// Write deadline.
	wsWriteLimit = wsPingPeriod / 2
)

// ErrWSConnLost is a WSClient-specific error that will be returned for any
// requests after disconnection (including handshake failures).
var ErrWSConnLost = errors.New("connection lost")

// NewWS returns a new WSClient ready to use. It dials the specified
// endpoint (usually in the form of ws://host:port/ws).
func NewWS(ctx context.Context, endpoint string, opts Options) (*WSClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = defaultDialTimeout
	}
	ws, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	wsc := &WSClient{
		ws:           ws,
		done:         make(chan struct{}),
		requests:     make(chan *neorpc.Request),
		shutdown:     make(chan struct{}),
		receivers:    make(map[string]*execReceiver),
		respChannels: make(map[uint64]chan *neorpc.Response),
	}
	err = initClient(ctx, &wsc.Client, endpoint, opts)
	if err != nil {
		ws.Close()
		return nil, err
	}
	wsc.Client.requestF = wsc.makeWsRequest
	go wsc.wsReader()
	go wsc.wsWriter()
	return wsc, nil
}

// Close closes connection to the remote side rendering this client instance
// unusable.
func (c *WSClient) Close() {
	if c.closeCalled.CompareAndSwap(false, true) {
		// Closing shutdown channel sends a signal to wsWriter to break out of the
		// loop. In doing so it does ws.Close() closing the network connection
		// which in turn makes wsReader receive an err from ws.ReadJSON() and also
		// break out of the loop closing c.done channel in its shutdown sequence.
		close(c.shutdown)
	}
	<-c.done
}

// GetError returns the reason of the connection loss, it's nil if the
// client is still connected or was closed with Close.
func (c *WSClient) GetError() error {
	if c.closeCalled.Load() {
		return nil
	}
	c.closeErrLock.RLock()
	defer c.closeErrLock.RUnlock()
	return c.closeErr
}

func (c *WSClient) wsReader() {
	c.ws.SetReadLimit(wsReadLimit)
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wsPongLimit))
	})
	var connCloseErr error
readloop:
	for {
		if err := c.ws.SetReadDeadline(time.Now().Add(wsPongLimit)); err != nil {
			connCloseErr = fmt.Errorf("failed to set read deadline: %w", err)
			break readloop
		}
		msg := new(wsMessage)
		if err := c.ws.ReadJSON(msg); err != nil {
			connCloseErr = fmt.Errorf("failed to read JSON response: %w", err)
			break readloop
		}
		if msg.Method != "" {
			if !c.handleNotification(msg) {
				connCloseErr = errors.New("events were missed")
				break readloop
			}
			continue
		}
		id, err := strconv.ParseUint(string(msg.ID), 10, 64)
		if err != nil {
			connCloseErr = fmt.Errorf("failed to retrieve response ID: %w", err)
			break readloop
		}
		c.respLock.RLock()
		// Late responses for requests that are not waited for are dropped.
		if ch, ok := c.respChannels[id]; ok {
			select {
			case ch <- &neorpc.Response{HeaderAndError: msg.HeaderAndError, Result: msg.Result}:
			default:
			}
		}
		c.respLock.RUnlock()
	}
	if connCloseErr != nil {
		c.closeErrLock.Lock()
		c.closeErr = connCloseErr
		c.closeErrLock.Unlock()
	}
	c.subscriptionsLock.Lock()
	for id, r := range c.receivers {
		close(r.ch)
		delete(c.receivers, id)
	}
	c.subscriptionsLock.Unlock()
	close(c.done)
	c.respLock.Lock()
	for id, ch := range c.respChannels {
		close(ch)
		delete(c.respChannels, id)
	}
	c.respLock.Unlock()
}

// handleNotification dispatches the event to matching receivers, false is
// returned if the server reported missed events.
func (c *WSClient) handleNotification(msg *wsMessage) bool {
	event, err := neorpc.GetEventIDFromString(msg.Method)
	if err != nil {
		return true
	}
	if event == neorpc.MissedEventID {
		return false
	}
	if event != neorpc.ExecutionEventID || len(msg.Params) != 1 {
		return true
	}
	aer := new(state.AppExecResult)
	if err := json.Unmarshal(msg.Params[0], aer); err != nil {
		return true
	}
	ntf := &neorpc.Notification{Event: event, Payload: []any{aer}}
	c.subscriptionsLock.RLock()
	for _, r := range c.receivers {
		if rpcevent.Matches(r, ntf) {
			r.ch <- aer
		}
	}
	c.subscriptionsLock.RUnlock()
	return true
}

func (c *WSClient) wsWriter() {
	pingTicker := time.NewTicker(wsPingPeriod)
	defer c.ws.Close()
	defer pingTicker.Stop()
	for {
		select {
		case <-c.shutdown:
			return
		case <-c.done:
			return
		case req, ok := <-c.requests:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				return
			}
			if err := c.ws.WriteJSON(req); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) registerRespChannel(id uint64, ch chan *neorpc.Response) {
	c.respLock.Lock()
	defer c.respLock.Unlock()
	c.respChannels[id] = ch
}

func (c *WSClient) unregisterRespChannel(id uint64) {
	c.respLock.Lock()
	defer c.respLock.Unlock()
	if ch, ok := c.respChannels[id]; ok {
		delete(c.respChannels, id)
		close(ch)
	}
}

func (c *WSClient) makeWsRequest(r *neorpc.Request) (*neorpc.Response, error) {
	ch := make(chan *neorpc.Response, 1)
	select {
	case <-c.done:
		return nil, fmt.Errorf("%w: before registering response channel", ErrWSConnLost)
	default:
	}
	c.registerRespChannel(r.ID, ch)
	defer c.unregisterRespChannel(r.ID)

	select {
	case <-c.done:
		return nil, fmt.Errorf("%w: before sending the request", ErrWSConnLost)
	case c.requests <- r:
	}
	select {
	case <-c.done:
		return nil, fmt.Errorf("%w: while waiting for the response", ErrWSConnLost)
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w: while waiting for the response", ErrWSConnLost)
		}
		return resp, nil
	case <-time.After(c.opts.RequestTimeout):
		return nil, errors.New("request timeout")
	}
}

// ReceiveExecutions registers the provided channel as a receiver for
// execution events of committed transactions. The filter is optional, nil
// means all events. The subscription ID is returned, it can be used with
// Unsubscribe.
func (c *WSClient) ReceiveExecutions(flt *neorpc.ExecutionFilter, rcvr chan<- *state.AppExecResult) (string, error) {
	if rcvr == nil {
		return "", errors.New("nil receiver")
	}
	params := []any{neorpc.ExecutionEventID.String()}
	if flt != nil {
		if err := flt.IsValid(); err != nil {
			return "", err
		}
		flt = flt.Copy()
		params = append(params, *flt)
	}
	var id string
	// The lock is not held during the call since the reader needs it to
	// deliver events of other subscriptions.
	if err := c.performRequest("subscribe", params, &id); err != nil {
		return "", err
	}
	c.subscriptionsLock.Lock()
	defer c.subscriptionsLock.Unlock()
	select {
	case <-c.done:
		return "", ErrWSConnLost
	default:
	}
	c.receivers[id] = &execReceiver{filter: flt, ch: rcvr}
	return id, nil
}

// Unsubscribe removes the subscription with the given ID, the receiver
// channel is not closed and gets no more events even if the call fails.
func (c *WSClient) Unsubscribe(id string) error {
	c.subscriptionsLock.Lock()
	_, ok := c.receivers[id]
	delete(c.receivers, id)
	c.subscriptionsLock.Unlock()
	if !ok {
		return errors.New("no subscription with this ID")
	}
	var resp bool
	if err := c.performRequest("unsubscribe", []any{id}, &resp); err != nil {
		return err
	}
	if !resp {
		return errors.New("unsubscribe method returned false result")
	}
	return nil
}
