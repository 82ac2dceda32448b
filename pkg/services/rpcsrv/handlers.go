package rpcsrv

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/aioracle/pkg/config"
	"github.com/nspcc-dev/aioracle/pkg/core/oracle"
	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/transaction"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/neorpc"
	"github.com/nspcc-dev/aioracle/pkg/neorpc/result"
	"github.com/nspcc-dev/aioracle/pkg/neorpc/rpcevent"
	"github.com/nspcc-dev/aioracle/pkg/services/rpcsrv/params"
	"go.uber.org/zap"
)

// getPage parses optional offset, limit and order starting from the given
// parameter index.
func getPage(reqParams params.Params, index int) (oracle.Page, *neorpc.Error) {
	var p oracle.Page
	if param := reqParams.Value(index); param != nil && !param.IsNull() {
		offset, err := param.GetUint64()
		if err != nil {
			return p, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid offset: %s", err))
		}
		p.Offset = &offset
	}
	limit, order, respErr := getLimitAndOrder(reqParams, index+1)
	p.Limit = limit
	p.Order = order
	return p, respErr
}

// getLimitAndOrder parses optional limit and order starting from the given
// parameter index.
func getLimitAndOrder(reqParams params.Params, index int) (int, paging.Order, *neorpc.Error) {
	var limit int
	if param := reqParams.Value(index); param != nil && !param.IsNull() {
		l, err := param.GetInt()
		if err != nil {
			return 0, 0, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid limit: %s", err))
		}
		limit = l
	}
	order := paging.Ascending
	if param := reqParams.Value(index + 1); param != nil && !param.IsNull() {
		s, err := param.GetString()
		if err == nil {
			order, err = paging.ParseOrder(s)
		}
		if err != nil {
			return 0, 0, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid order: %s", err))
		}
	}
	return limit, order, nil
}

// getOptionalPublicKey parses the key at the given index, null and missing
// parameters mean no key.
func getOptionalPublicKey(reqParams params.Params, index int) (*keys.PublicKey, *neorpc.Error) {
	param := reqParams.Value(index)
	if param == nil || param.IsNull() {
		return nil, nil
	}
	pub, err := param.GetPublicKey()
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidIdentity, err.Error())
	}
	return pub, nil
}

func getPublicKey(reqParams params.Params, index int) (*keys.PublicKey, *neorpc.Error) {
	param := reqParams.Value(index)
	if param == nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, "no public key")
	}
	pub, err := param.GetPublicKey()
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidIdentity, err.Error())
	}
	return pub, nil
}

func (s *Server) getBlockCount(_ params.Params) (any, *neorpc.Error) {
	return s.chain.BlockHeight(), nil
}

func (s *Server) getVersion(_ params.Params) (any, *neorpc.Error) {
	return &result.Version{
		UserAgent: config.UserAgent(),
		Protocol: result.Protocol{
			MaxServiceLength:   state.MaxServiceLen,
			MaxInputLength:     state.MaxInputLen,
			MaxPageLimit:       paging.MaxLimit,
			DefaultPageLimit:   paging.DefaultLimit,
			MaxThresholdPct:    oracle.MaxThresholdPercent,
			MaxTransactionSize: transaction.MaxTransactionSize,
		},
		RPC: result.RPC{
			MaxWebSocketClients: s.config.MaxWebSocketClients,
			MaxWebSocketFeeds:   s.config.MaxWebSocketFeeds,
		},
	}, nil
}

func (s *Server) getConfig(_ params.Params) (any, *neorpc.Error) {
	cfg, err := s.chain.GetConfig()
	if err != nil {
		return nil, ledgerError(err)
	}
	return cfg, nil
}

func (s *Server) getExecutors(reqParams params.Params) (any, *neorpc.Error) {
	start, respErr := getOptionalPublicKey(reqParams, 0)
	if respErr != nil {
		return nil, respErr
	}
	end, respErr := getOptionalPublicKey(reqParams, 1)
	if respErr != nil {
		return nil, respErr
	}
	limit, order, respErr := getLimitAndOrder(reqParams, 2)
	if respErr != nil {
		return nil, respErr
	}
	execs, err := s.chain.GetExecutors(start, end, order, limit)
	if err != nil {
		return nil, ledgerError(err)
	}
	return execs, nil
}

func (s *Server) getExecutorsByIndex(reqParams params.Params) (any, *neorpc.Error) {
	p, respErr := getPage(reqParams, 0)
	if respErr != nil {
		return nil, respErr
	}
	execs, err := s.chain.GetExecutorsByIndex(p)
	if err != nil {
		return nil, ledgerError(err)
	}
	return execs, nil
}

func (s *Server) getExecutor(reqParams params.Params) (any, *neorpc.Error) {
	pub, respErr := getPublicKey(reqParams, 0)
	if respErr != nil {
		return nil, respErr
	}
	e, err := s.chain.GetExecutor(pub)
	if err != nil {
		return nil, ledgerError(err)
	}
	return e, nil
}

func (s *Server) getExecutorSize(_ params.Params) (any, *neorpc.Error) {
	return s.chain.GetExecutorSize(), nil
}

func (s *Server) checkExecutorInList(reqParams params.Params) (any, *neorpc.Error) {
	pub, respErr := getPublicKey(reqParams, 0)
	if respErr != nil {
		return nil, respErr
	}
	return s.chain.CheckExecutorInList(pub), nil
}

func (s *Server) getRequest(reqParams params.Params) (any, *neorpc.Error) {
	stage, err := reqParams.Value(0).GetUint64()
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid stage: %s", err))
	}
	r, err := s.chain.GetRequest(stage)
	if err != nil {
		return nil, ledgerError(err)
	}
	return r, nil
}

func (s *Server) getRequests(reqParams params.Params) (any, *neorpc.Error) {
	p, respErr := getPage(reqParams, 0)
	if respErr != nil {
		return nil, respErr
	}
	return requestsResult(s.chain.GetRequests(p))
}

func (s *Server) getRequestsByService(reqParams params.Params) (any, *neorpc.Error) {
	service, err := reqParams.Value(0).GetStringStrict()
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid service: %s", err))
	}
	p, respErr := getPage(reqParams, 1)
	if respErr != nil {
		return nil, respErr
	}
	return requestsResult(s.chain.GetRequestsByService(service, p))
}

func (s *Server) getRequestsByMerkleRoot(reqParams params.Params) (any, *neorpc.Error) {
	root, err := reqParams.Value(0).GetStringStrict()
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid merkle root: %s", err))
	}
	p, respErr := getPage(reqParams, 1)
	if respErr != nil {
		return nil, respErr
	}
	return requestsResult(s.chain.GetRequestsByMerkleRoot(root, p))
}

func (s *Server) getRequestsByRequester(reqParams params.Params) (any, *neorpc.Error) {
	requester, err := reqParams.Value(0).GetUint160FromAddressOrHex()
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid requester: %s", err))
	}
	p, respErr := getPage(reqParams, 1)
	if respErr != nil {
		return nil, respErr
	}
	return requestsResult(s.chain.GetRequestsByRequester(requester, p))
}

func requestsResult(reqs []*state.Request, err error) (any, *neorpc.Error) {
	if err != nil {
		return nil, ledgerError(err)
	}
	if reqs == nil {
		reqs = []*state.Request{}
	}
	return reqs, nil
}

func (s *Server) getLatestStage(_ params.Params) (any, *neorpc.Error) {
	stage, err := s.chain.GetLatestStage()
	if err != nil {
		return nil, ledgerError(err)
	}
	return stage, nil
}

func (s *Server) verifyData(reqParams params.Params) (any, *neorpc.Error) {
	stage, err := reqParams.Value(0).GetUint64()
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid stage: %s", err))
	}
	data, err := reqParams.Value(1).GetBytesBase64()
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid data: %s", err))
	}
	var proof []string
	if param := reqParams.Value(2); param != nil {
		proof, err = param.GetStringArray()
		if err != nil {
			return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, fmt.Sprintf("invalid proof: %s", err))
		}
	}
	ok, err := s.chain.VerifyData(stage, data, proof)
	if err != nil {
		return nil, ledgerError(err)
	}
	return ok, nil
}

func (s *Server) getApplicationLog(reqParams params.Params) (any, *neorpc.Error) {
	hash, err := reqParams.Value(0).GetUint256()
	if err != nil {
		return nil, neorpc.ErrInvalidParams
	}
	aer, err := s.chain.GetAppExecResult(hash)
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrNotFound, fmt.Sprintf("failed to locate application log: %s", err))
	}
	return aer, nil
}

func (s *Server) sendrawtransaction(reqParams params.Params) (any, *neorpc.Error) {
	if len(reqParams) < 1 {
		return nil, neorpc.NewInvalidParamsError("not enough parameters")
	}
	byteTx, err := reqParams[0].GetBytesBase64()
	if err != nil {
		return nil, neorpc.NewInvalidParamsError(fmt.Sprintf("not a base64: %s", err))
	}
	tx, err := transaction.NewTransactionFromBytes(byteTx)
	if err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidTransaction, fmt.Sprintf("can't decode transaction: %s", err))
	}
	aer, err := s.chain.AddTransaction(tx)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &result.RelayResult{
		Hash:   aer.Container,
		Height: aer.Height,
		Events: aer.Events,
	}, nil
}

// subscribe handles subscription requests from websocket clients.
func (s *Server) subscribe(reqParams params.Params, sub *subscriber) (any, *neorpc.Error) {
	streamName, err := reqParams.Value(0).GetString()
	if err != nil {
		return nil, neorpc.ErrInvalidParams
	}
	event, err := neorpc.GetEventIDFromString(streamName)
	if err != nil || event == neorpc.MissedEventID {
		return nil, neorpc.ErrInvalidParams
	}
	// Optional filter.
	var filter any
	if p := reqParams.Value(1); p != nil {
		param := *p
		jd := json.NewDecoder(bytes.NewReader(param.RawMessage))
		jd.DisallowUnknownFields()
		flt := new(neorpc.ExecutionFilter)
		err = jd.Decode(flt)
		if err == nil {
			err = flt.IsValid()
		}
		if err != nil {
			return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, err.Error())
		}
		filter = *flt
	}

	s.subsLock.Lock()
	var slot int
	for ; slot < len(sub.feeds); slot++ {
		if sub.feeds[slot].event == neorpc.InvalidEventID {
			break
		}
	}
	if slot == len(sub.feeds) {
		s.subsLock.Unlock()
		return nil, neorpc.NewInternalServerError("maximum number of subscriptions is reached")
	}
	id := uuid.NewString()
	sub.feeds[slot] = feed{id: id, event: event, filter: filter}
	s.subsLock.Unlock()

	s.subsCounterLock.Lock()
	select {
	case <-s.shutdown:
		s.subsCounterLock.Unlock()
		return nil, neorpc.NewInternalServerError("server is shutting down")
	default:
	}
	s.subscribeToChannel(event)
	s.subsCounterLock.Unlock()
	return id, nil
}

// subscribeToChannel subscribes RPC server to appropriate chain events if
// it's not yet subscribed for them. It's supposed to be called with s.subsCounterLock
// taken by the caller.
func (s *Server) subscribeToChannel(event neorpc.EventID) {
	if event == neorpc.ExecutionEventID {
		if s.executionSubs == 0 {
			s.chain.SubscribeForExecutions(s.executionCh)
		}
		s.executionSubs++
	}
}

// unsubscribe handles unsubscription requests from websocket clients.
func (s *Server) unsubscribe(reqParams params.Params, sub *subscriber) (any, *neorpc.Error) {
	id, err := reqParams.Value(0).GetStringStrict()
	if err != nil {
		return nil, neorpc.ErrInvalidParams
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, err.Error())
	}
	s.subsLock.Lock()
	var slot int
	for ; slot < len(sub.feeds); slot++ {
		if sub.feeds[slot].event != neorpc.InvalidEventID && sub.feeds[slot].id == id {
			break
		}
	}
	if slot == len(sub.feeds) {
		s.subsLock.Unlock()
		return nil, neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, "unknown subscription")
	}
	event := sub.feeds[slot].event
	sub.feeds[slot] = feed{}
	s.subsLock.Unlock()

	s.subsCounterLock.Lock()
	s.unsubscribeFromChannel(event)
	s.subsCounterLock.Unlock()
	return true, nil
}

// unsubscribeFromChannel unsubscribes RPC server from appropriate chain events
// if there are no other subscribers for it. It must be called with s.subsCounterLock
// holding by the caller.
func (s *Server) unsubscribeFromChannel(event neorpc.EventID) {
	if event == neorpc.ExecutionEventID {
		s.executionSubs--
		if s.executionSubs == 0 {
			s.unsubscribeFromExecutions()
		}
	}
}

// unsubscribeFromExecutions unsubscribes the server channel while still
// reading from it, the chain may be blocked sending an event to it.
func (s *Server) unsubscribeFromExecutions() {
	done := make(chan struct{})
	go func() {
		s.chain.UnsubscribeFromExecutions(s.executionCh)
		close(done)
	}()
	for {
		select {
		case _, ok := <-s.executionCh:
			if !ok {
				<-done
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) handleSubEvents() {
	b, err := json.Marshal(neorpc.Notification{
		JSONRPC: neorpc.JSONRPCVersion,
		Event:   neorpc.MissedEventID,
		Payload: make([]any, 0),
	})
	if err != nil {
		s.log.Error("fatal: failed to marshal overflow event", zap.Error(err))
		return
	}
	overflowMsg, err := websocket.NewPreparedMessage(websocket.TextMessage, b)
	if err != nil {
		s.log.Error("fatal: failed to prepare overflow message", zap.Error(err))
		return
	}
chloop:
	for {
		var resp = neorpc.Notification{
			JSONRPC: neorpc.JSONRPCVersion,
			Payload: make([]any, 1),
		}
		var msg *websocket.PreparedMessage
		select {
		case <-s.shutdown:
			break chloop
		case execution := <-s.executionCh:
			resp.Event = neorpc.ExecutionEventID
			resp.Payload[0] = execution
		}
		s.subsLock.RLock()
	subloop:
		for sub := range s.subscribers {
			if sub.overflown.Load() {
				continue
			}
			for i := range sub.feeds {
				if rpcevent.Matches(sub.feeds[i], &resp) {
					if msg == nil {
						b, err = json.Marshal(resp)
						if err != nil {
							s.log.Error("failed to marshal notification",
								zap.Error(err),
								zap.String("type", resp.Event.String()))
							break subloop
						}
						msg, err = websocket.NewPreparedMessage(websocket.TextMessage, b)
						if err != nil {
							s.log.Error("failed to prepare notification message",
								zap.Error(err),
								zap.String("type", resp.Event.String()))
							break subloop
						}
					}
					select {
					case sub.writer <- msg:
					default:
						sub.overflown.Store(true)
						// MissedEvent is to be delivered eventually.
						go func(sub *subscriber) {
							sub.writer <- overflowMsg
							sub.overflown.Store(false)
						}(sub)
					}
					// The message is sent only once per subscriber.
					break
				}
			}
		}
		s.subsLock.RUnlock()
	}
	// It's important to do it with subsCounterLock held because no subscription routine
	// should be running concurrently to this one. And even if one is to run
	// after unlock, it'll see closed s.shutdown and won't subscribe.
	s.subsCounterLock.Lock()
	// There might be no subscription in reality, but it's not a problem as
	// core.Blockchain allows unsubscribing non-subscribed channels.
	s.unsubscribeFromExecutions()
	s.subsCounterLock.Unlock()
	// It's not required closing it, but since it's drained already
	// this is safe and it also allows to give a signal to Shutdown routine.
	close(s.executionCh)
}
