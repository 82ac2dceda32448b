package rpcclient

import (
	"encoding/base64"

	"github.com/nspcc-dev/aioracle/pkg/core/oracle"
	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/transaction"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/neorpc/result"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

// pageParams converts the page into offset, limit and order parameters.
func pageParams(p oracle.Page) []any {
	var offset any
	if p.Offset != nil {
		offset = *p.Offset
	}
	return []any{offset, p.Limit, p.Order.String()}
}

// GetApplicationLog returns the execution result of the committed
// transaction.
func (c *Client) GetApplicationLog(hash util.Uint256) (*state.AppExecResult, error) {
	var resp = new(state.AppExecResult)
	if err := c.performRequest("getapplicationlog", []any{hash.String()}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBlockCount returns the number of committed transactions.
func (c *Client) GetBlockCount() (uint64, error) {
	var resp uint64
	if err := c.performRequest("getblockcount", nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// GetVersion returns the version information about the queried node.
func (c *Client) GetVersion() (*result.Version, error) {
	var resp = new(result.Version)
	if err := c.performRequest("getversion", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetConfig returns the current oracle configuration.
func (c *Client) GetConfig() (*state.Config, error) {
	var resp = new(state.Config)
	if err := c.performRequest("getconfig", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetExecutors returns executors ordered by public key. The window is
// [start, end) for ascending order and (end, start] for descending, nil keys
// leave the corresponding side open.
func (c *Client) GetExecutors(start, end *keys.PublicKey, order paging.Order, limit int) ([]*state.Executor, error) {
	var params = []any{nil, nil, limit, order.String()}
	if start != nil {
		params[0] = start.StringCompressed()
	}
	if end != nil {
		params[1] = end.StringCompressed()
	}
	var resp []*state.Executor
	if err := c.performRequest("getexecutors", params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetExecutorsByIndex returns executors ordered by insertion index.
func (c *Client) GetExecutorsByIndex(p oracle.Page) ([]*state.Executor, error) {
	var resp []*state.Executor
	if err := c.performRequest("getexecutorsbyindex", pageParams(p), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetExecutor returns the executor record for the given key.
func (c *Client) GetExecutor(pub *keys.PublicKey) (*state.Executor, error) {
	var resp = new(state.Executor)
	if err := c.performRequest("getexecutor", []any{pub.StringCompressed()}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetExecutorSize returns the number of active executors.
func (c *Client) GetExecutorSize() (uint64, error) {
	var resp uint64
	if err := c.performRequest("getexecutorsize", nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// CheckExecutorInList tells whether the key belongs to an active executor.
func (c *Client) CheckExecutorInList(pub *keys.PublicKey) (bool, error) {
	var resp bool
	if err := c.performRequest("checkexecutorinlist", []any{pub.StringCompressed()}, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// GetRequest returns the request with the given stage.
func (c *Client) GetRequest(stage uint64) (*state.Request, error) {
	var resp = new(state.Request)
	if err := c.performRequest("getrequest", []any{stage}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetRequests returns requests ordered by stage.
func (c *Client) GetRequests(p oracle.Page) ([]*state.Request, error) {
	return c.getRequests("getrequests", nil, p)
}

// GetRequestsByService returns requests of the given service.
func (c *Client) GetRequestsByService(service string, p oracle.Page) ([]*state.Request, error) {
	return c.getRequests("getrequestsbyservice", service, p)
}

// GetRequestsByMerkleRoot returns requests with the given merkle root, empty
// root selects pending requests.
func (c *Client) GetRequestsByMerkleRoot(root string, p oracle.Page) ([]*state.Request, error) {
	return c.getRequests("getrequestsbymerkleroot", root, p)
}

// GetRequestsByRequester returns requests made by the given account.
func (c *Client) GetRequestsByRequester(requester util.Uint160, p oracle.Page) ([]*state.Request, error) {
	return c.getRequests("getrequestsbyrequester", address.Uint160ToString(requester), p)
}

func (c *Client) getRequests(method string, key any, p oracle.Page) ([]*state.Request, error) {
	params := pageParams(p)
	if key != nil {
		params = append([]any{key}, params...)
	}
	var resp []*state.Request
	if err := c.performRequest(method, params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetLatestStage returns the stage of the latest request.
func (c *Client) GetLatestStage() (uint64, error) {
	var resp uint64
	if err := c.performRequest("getlateststage", nil, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// VerifyData checks the merkle proof of data against the root registered
// for the stage.
func (c *Client) VerifyData(stage uint64, data []byte, proof []string) (bool, error) {
	var (
		params = []any{stage, base64.StdEncoding.EncodeToString(data), proof}
		resp   bool
	)
	if proof == nil {
		params[2] = []string{}
	}
	if err := c.performRequest("verifydata", params, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// SendRawTransaction sends the signed transaction to the node. The command is
// executed synchronously, so the result contains its height and events.
func (c *Client) SendRawTransaction(tx *transaction.Transaction) (*result.RelayResult, error) {
	b64, err := tx.EncodeBase64()
	if err != nil {
		return nil, err
	}
	var resp = new(result.RelayResult)
	if err := c.performRequest("sendrawtransaction", []any{b64}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
