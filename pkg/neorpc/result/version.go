/*
Package result contains non-trivial results of oracle node RPC calls.
*/
package result

type (
	// Version model used for reporting server version
	// info.
	Version struct {
		UserAgent string   `json:"useragent"`
		Protocol  Protocol `json:"protocol"`
		RPC       RPC      `json:"rpc"`
	}

	// RPC represents the RPC server configuration.
	RPC struct {
		MaxWebSocketClients int `json:"maxwebsocketclients"`
		MaxWebSocketFeeds   int `json:"maxwebsocketfeeds"`
	}

	// Protocol represents the oracle limits that don't change at runtime.
	Protocol struct {
		MaxServiceLength   int    `json:"maxservicelength"`
		MaxInputLength     int    `json:"maxinputlength"`
		MaxPageLimit       int    `json:"maxpagelimit"`
		DefaultPageLimit   int    `json:"defaultpagelimit"`
		MaxThresholdPct    uint64 `json:"maxthresholdpercent"`
		MaxTransactionSize int    `json:"maxtransactionsize"`
	}
)
