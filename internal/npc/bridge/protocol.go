// Package bridge speaks newline-delimited JSON-RPC 2.0 with an external
// reasoning agent over a subprocess stdio pipe. The referee both calls
// the agent (asking for decisions) and answers the agent's queries
// about game state.
package bridge

import "encoding/json"

const jsonRPCVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// message is one frame in either direction. A frame with a method is a
// request; one with a result or error is a response.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (m message) isRequest() bool {
	return m.Method != ""
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return e.Message
}
