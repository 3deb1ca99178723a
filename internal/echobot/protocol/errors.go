package protocol

import "errors"

var (
	// ErrRPCParse marks a line that is not valid JSON-RPC.
	ErrRPCParse = errors.New("rpc parse error")
	// ErrRPCTimeout marks a call that did not complete in time.
	ErrRPCTimeout = errors.New("rpc timeout")
	// ErrRPCProtocol marks a well-formed message that violates the protocol.
	ErrRPCProtocol = errors.New("rpc protocol error")
)
