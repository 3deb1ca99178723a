// Package protocol defines the line-delimited JSON-RPC 2.0 wire format spoken
// between the bridge and external plugin processes.
package protocol

import (
	"fmt"

	"github.com/kiosk404/echobot/pkg/utils/json"
)

// Version is the only JSON-RPC version spoken on the wire.
const Version = "2.0"

// Method names.
const (
	MethodMetadata  = "metadata"
	MethodMatches   = "matches"
	MethodHandle    = "handle"
	MethodLifecycle = "lifecycle"
)

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC request line.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      uint64          `json:"id"`
}

// NewRequest encodes params and builds a request.
func NewRequest(id uint64, method string, params interface{}) (*Request, error) {
	req := &Request{JSONRPC: Version, Method: method, ID: id}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s params: %w", method, err)
		}
		req.Params = raw
	}
	return req, nil
}

// Response is a JSON-RPC response line. Exactly one of Result and Error is
// set on a valid response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// Success builds a result response.
func Success(id uint64, result interface{}) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &Response{JSONRPC: Version, Result: raw, ID: id}, nil
}

// Failure builds an error response.
func Failure(id uint64, e *Error) *Response {
	return &Response{JSONRPC: Version, Error: e, ID: id}
}

// Validate enforces the result-xor-error rule.
func (r *Response) Validate() error {
	hasResult := len(r.Result) > 0 && string(r.Result) != "null"
	switch {
	case r.Error != nil && hasResult:
		return fmt.Errorf("%w: response %d carries both result and error", ErrRPCProtocol, r.ID)
	case r.Error == nil && !hasResult:
		return fmt.Errorf("%w: response %d carries neither result nor error", ErrRPCProtocol, r.ID)
	}
	return nil
}

// Decode unmarshals the result into out, or returns the carried RPC error.
func (r *Response) Decode(out interface{}) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Error != nil {
		return r.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("%w: result of response %d: %v", ErrRPCParse, r.ID, err)
	}
	return nil
}

// Error is a JSON-RPC error object. It implements error.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Is lets errors.Is match protocol-level sentinels by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRPCParse:
		return e.Code == CodeParseError
	case ErrRPCProtocol:
		return e.Code == CodeInvalidRequest || e.Code == CodeMethodNotFound || e.Code == CodeInvalidParams
	}
	return false
}

func ParseError(detail string) *Error     { return NewError(CodeParseError, "Parse error: "+detail) }
func InvalidRequest(detail string) *Error { return NewError(CodeInvalidRequest, "Invalid Request: "+detail) }
func MethodNotFound(method string) *Error { return NewError(CodeMethodNotFound, "Method not found: "+method) }
func InvalidParams(detail string) *Error  { return NewError(CodeInvalidParams, "Invalid params: "+detail) }
func InternalError(detail string) *Error  { return NewError(CodeInternalError, "Internal error: "+detail) }
