package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kiosk404/echobot/internal/echobot/event"
	"github.com/kiosk404/echobot/pkg/utils/json"
	"github.com/tidwall/gjson"
)

// Handler is implemented by Go programs that act as external plugins.
type Handler interface {
	Metadata(ctx context.Context) (Metadata, error)
	Matches(ctx context.Context, p MatchesParams) (bool, error)
	Handle(ctx context.Context, p HandleParams) (HandleResult, error)
	Lifecycle(ctx context.Context, ev LifecycleEvent) (bool, error)
}

// Serve answers requests read from r on w until r ends, ctx is done, or a
// shutdown lifecycle event has been acknowledged.
func Serve(ctx context.Context, r io.Reader, w io.Writer, h Handler) error {
	lines := NewLineReader(r)
	out := bufio.NewWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := lines.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		resp, stop := dispatchLine(ctx, line, h)
		if err := WriteMessage(out, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if stop {
			return nil
		}
	}
}

func dispatchLine(ctx context.Context, line []byte, h Handler) (resp *Response, stop bool) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		id, _ := PeekID(line)
		return Failure(id, ParseError(err.Error())), false
	}
	if req.JSONRPC != Version || req.Method == "" || !gjson.GetBytes(line, "id").Exists() {
		return Failure(req.ID, InvalidRequest("jsonrpc, method and id are required")), false
	}

	defer func() {
		if r := recover(); r != nil {
			resp = Failure(req.ID, InternalError(fmt.Sprint(r)))
			stop = false
		}
	}()

	result, rpcErr, stop := call(ctx, &req, h)
	if rpcErr != nil {
		return Failure(req.ID, rpcErr), stop
	}
	resp, err := Success(req.ID, result)
	if err != nil {
		return Failure(req.ID, InternalError(err.Error())), stop
	}
	return resp, stop
}

func call(ctx context.Context, req *Request, h Handler) (interface{}, *Error, bool) {
	switch req.Method {
	case MethodMetadata:
		md, err := h.Metadata(ctx)
		if err != nil {
			return nil, InternalError(err.Error()), false
		}
		if md.Commands == nil {
			md.Commands = []CommandInfo{}
		}
		return md, nil, false

	case MethodMatches:
		var p MatchesParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, InvalidParams(err.Error()), false
		}
		ok, err := h.Matches(ctx, p)
		if err != nil {
			return nil, InternalError(err.Error()), false
		}
		return MatchesResult{Matches: ok}, nil, false

	case MethodHandle:
		var p HandleParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, InvalidParams(err.Error()), false
		}
		res, err := h.Handle(ctx, p)
		if err != nil {
			return nil, InternalError(err.Error()), false
		}
		if res.Actions == nil {
			res.Actions = []event.Action{}
		}
		return res, nil, false

	case MethodLifecycle:
		var p LifecycleParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, InvalidParams(err.Error()), false
		}
		ok, err := h.Lifecycle(ctx, p.Event)
		if err != nil {
			return nil, InternalError(err.Error()), false
		}
		return LifecycleResult{OK: ok}, nil, p.Event.Kind == LifecycleShutdown

	default:
		return nil, MethodNotFound(req.Method), false
	}
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return errors.New("missing params")
	}
	return json.Unmarshal(raw, out)
}
