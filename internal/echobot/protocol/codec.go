package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/kiosk404/echobot/pkg/utils/json"
	"github.com/tidwall/gjson"
)

// MaxLineSize bounds a single message line.
const MaxLineSize = 4 * 1024 * 1024

// WriteMessage encodes v as one JSON line and flushes it to w.
func WriteMessage(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return err
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// LineReader reads newline-delimited messages.
type LineReader struct {
	sc *bufio.Scanner
}

func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &LineReader{sc: sc}
}

// Next returns the next non-blank line. It returns io.EOF when the stream
// ends cleanly.
func (l *LineReader) Next() ([]byte, error) {
	for l.sc.Scan() {
		line := bytes.TrimSpace(l.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := l.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// PeekID extracts the numeric id of a message without decoding it.
func PeekID(line []byte) (uint64, bool) {
	if !gjson.ValidBytes(line) {
		return 0, false
	}
	id := gjson.GetBytes(line, "id")
	if id.Type != gjson.Number {
		return 0, false
	}
	return id.Uint(), true
}

// DecodeResponse parses a response line.
func DecodeResponse(line []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRPCParse, err)
	}
	if resp.JSONRPC != Version {
		return nil, fmt.Errorf("%w: unexpected jsonrpc version %q", ErrRPCProtocol, resp.JSONRPC)
	}
	return &resp, nil
}
