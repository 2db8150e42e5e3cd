package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// maxFrameBytes caps a single request line. Anything larger is a protocol
// violation, not a legitimate command.
const maxFrameBytes = 1 << 20

// Codec frames JSON documents over a byte stream, one document per line.
// Writes are serialized so concurrent command completions on one connection
// never interleave partial frames.
type Codec struct {
	r *bufio.Reader

	wmu sync.Mutex
	w   *bufio.Writer
}

// NewCodec wraps rw in a Codec.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{
		r: bufio.NewReaderSize(rw, 64<<10),
		w: bufio.NewWriterSize(rw, 64<<10),
	}
}

// ReadRequest blocks until a full request line arrives and decodes it.
// A malformed JSON document yields an error the caller should report as a
// protocol failure while keeping the connection open; io errors terminate
// the session.
func (c *Codec) ReadRequest() (*Request, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &req, nil
}

// WriteResponse encodes and flushes a response envelope.
func (c *Codec) WriteResponse(resp *Response) error {
	return c.writeJSON(resp)
}

// WriteRaw encodes and flushes an unwrapped value, used for snapshot replies.
func (c *Codec) WriteRaw(v any) error {
	return c.writeJSON(v)
}

func (c *Codec) writeJSON(v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.Write(buf); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Codec) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.r.ReadLine()
		if err != nil {
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > maxFrameBytes {
			return nil, &DecodeError{Err: fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)}
		}
		if !isPrefix {
			return line, nil
		}
	}
}

// DecodeError marks a malformed frame: recoverable, the stream itself is
// still aligned on line boundaries.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode request: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }
