// pkg/httplog/capture.go
package httplog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrBodyTooLarge is recorded when a response outgrows the capture limit.
var ErrBodyTooLarge = errors.New("response body exceeds capture limit")

// CapturedResponseKey is the echo context key holding the *CapturedResponse.
const CapturedResponseKey = "httplog.captured_response"

// CapturedResponse is the finalized response as seen by a ResponseFilterFunc.
// Body is nil when no capture was installed.
type CapturedResponse struct {
	StatusCode int
	Header     http.Header
	Path       string
	Method     string
	Body       []byte
	Truncated  bool
}

// Capture tees everything written to a response into memory. Every call is
// forwarded to the wrapped writer unchanged; buffering never affects it.
type Capture struct {
	http.ResponseWriter
	buf       bytes.Buffer
	limit     int
	truncated bool
	err       error
}

// NewCapture wraps w. A limit <= 0 buffers without bound.
func NewCapture(w http.ResponseWriter, limit int) *Capture {
	return &Capture{ResponseWriter: w, limit: limit}
}

// Write forwards b, then buffers the bytes the wrapped writer accepted.
func (c *Capture) Write(b []byte) (int, error) {
	n, err := c.ResponseWriter.Write(b)
	if n > 0 {
		c.buffer(b[:n])
	}
	return n, err
}

func (c *Capture) buffer(b []byte) {
	if c.err != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("buffering response body: %v", r)
		}
	}()
	if c.limit > 0 && c.buf.Len()+len(b) > c.limit {
		c.buf.Write(b[:c.limit-c.buf.Len()])
		c.truncated = true
		c.err = ErrBodyTooLarge
		return
	}
	c.buf.Write(b)
}

// Flush implements the http.Flusher interface.
func (c *Capture) Flush() {
	if err := http.NewResponseController(c.ResponseWriter).Flush(); err != nil && errors.Is(err, http.ErrNotSupported) {
		panic(fmt.Errorf("httplog: response writer %T does not support flushing (http.Flusher interface)", c.ResponseWriter))
	}
}

// Hijack implements the http.Hijacker interface.
func (c *Capture) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(c.ResponseWriter).Hijack()
}

// Unwrap returns the original http.ResponseWriter.
func (c *Capture) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}

// Err returns the first buffering failure, if any.
func (c *Capture) Err() error {
	return c.err
}

// Len returns the number of bytes buffered so far.
func (c *Capture) Len() int {
	return c.buf.Len()
}

// Finish snapshots the capture together with the final response metadata.
func (c *Capture) Finish(path, method string, status int, header http.Header) *CapturedResponse {
	return &CapturedResponse{
		StatusCode: status,
		Header:     header,
		Path:       path,
		Method:     method,
		Body:       c.buf.Bytes(),
		Truncated:  c.truncated,
	}
}
