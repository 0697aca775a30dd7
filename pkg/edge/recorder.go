package edge

import (
	"bytes"
	"io"
	"net/http"
)

// recorder captures an origin handler's response so it can be cached,
// compressed, and replayed to concurrent waiters.
type recorder struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), status: http.StatusOK}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(p)
}

// captured is the immutable result of one origin invocation, shared between
// single-flight waiters. Each waiter gets its own body reader.
type captured struct {
	status int
	header http.Header
	body   []byte
}

func (r *recorder) capture() *captured {
	return &captured{
		status: r.status,
		header: r.header.Clone(),
		body:   r.body.Bytes(),
	}
}

// response materializes the capture as an *http.Response for the policy and
// compression layers.
func (c *captured) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    c.status,
		Status:        http.StatusText(c.status),
		Header:        c.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.body)),
		ContentLength: int64(len(c.body)),
		Request:       req,
		Proto:         req.Proto,
		ProtoMajor:    req.ProtoMajor,
		ProtoMinor:    req.ProtoMinor,
	}
}
