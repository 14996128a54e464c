package capture

import (
	"bytes"
	"net/http"
)

// Recorder wraps a ResponseWriter to observe the final status, size and a
// bounded copy of the body. It is the lifecycle hook the pipeline uses
// instead of patching response finalization: the wrapped writer passes every
// byte through unchanged.
type Recorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	body        bytes.Buffer
	wroteHeader bool
}

func NewRecorder(w http.ResponseWriter) *Recorder {
	return &Recorder{ResponseWriter: w}
}

func (r *Recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *Recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		// net/http writes an implicit 200 on first Write.
		r.status = http.StatusOK
		r.wroteHeader = true
	}
	if remaining := maxBodyBytes - r.body.Len(); remaining > 0 {
		if len(p) <= remaining {
			r.body.Write(p)
		} else {
			r.body.Write(p[:remaining])
		}
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing, so
// streaming handlers behind the recorder still work.
func (r *Recorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Status returns the observed status code. A request that was aborted before
// any write reports 200, matching what net/http would have sent.
func (r *Recorder) Status() int {
	if !r.wroteHeader {
		return http.StatusOK
	}
	return r.status
}

// BytesWritten returns the total response size in bytes.
func (r *Recorder) BytesWritten() int64 { return r.bytes }

// BodyBytes returns the captured body prefix (at most maxBodyBytes).
func (r *Recorder) BodyBytes() []byte { return r.body.Bytes() }

// WroteHeader reports whether any response was observed at all.
func (r *Recorder) WroteHeader() bool { return r.wroteHeader }
