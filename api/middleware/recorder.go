package middleware

import (
	"bytes"
	"net/http"
)

// responseRecorder remembers the status and size written by downstream
// handlers. When capture is set it also keeps a copy of the body.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int
	capture bool
	body    bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter, capture bool) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, capture: capture}
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.capture {
		r.body.Write(b)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Status reports 200 for handlers that never wrote a header.
func (r *responseRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseRecorder) wroteHeader() bool {
	return r.status != 0
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
