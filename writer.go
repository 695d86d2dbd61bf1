package nextgo

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// responseWriter tracks what the chain did to the response so the
// middleware can tell whether it was addressed.
//
// The pending status starts at 404: a response nobody touched is a miss.
// Status changes are applied on the first Write or WriteHeader. A Write
// before any status was chosen sends 200.
type responseWriter struct {
	http.ResponseWriter

	status      int
	set         bool
	explicit    bool
	wroteHeader bool
	hijacked    bool
	written     int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusNotFound}
}

// setStatus records a pending status without marking it explicit.
func (w *responseWriter) setStatus(code int) {
	if !w.wroteHeader {
		w.status = code
		w.set = true
	}
}

// setExplicitStatus records a status chosen by application code.
func (w *responseWriter) setExplicitStatus(code int) {
	if !w.wroteHeader {
		w.status = code
		w.set = true
		w.explicit = true
	}
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader || w.hijacked {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.hijacked {
		return 0, http.ErrHijacked
	}
	if !w.wroteHeader {
		code := w.status
		if !w.set {
			// A bare Write from a handler means 200, as in net/http.
			code = http.StatusOK
		}
		w.WriteHeader(code)
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *responseWriter) Flush() {
	if !w.wroteHeader {
		code := w.status
		if !w.set {
			code = http.StatusOK
		}
		w.WriteHeader(code)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("nextgo: response writer does not support hijacking")
	}
	conn, rw, err := h.Hijack()
	if err == nil {
		w.hijacked = true
	}
	return conn, rw, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
