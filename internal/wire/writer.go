package wire

import (
	"net/http"
	"strconv"
)

// Encoder writes Values to an HTTP response
type Encoder struct {
	writer http.ResponseWriter
}

// NewEncoder initializes an Encoder over a response writer
func NewEncoder(w http.ResponseWriter) *Encoder {
	return &Encoder{writer: w}
}

// Write sets the headers and writes the status and body of v
func (e *Encoder) Write(v Value) error {
	h := e.writer.Header()
	h.Set("Content-Type", ContentType)

	if !bodyAllowed(v.Status) {
		e.writer.WriteHeader(v.Status)
		return nil
	}

	h.Set("Content-Length", strconv.Itoa(len(v.Body)))
	e.writer.WriteHeader(v.Status)

	if len(v.Body) == 0 {
		return nil
	}
	_, err := e.writer.Write(v.Body)
	return err
}

// WriteHeader sends only the headers of v, as a HEAD response does
func (e *Encoder) WriteHeader(v Value) {
	e.writer.Header().Set("Content-Type", ContentType)
	e.writer.WriteHeader(v.Status)
}

// bodyAllowed reports whether a status may carry a body and a Content-Length
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
