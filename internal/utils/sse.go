package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// FrameWriter emits the line-delimited streaming protocol over one HTTP
// response body: each frame is a "data: " line carrying a JSON payload.
type FrameWriter struct {
	w http.ResponseWriter
}

func NewFrameWriter(w http.ResponseWriter) *FrameWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &FrameWriter{w: w}
}

// WriteFrame marshals payload and writes it as one frame, flushing
// immediately so tokens reach the consumer as they are produced.
func (f *FrameWriter) WriteFrame(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(f.w, "data: %s\n", data); err != nil {
		return err
	}

	f.flush()
	return nil
}

// WriteKeepAlive emits a blank line. Consumers discard it; it only keeps
// intermediaries from closing an idle connection.
func (f *FrameWriter) WriteKeepAlive() error {
	if _, err := fmt.Fprint(f.w, "\n"); err != nil {
		return err
	}

	f.flush()
	return nil
}

func (f *FrameWriter) flush() {
	if flusher, ok := f.w.(http.Flusher); ok {
		flusher.Flush()
	}
}
