package server

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
)

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}

// sseStream starts the event stream on first use, so that errors raised
// before any output can still be answered with a plain status code.
type sseStream struct {
	c       *gin.Context
	started bool
}

func (s *sseStream) start() {
	if s.started {
		return
	}
	s.started = true
	s.c.Header("Content-Type", "text/event-stream")
	s.c.Header("Cache-Control", "no-cache")
	s.c.Header("Connection", "keep-alive")
	s.c.Header("X-Accel-Buffering", "no")
	s.c.Status(200)
}

func (s *sseStream) send(event string, data any) {
	s.start()
	writeSSE(s.c.Writer, event, data)
	s.c.Writer.Flush()
}
