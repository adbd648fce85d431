package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	SSEPingIntervalS = 30
	SSEContentType   = "text/event-stream; charset=utf-8"
)

// SSEWriter pushes JSON-RPC traffic down one event stream. Writes may come
// from the process worker, the ping loop and event publishers concurrently,
// so every write holds the lock.
type SSEWriter struct {
	id string
	c  *gin.Context
	mu sync.Mutex
}

func NewSSEWriter(c *gin.Context, id string) *SSEWriter {
	c.Writer.Header().Set("Content-Type", SSEContentType)
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	w := &SSEWriter{
		id: id,
		c:  c,
	}
	w.writeEndpoint()
	go w.ping()
	return w
}

// WriteJSON serializes v and pushes it as a message event.
func (w *SSEWriter) WriteJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Err(err).Str("session_id", w.id).Msg("failed to marshal sse payload")
		return
	}
	w.WriteEvent("message", string(b))
}

func (w *SSEWriter) WriteEvent(event string, data string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.c.Writer, "event: %s\n", event)
	fmt.Fprintf(w.c.Writer, "data: %s\n\n", data)
	w.c.Writer.Flush()
}

func (w *SSEWriter) ping() {
	for {
		select {
		case <-time.After(time.Second * SSEPingIntervalS):
			w.writePing()
		case <-w.c.Request.Context().Done():
			return
		}
	}
}

// writeEndpoint tells the client where to POST its messages:
//
//	event: endpoint
//	data: /message?session_id=285d67ee-1c17-40d9-ab03-173d5ff48419
func (w *SSEWriter) writeEndpoint() {
	w.WriteEvent("endpoint", fmt.Sprintf("/message?session_id=%s", w.id))
}

func (w *SSEWriter) writePing() {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.c.Writer, ": ping - %s\n\n", time.Now().UTC().Format(time.RFC3339))
	w.c.Writer.Flush()
}
