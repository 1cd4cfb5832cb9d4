package sse

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stream writes each value read from ch as one SSE frame of the given event
// type until the client disconnects or ch is closed. It is used for
// projection endpoints that push a full snapshot per change.
func Stream(c *gin.Context, eventType string, ch <-chan interface{}) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(v)
			if err != nil {
				log.Printf("[SSE] failed to marshal %s snapshot: %v", eventType, err)
				continue
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventType, payload)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

// Coalesce offers v to ch, replacing any snapshot still waiting in the
// buffer. Snapshots are full state, so only the newest one matters.
func Coalesce(ch chan interface{}, v interface{}) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
