package web

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// events streams the session value to open pages as server-sent events.
// The current value is sent first; pages compare it with the value they
// were rendered with and reload on mismatch, so a change between render
// and connect is not lost.
func (s *Server) events(c *gin.Context) {
	// Only the latest value matters; a slow reader sees the newest one.
	updates := make(chan bool, 1)
	cancel := s.holder.Subscribe(func(authenticated bool) {
		select {
		case updates <- authenticated:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- authenticated:
			default:
			}
		}
	})
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	c.SSEvent("session", strconv.FormatBool(s.holder.Authenticated()))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-s.done:
			return false
		case authenticated := <-updates:
			c.SSEvent("session", strconv.FormatBool(authenticated))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}
