package handler

import (
	"net/http"

	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/stream"
	"github.com/gin-gonic/gin"
)

// StreamJob server sent events until done, timeout or disconnect
// (GET /jobs/{jobId}/stream)
func (p *ProxyHandler) StreamJob(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param(jobIdKey)
	// unknown jobs are refused before the stream starts
	if _, err := p.store.Get(ctx, id, job.BestEffort); err != nil {
		respondError(c, err)
		return
	}
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	if _, err := c.Writer.WriteString(": connected\n\n"); err != nil {
		return
	}
	c.Writer.Flush()

	for ev := range p.streamer.Open(ctx, id) {
		switch ev.Name {
		case stream.EventMessage, stream.EventDone:
			c.SSEvent(ev.Name, p.jobResponse(ctx, ev.Job))
		case stream.EventError:
			c.SSEvent(ev.Name, gin.H{"message": ev.Err.Error()})
		case stream.EventTimeout:
			c.SSEvent(ev.Name, gin.H{"message": "stream timeout, poll the job instead"})
		}
		c.Writer.Flush()
	}
}
