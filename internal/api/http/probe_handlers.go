package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/livepen/internal/domain/probe"
)

// ProbeRequest carries JavaScript to check
type ProbeRequest struct {
	JS string `json:"js"`
}

// Probe reports the first syntax error in a script without running it
func (h *Handlers) Probe(c *gin.Context) {
	var req ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid probe request")
		return
	}

	diag := probe.Check(req.JS)
	if diag == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         false,
		"diagnostic": diag,
		"text":       diag.String(),
	})
}
