package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"puppet-server/internal/relay"
)

type CommandHandler struct {
	Relay *relay.Service
}

type addCommandBody struct {
	UID     string `json:"uid"`
	Command string `json:"command"`
}

func (h *CommandHandler) AddCommand(c *gin.Context) {
	var body addCommandBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if body.UID == "" {
		badRequest(c, "Missing uid")
		return
	}

	cmd, err := h.Relay.Enqueue(c.Request.Context(), body.UID, body.Command)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": cmd.ID})
}

type sendEventBody struct {
	UID   string `json:"uid"`
	Event string `json:"event"`
}

// SendEvent is the client poll: it logs the event and returns the drained commands.
func (h *CommandHandler) SendEvent(c *gin.Context) {
	var body sendEventBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if body.UID == "" {
		badRequest(c, "Missing uid")
		return
	}

	commands, err := h.Relay.Poll(c.Request.Context(), body.UID, body.Event)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": commands})
}
