package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"puppet-server/internal/model"
	"puppet-server/internal/relay"
)

type HistoryHandler struct {
	Relay *relay.Service
}

func (h *HistoryHandler) GetHistory(c *gin.Context) {
	hist, err := h.Relay.History(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, err)
		return
	}

	history := make([]gin.H, 0, len(hist.History))
	for _, e := range hist.History {
		history = append(history, gin.H{
			"id":         e.ID,
			"prompt":     e.Prompt,
			"response":   e.Response,
			"model":      e.Model,
			"created_at": e.CreatedAt,
		})
	}
	browser := make([]gin.H, 0, len(hist.BrowserHistory))
	for _, e := range hist.BrowserHistory {
		browser = append(browser, gin.H{
			"id":         e.ID,
			"url":        e.Prompt,
			"machineid":  e.MachineID,
			"created_at": e.CreatedAt,
		})
	}
	commands := make([]gin.H, 0, len(hist.Commands))
	for _, cmd := range hist.Commands {
		commands = append(commands, commandView(cmd))
	}
	events := make([]gin.H, 0, len(hist.Events))
	for _, ev := range hist.Events {
		events = append(events, gin.H{"id": ev.ID, "event": ev.Text, "created_at": ev.CreatedAt})
	}

	c.JSON(http.StatusOK, gin.H{
		"history":         history,
		"browser_history": browser,
		"commands":        commands,
		"events":          events,
	})
}

func commandView(cmd model.Command) gin.H {
	return gin.H{
		"id":         cmd.ID,
		"command":    cmd.Instruction,
		"status":     cmd.Status,
		"created_at": cmd.CreatedAt,
		"updated_at": cmd.UpdatedAt,
	}
}

type saveURLBody struct {
	UID       string `json:"uid"`
	MachineID string `json:"machineid"`
	URL       string `json:"url"`
}

func (h *HistoryHandler) SaveURL(c *gin.Context) {
	var body saveURLBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if body.UID == "" {
		badRequest(c, "Missing uid")
		return
	}

	if _, err := h.Relay.SaveURL(c.Request.Context(), body.UID, body.MachineID, body.URL); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
