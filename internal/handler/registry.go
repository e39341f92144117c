package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"puppet-server/internal/relay"
)

type RegistryHandler struct {
	Relay *relay.Service
}

type registerBody struct {
	Name      string `json:"name"`
	OpenAIKey string `json:"openai_key"`
}

func (h *RegistryHandler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	acc, existing, err := h.Relay.Register(c.Request.Context(), body.Name, body.OpenAIKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": acc.ID, "name": acc.DisplayName, "existing": existing})
}

type uidBody struct {
	UID string `json:"uid"`
}

func (h *RegistryHandler) UserDetails(c *gin.Context) {
	var body uidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if body.UID == "" {
		badRequest(c, "Missing uid")
		return
	}

	acc, err := h.Relay.AccountDetails(c.Request.Context(), body.UID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"uid":              acc.ID,
		"name":             acc.DisplayName,
		"openai_key":       acc.Credential,
		"last_prompt_time": millisOrNil(acc.LastPromptAt),
		"last_event_time":  millisOrNil(acc.LastEventAt),
	})
}
