package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"puppet-server/internal/gateway"
)

type CompletionHandler struct {
	Gateway *gateway.Gateway
}

type assistBody struct {
	UID     string `json:"uid"`
	Prompt  string `json:"prompt"`
	Version string `json:"version"`
}

func (h *CompletionHandler) Assist(c *gin.Context) {
	var body assistBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if body.UID == "" {
		badRequest(c, "Missing uid")
		return
	}

	out, err := h.Gateway.Complete(c.Request.Context(), body.UID, body.Prompt, body.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type adblockBody struct {
	UID     string `json:"uid"`
	URL     string `json:"url"`
	Version string `json:"version"`
}

func (h *CompletionHandler) AdblockFilter(c *gin.Context) {
	var body adblockBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	verdict, err := h.Gateway.ContentFilter(c.Request.Context(), body.UID, body.URL, body.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}
