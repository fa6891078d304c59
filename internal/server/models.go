package server

import (
	"net/http"

	"memoai-go/internal/debug"
	apierr "memoai-go/internal/errors"

	"github.com/gin-gonic/gin"
)

func (h *handler) getModels(c *gin.Context) {
	selected, _ := h.deps.Prefs.Get(debug.SelectedModelKey)
	c.JSON(http.StatusOK, gin.H{
		"models":                   h.deps.Registry.Available(),
		"default_text_model":       h.cfg.AI.DefaultTextModel,
		"default_multimodal_model": h.cfg.AI.DefaultMultimodalModel,
		"selected_model":           selected,
	})
}

// selectModel persists the user's model choice. The affordance only exists
// in debug mode, so the endpoint is gated the same way.
func (h *handler) selectModel(c *gin.Context) {
	if !h.cfg.Security.Debug {
		apierr.AbortWith(c, http.StatusForbidden, "forbidden", "model selection requires debug mode")
		return
	}
	var body struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apierr.AbortWith(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if _, ok := h.deps.Registry.Metadata(body.Model); !ok {
		apierr.AbortWith(c, http.StatusBadRequest, "invalid_request", "unknown model: "+body.Model)
		return
	}
	if err := h.deps.Prefs.Set(debug.SelectedModelKey, body.Model); err != nil {
		apierr.AbortWith(c, http.StatusInternalServerError, "internal_error", "failed to persist selection")
		return
	}
	h.deps.State.SetSelectedModel(body.Model)
	c.JSON(http.StatusOK, gin.H{"selected_model": body.Model})
}
