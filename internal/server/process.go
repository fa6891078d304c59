package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"memoai-go/internal/ai"
	"memoai-go/internal/debug"
	apierr "memoai-go/internal/errors"
	"memoai-go/internal/notion"

	"github.com/gin-gonic/gin"
)

type processRequest struct {
	Text         string `json:"text" binding:"required"`
	DatabaseID   string `json:"database_id" binding:"required"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
	SaveContent  bool   `json:"save_content"`
}

// processText runs the one-shot flow: analyze the input against the target
// database's schema and create the page.
func (h *handler) processText(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortWith(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ctx := c.Request.Context()

	schema, err := h.deps.Notion.GetDatabaseSchema(ctx, req.DatabaseID)
	if err != nil {
		h.abortNotionError(c, err)
		return
	}
	examples, err := h.deps.Notion.FetchRecentPages(ctx, req.DatabaseID, 3)
	if err != nil {
		h.abortNotionError(c, err)
		return
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = h.deps.Prompts.Default()
	}

	result, err := h.deps.Analyzer.AnalyzeText(ctx, ai.AnalyzeRequest{
		Text:         req.Text,
		Schema:       schema,
		Examples:     examples,
		SystemPrompt: systemPrompt,
		Model:        h.resolveModel(req.Model),
	})
	if err != nil {
		apierr.AbortWith(c, http.StatusBadGateway, "ai_error", err.Error())
		return
	}

	props := notion.SanitizeProperties(result.Properties)
	props = notion.EnsureTitleProperty(props, schema, notion.SanitizeImageData(req.Text))

	page, err := h.deps.Notion.CreatePage(ctx, req.DatabaseID, props)
	if err != nil {
		h.abortNotionError(c, err)
		return
	}
	if req.SaveContent {
		if err := h.deps.Notion.AppendContent(ctx, page.ID, notion.SanitizeImageData(req.Text)); err != nil {
			h.abortNotionError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        page.URL,
		"page_id":    page.ID,
		"properties": json.RawMessage(props),
		"usage":      result.Usage,
		"cost":       result.CostUSD,
		"model":      result.Model,
		"error":      result.FallbackErr,
	})
}

type chatRequest struct {
	Message       string    `json:"message" binding:"required"`
	DatabaseID    string    `json:"database_id"`
	Model         string    `json:"model"`
	SystemPrompt  string    `json:"system_prompt"`
	History       []ai.Turn `json:"session_history"`
	ImageData     string    `json:"image_data"`
	ImageMIMEType string    `json:"image_mime_type"`
}

// chat runs the conversational flow. Without a target database the default
// page schema applies.
func (h *handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortWith(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ctx := c.Request.Context()

	schema := notion.DefaultPageSchema()
	if req.DatabaseID != "" {
		dbSchema, err := h.deps.Notion.GetDatabaseSchema(ctx, req.DatabaseID)
		switch {
		case errors.Is(err, notion.ErrNotDatabase):
			// target is a plain page, keep the default schema
		case err != nil:
			h.abortNotionError(c, err)
			return
		default:
			schema = dbSchema
		}
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = h.deps.Prompts.Default()
	}

	result, err := h.deps.Analyzer.ChatAnalyze(ctx, ai.ChatRequest{
		Text:          req.Message,
		Schema:        schema,
		SystemPrompt:  systemPrompt,
		History:       req.History,
		ImageBase64:   req.ImageData,
		ImageMIMEType: req.ImageMIMEType,
		Model:         h.resolveModel(req.Model),
	})
	if err != nil {
		apierr.AbortWith(c, http.StatusBadGateway, "ai_error", err.Error())
		return
	}

	resp := gin.H{
		"message": result.Message,
		"usage":   result.Usage,
		"cost":    result.CostUSD,
		"model":   result.Model,
	}
	if result.RefinedText != "" {
		resp["refined_text"] = result.RefinedText
	}
	if len(result.Properties) > 0 {
		resp["properties"] = json.RawMessage(result.Properties)
	}
	if result.RawResponse != "" {
		resp["raw_response"] = result.RawResponse
	}
	c.JSON(http.StatusOK, resp)
}

type saveRequest struct {
	DatabaseID string          `json:"database_id" binding:"required"`
	Properties json.RawMessage `json:"properties"`
	Content    string          `json:"content"`
}

// save persists confirmed properties and content, the chat flow's final step.
func (h *handler) save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.AbortWith(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Properties) == 0 && strings.TrimSpace(req.Content) == "" {
		apierr.AbortWith(c, http.StatusBadRequest, "invalid_request", "nothing to save")
		return
	}
	ctx := c.Request.Context()

	schema, err := h.deps.Notion.GetDatabaseSchema(ctx, req.DatabaseID)
	if err != nil {
		h.abortNotionError(c, err)
		return
	}

	props := req.Properties
	if len(props) == 0 {
		props = []byte(`{}`)
	}
	props = notion.SanitizeProperties(props)
	props = notion.EnsureTitleProperty(props, schema, notion.SanitizeImageData(req.Content))

	page, err := h.deps.Notion.CreatePage(ctx, req.DatabaseID, props)
	if err != nil {
		h.abortNotionError(c, err)
		return
	}
	if content := notion.SanitizeImageData(req.Content); content != "" {
		if err := h.deps.Notion.AppendContent(ctx, page.ID, content); err != nil {
			h.abortNotionError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"url": page.URL, "page_id": page.ID})
}

// notionConfigs lists the configuration database rows.
func (h *handler) notionConfigs(c *gin.Context) {
	if h.cfg.Notion.ConfigDatabaseID == "" {
		apierr.AbortWith(c, http.StatusNotFound, "not_configured", "no config database configured")
		return
	}
	entries, err := h.deps.Notion.FetchConfigEntries(c.Request.Context(), h.cfg.Notion.ConfigDatabaseID)
	if err != nil {
		h.abortNotionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": entries})
}

// resolveModel prefers the request's explicit model, then the persisted
// preference. Selection fallback handles the rest.
func (h *handler) resolveModel(requested string) string {
	if requested != "" {
		return requested
	}
	if selected, ok := h.deps.Prefs.Get(debug.SelectedModelKey); ok {
		return selected
	}
	return ""
}

func (h *handler) abortNotionError(c *gin.Context, err error) {
	var statusErr *notion.StatusError
	switch {
	case errors.Is(err, notion.ErrNotDatabase):
		apierr.AbortWith(c, http.StatusBadRequest, "invalid_request", "target is not a database")
	case errors.Is(err, notion.ErrNotFound):
		apierr.AbortWith(c, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &statusErr):
		apierr.AbortWith(c, http.StatusBadGateway, "notion_error", err.Error())
	default:
		apierr.AbortWith(c, http.StatusBadGateway, "notion_error", err.Error())
	}
}
