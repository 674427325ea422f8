package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/bataryakit/notifier/internal/email"
)

// ListEmailTemplates returns the built-in structured templates.
func (h *Handler) ListEmailTemplates(c *gin.Context) {
	type templateEntry struct {
		Name    string `json:"name"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
		HTML    string `json:"html"`
	}

	names := make([]string, 0, len(email.DefaultTemplates))
	for name := range email.DefaultTemplates {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]templateEntry, 0, len(names))
	for _, name := range names {
		def := email.DefaultTemplates[name]
		result = append(result, templateEntry{
			Name:    name,
			Subject: def.Subject,
			Body:    def.Body,
			HTML:    def.HTML,
		})
	}

	c.JSON(http.StatusOK, result)
}

// SendEmailWithTemplate sends a named template through the dispatcher, which
// renders it under its own deadline.
func (h *Handler) SendEmailWithTemplate(c *gin.Context) {
	var body struct {
		Template  string         `json:"template" binding:"required"`
		To        string         `json:"to" binding:"required"`
		Subject   string         `json:"subject"`
		Variables map[string]any `json:"variables"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.mailer.Send(c.Request.Context(), email.Envelope{
		To:       body.To,
		Subject:  body.Subject,
		Template: &email.TemplateBody{Name: body.Template, Data: body.Variables},
	})
	if err != nil {
		c.JSON(sendErrorStatus(err), gin.H{"error": err.Error(), "kind": email.KindOf(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent", "messageId": id})
}

func sendErrorStatus(err error) int {
	switch email.KindOf(err) {
	case email.KindValidation:
		return http.StatusBadRequest
	case email.KindNotConfigured:
		return http.StatusServiceUnavailable
	case email.KindRenderTimeout, email.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
