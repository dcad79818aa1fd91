package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"listings-cms/models"

	"github.com/gin-gonic/gin"
)

const maxAuditBody = 64 << 10

var sensitiveFields = []string{"password", "token", "secret"}

// AuditSink receives one event per audited request. *services.AuditLogger satisfies it.
type AuditSink interface {
	Record(event *models.AuditEvent)
}

// AuditMiddleware records every write request on a matched route, after it completes.
func AuditMiddleware(sink AuditSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		// Capture request body for audit (skip multipart and cap size)
		var bodyBytes []byte
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			bodyBytes, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), c.Request.Body))
		}

		c.Next()

		if c.FullPath() == "" {
			return
		}
		sink.Record(createAuditEvent(c, bodyBytes))
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func createAuditEvent(c *gin.Context, bodyBytes []byte) *models.AuditEvent {
	status := c.Writer.Status()
	event := &models.AuditEvent{
		Admin:      GetUsername(c),
		Action:     auditAction(c.Request.Method, c.FullPath()),
		Resource:   auditResource(c.FullPath()),
		ResourceID: c.Param("id"),
		Status:     status,
		Success:    status < http.StatusBadRequest,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		RequestID:  GetRequestID(c),
		Changes:    extractChanges(bodyBytes),
	}

	if event.Action == models.AuditLogin && event.Admin == "" {
		if username, ok := event.Changes["username"].(string); ok {
			event.Admin = username
		}
	}
	return event
}

func auditAction(method, fullPath string) string {
	switch {
	case strings.HasSuffix(fullPath, "/admin/login"):
		return models.AuditLogin
	case strings.HasSuffix(fullPath, "/admin/logout"):
		return models.AuditLogout
	case strings.HasSuffix(fullPath, "/video"):
		// The banner is a singleton; POST replaces it.
		return models.AuditUpdate
	}

	switch method {
	case http.MethodPost:
		return models.AuditCreate
	case http.MethodPut, http.MethodPatch:
		return models.AuditUpdate
	case http.MethodDelete:
		return models.AuditDelete
	}
	return method
}

// auditResource maps "/api/profiles/:id" to "profiles".
func auditResource(fullPath string) string {
	rest := strings.TrimPrefix(fullPath, "/api/")
	resource, _, _ := strings.Cut(rest, "/")
	return resource
}

func extractChanges(bodyBytes []byte) map[string]any {
	if len(bodyBytes) == 0 {
		return nil
	}

	var body map[string]any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		return nil
	}

	for key := range body {
		if isSensitive(key) {
			body[key] = "[REDACTED]"
		}
	}
	return body
}

func isSensitive(field string) bool {
	lower := strings.ToLower(field)
	for _, s := range sensitiveFields {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
