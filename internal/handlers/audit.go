package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightboard/contentforge-backend/internal/repos"
)

type AuditHandler struct {
	logs repos.JobExecutionLogRepo
}

func NewAuditHandler(logs repos.JobExecutionLogRepo) *AuditHandler {
	return &AuditHandler{logs: logs}
}

// GET /api/audit?entity_type=...&entity_id=...
func (h *AuditHandler) ListByEntity(c *gin.Context) {
	entityType := c.Query("entity_type")
	if entityType == "" {
		RespondError(c, http.StatusBadRequest, "missing_entity_type", errors.New("entity_type is required"))
		return
	}
	entityID, err := uuid.Parse(c.Query("entity_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_entity_id", err)
		return
	}
	entries, err := h.logs.ListByEntity(c.Request.Context(), nil, entityType, entityID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}

	RespondOK(c, gin.H{"entries": entries})
}
