package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightboard/contentforge-backend/internal/services"
)

type RegenerationHandler struct {
	regen   services.RegenerationService
	intents services.RetryIntentService
}

func NewRegenerationHandler(regen services.RegenerationService, intents services.RetryIntentService) *RegenerationHandler {
	return &RegenerationHandler{regen: regen, intents: intents}
}

// POST /api/regenerations
func (h *RegenerationHandler) SubmitRegeneration(c *gin.Context) {
	var req services.SubmitRegenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	job, err := h.regen.SubmitRegeneration(c.Request.Context(), req)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "submit_failed", err)
		return
	}

	RespondCreated(c, gin.H{"job": job})
}

// GET /api/regenerations/:id
func (h *RegenerationHandler) GetRegeneration(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.regen.GetRegenerationJob(c.Request.Context(), jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", errors.New("regeneration job not found"))
		return
	}

	RespondOK(c, gin.H{"job": job})
}

type createRetryIntentRequest struct {
	SourceJobID uuid.UUID `json:"source_job_id"`
	ReasonCode  string    `json:"reason_code"`
	ReasonText  string    `json:"reason_text"`
	ApprovedBy  uuid.UUID `json:"approved_by"`
}

// POST /api/retry-intents
func (h *RegenerationHandler) CreateRetryIntent(c *gin.Context) {
	var req createRetryIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	intent, err := h.intents.CreateRetryIntent(c.Request.Context(), req.SourceJobID, req.ReasonCode, req.ReasonText, req.ApprovedBy)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSourceJobNotFound):
			RespondError(c, http.StatusNotFound, "source_job_not_found", err)
		case errors.Is(err, services.ErrSourceJobNotFailed):
			RespondError(c, http.StatusConflict, "source_job_not_failed", err)
		default:
			RespondError(c, http.StatusBadRequest, "create_failed", err)
		}
		return
	}

	RespondCreated(c, gin.H{"intent": intent})
}

// POST /api/retry-intents/:id/consume
func (h *RegenerationHandler) ConsumeRetryIntent(c *gin.Context) {
	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_intent_id", err)
		return
	}
	retry, err := h.intents.CreateRetryJobFromIntent(c.Request.Context(), intentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIntentNotFound):
			RespondError(c, http.StatusNotFound, "intent_not_found", err)
		case errors.Is(err, services.ErrIntentAlreadyFinalized):
			RespondError(c, http.StatusConflict, "intent_already_finalized", err)
		default:
			RespondError(c, http.StatusInternalServerError, "consume_failed", err)
		}
		return
	}

	RespondCreated(c, gin.H{"retry_job": retry})
}

type rejectRetryIntentRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
}

// POST /api/retry-intents/:id/reject
func (h *RegenerationHandler) RejectRetryIntent(c *gin.Context) {
	intentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_intent_id", err)
		return
	}
	var req rejectRetryIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if err := h.intents.RejectRetryIntent(c.Request.Context(), intentID, req.ActorID); err != nil {
		switch {
		case errors.Is(err, services.ErrIntentNotFound):
			RespondError(c, http.StatusNotFound, "intent_not_found", err)
		case errors.Is(err, services.ErrIntentAlreadyFinalized):
			RespondError(c, http.StatusConflict, "intent_already_finalized", err)
		default:
			RespondError(c, http.StatusInternalServerError, "reject_failed", err)
		}
		return
	}

	RespondOK(c, gin.H{"rejected": true})
}
