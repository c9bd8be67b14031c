package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightboard/contentforge-backend/internal/services"
)

type PromotionHandler struct {
	promotions services.PromotionService
}

func NewPromotionHandler(promotions services.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

type approveCandidateRequest struct {
	ApprovedBy uuid.UUID `json:"approved_by"`
}

// POST /api/promotion-candidates/:id/approve
func (h *PromotionHandler) ApproveCandidate(c *gin.Context) {
	candID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_candidate_id", err)
		return
	}
	var req approveCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if req.ApprovedBy == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "missing_approver", errors.New("approved_by is required"))
		return
	}

	published, err := h.promotions.ApproveCandidate(c.Request.Context(), candID, req.ApprovedBy)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCandidateNotFound):
			RespondError(c, http.StatusNotFound, "candidate_not_found", err)
		case errors.Is(err, services.ErrCandidateFinalized):
			RespondError(c, http.StatusConflict, "candidate_already_finalized", err)
		default:
			RespondError(c, http.StatusInternalServerError, "approve_failed", err)
		}
		return
	}

	RespondOK(c, gin.H{"published": published})
}

type rejectCandidateRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
}

// POST /api/promotion-candidates/:id/reject
func (h *PromotionHandler) RejectCandidate(c *gin.Context) {
	candID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_candidate_id", err)
		return
	}
	var req rejectCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if err := h.promotions.RejectCandidate(c.Request.Context(), candID, req.ActorID); err != nil {
		switch {
		case errors.Is(err, services.ErrCandidateNotFound):
			RespondError(c, http.StatusNotFound, "candidate_not_found", err)
		case errors.Is(err, services.ErrCandidateFinalized):
			RespondError(c, http.StatusConflict, "candidate_already_finalized", err)
		default:
			RespondError(c, http.StatusInternalServerError, "reject_failed", err)
		}
		return
	}

	RespondOK(c, gin.H{"rejected": true})
}
