package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightboard/contentforge-backend/internal/services"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type JobsHandler struct {
	jobs services.JobService
}

func NewJobsHandler(jobs services.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

type submitJobRequest struct {
	JobType    string         `json:"job_type"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
}

// POST /api/jobs
func (h *JobsHandler) SubmitJob(c *gin.Context) {
	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	jobType := types.HydrationJobType(req.JobType)
	if !jobType.Valid() {
		RespondError(c, http.StatusBadRequest, "invalid_job_type", errors.New("unknown job_type"))
		return
	}
	if req.EntityType == "" || req.EntityID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "invalid_entity", errors.New("entity_type and entity_id are required"))
		return
	}

	res, err := h.jobs.SubmitJob(c.Request.Context(), jobType, req.EntityType, req.EntityID, req.Payload)
	if err != nil {
		if errors.Is(err, services.ErrMetadataUnresolved) {
			RespondError(c, http.StatusUnprocessableEntity, "metadata_unresolved", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "submit_failed", err)
		return
	}

	RespondCreated(c, gin.H{"job_id": res.JobID})
}

// GET /api/jobs/:id/tree
func (h *JobsHandler) GetJobTree(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	tree, err := h.jobs.GetJobTree(c.Request.Context(), jobID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}

	RespondOK(c, gin.H{"tree": tree})
}
