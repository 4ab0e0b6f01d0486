package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/celts/celts-backend/internal/middleware"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/response"
	"github.com/celts/celts-backend/internal/service"
	"github.com/celts/celts-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GradingHandler exposes the faculty grading queue.
type GradingHandler struct {
	gradingService *service.GradingService
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(gradingService *service.GradingService) *GradingHandler {
	return &GradingHandler{gradingService: gradingService}
}

// ListPending godoc
// GET /api/v1/staff/grading/pending?page=&per_page=
// Queued writing/speaking submissions, oldest first.
func (h *GradingHandler) ListPending(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	subs, total, err := h.gradingService.ListPending(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"submissions": subs}, pagination)
}

// GradeSubmission godoc
// POST /api/v1/staff/grading/:id/grade
func (h *GradingHandler) GradeSubmission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.GradeSubmissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.gradingService.Grade(c.Request.Context(), id, req.Band)
	if err != nil {
		h.failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

// OverrideSubmission godoc
// POST /api/v1/staff/grading/:id/override
// Replaces a band with an audited correction; the reason is mandatory.
func (h *GradingHandler) OverrideSubmission(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.OverrideSubmissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.gradingService.Override(c.Request.Context(), claims.UserID, id, req.Band, req.Reason)
	if err != nil {
		h.failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sub})
}

func (h *GradingHandler) failGrading(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrInvalidBand):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidBand)
	case errors.Is(err, service.ErrNotSubjective):
		response.Fail(c, http.StatusConflict, response.ErrNotSubjective)
	case errors.Is(err, service.ErrAlreadyGraded):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyGraded)
	case errors.Is(err, service.ErrNotGradedYet):
		response.Fail(c, http.StatusConflict, response.ErrActionForbidden)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
