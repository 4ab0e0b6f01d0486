package handler

import (
	"errors"
	"net/http"

	"github.com/celts/celts-backend/internal/middleware"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/response"
	"github.com/celts/celts-backend/internal/service"
	"github.com/celts/celts-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StudentPortalHandler serves the student-facing exam surface: the test
// list, the cached paper, response autosave, and personal results.
type StudentPortalHandler struct {
	testService    *service.TestService
	attemptService *service.AttemptService
	statsService   *service.StatsService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	testService *service.TestService,
	attemptService *service.AttemptService,
	statsService *service.StatsService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		testService:    testService,
		attemptService: attemptService,
		statsService:   statsService,
	}
}

// ListTests godoc
// GET /api/v1/student/tests
// Published tests with the caller's attempt history overlaid.
func (h *StudentPortalHandler) ListTests(c *gin.Context) {
	claims := middleware.GetClaims(c)

	tests, err := h.testService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	attempts, err := h.attemptService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	latestByTest := make(map[uuid.UUID]*model.TestAttempt, len(attempts))
	for i := range attempts {
		if _, ok := latestByTest[attempts[i].TestID]; !ok {
			latestByTest[attempts[i].TestID] = &attempts[i]
		}
	}

	type listedTest struct {
		model.Test
		LatestAttempt *model.TestAttempt `json:"latest_attempt,omitempty"`
	}
	listed := make([]listedTest, len(tests))
	for i, t := range tests {
		listed[i] = listedTest{Test: t, LatestAttempt: latestByTest[t.ID]}
	}

	response.Success(c, http.StatusOK, gin.H{"tests": listed})
}

// GetPaper godoc
// GET /api/v1/student/tests/:id/paper
// The cached question paper, without correct answers. Requires an active
// attempt on the test.
func (h *StudentPortalHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// The paper is only served while the student holds a started attempt.
	attempts, err := h.attemptService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	hasActive := false
	for _, a := range attempts {
		if a.TestID == testID && a.Status == model.AttemptStarted {
			hasActive = true
			break
		}
	}
	if !hasActive {
		response.Fail(c, http.StatusForbidden, response.ErrNoDeviceSession)
		return
	}

	paper, err := h.testService.GetPaper(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotPublished) {
			response.Fail(c, http.StatusConflict, response.ErrTestNotPublished)
			return
		}
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// SaveResponse godoc
// POST /api/v1/student/attempts/:id/responses
// Autosaves one skill's response draft.
func (h *StudentPortalHandler) SaveResponse(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveResponseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveResponse(c.Request.Context(), claims.UserID, attemptID, &req); err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAttemptOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		case errors.Is(err, service.ErrAttemptFinished):
			response.Fail(c, http.StatusConflict, response.ErrAttemptLocked)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// GetDrafts godoc
// GET /api/v1/student/attempts/:id/responses
// Returns the autosaved drafts for crash recovery.
func (h *StudentPortalHandler) GetDrafts(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	drafts, err := h.attemptService.Drafts(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAttemptOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"drafts": drafts})
}

// ListAttempts godoc
// GET /api/v1/student/attempts
func (h *StudentPortalHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attempts, err := h.attemptService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetStats godoc
// GET /api/v1/student/stats
// The caller's rolling per-skill and overall bands.
func (h *StudentPortalHandler) GetStats(c *gin.Context) {
	claims := middleware.GetClaims(c)

	stats, err := h.statsService.GetForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
