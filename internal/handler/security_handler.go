package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/celts/celts-backend/internal/middleware"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/response"
	"github.com/celts/celts-backend/internal/service"
	"github.com/celts/celts-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SecurityHandler exposes the proctoring surface: device sessions, the
// attempt lifecycle, violation reports, and the server-side timer.
type SecurityHandler struct {
	sessionService  *service.DeviceSessionService
	attemptService  *service.AttemptService
	securityService *service.SecurityService
}

// NewSecurityHandler creates a new SecurityHandler.
func NewSecurityHandler(
	sessionService *service.DeviceSessionService,
	attemptService *service.AttemptService,
	securityService *service.SecurityService,
) *SecurityHandler {
	return &SecurityHandler{
		sessionService:  sessionService,
		attemptService:  attemptService,
		securityService: securityService,
	}
}

// StartSession godoc
// POST /api/v1/security/session/start
// Issues a device session token, terminating any previous active session.
func (h *SecurityHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), claims.UserID, &req, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// ValidateSession godoc
// POST /api/v1/security/session/validate
func (h *SecurityHandler) ValidateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.ValidateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.ValidateExamContext(c.Request.Context(), claims.UserID, uuid.MustParse(req.Token), req.TestID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Heartbeat godoc
// POST /api/v1/security/session/heartbeat
func (h *SecurityHandler) Heartbeat(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.HeartbeatRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Heartbeat(c.Request.Context(), claims.UserID, uuid.MustParse(req.Token))
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"last_activity_at": session.LastActivityAt})
}

// EndSession godoc
// POST /api/v1/security/session/end
func (h *SecurityHandler) EndSession(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.HeartbeatRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.End(c.Request.Context(), claims.UserID, uuid.MustParse(req.Token)); err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// RecoverSession godoc
// GET /api/v1/security/session/recover
// Returns the caller's active session after a reload or crash.
func (h *SecurityHandler) RecoverSession(c *gin.Context) {
	claims := middleware.GetClaims(c)

	session, err := h.sessionService.Recover(c.Request.Context(), claims.UserID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// StartExam godoc
// POST /api/v1/security/exam/start
// Opens an attempt. Requires a validated device session token.
func (h *SecurityHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.ValidateExamContext(c.Request.Context(), claims.UserID, uuid.MustParse(req.SessionToken), &req.TestID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), claims.UserID, req.TestID, session)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotAvailable):
			response.Fail(c, http.StatusConflict, response.ErrTestNotAvailable)
		case errors.Is(err, service.ErrAttemptInProgress):
			response.Fail(c, http.StatusConflict, response.ErrAttemptInProgress)
		case errors.Is(err, service.ErrRetryNotAllowed):
			response.Fail(c, http.StatusForbidden, response.ErrRetryNotAllowed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// SubmitExam godoc
// POST /api/v1/security/exam/submit
// Finishes the attempt on the student's request and applies the lockdown.
func (h *SecurityHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.FinishAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), claims.UserID, req.AttemptID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// EndExam godoc
// POST /api/v1/security/exam/end
// Records that the student left without submitting.
func (h *SecurityHandler) EndExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.FinishAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), claims.UserID, req.AttemptID); err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ReportViolation godoc
// POST /api/v1/security/violations
// Ingests one proctoring violation. Unknown types get a 400 with the list
// of accepted values.
func (h *SecurityHandler) ReportViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	outcome, err := h.securityService.ReportViolation(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownViolationType):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrUnknownViolation, map[string]string{
				"violation_type": "must be one of: " + strings.Join(model.ValidViolationTypes(), ", "),
			})
		case errors.Is(err, service.ErrAttemptLockedDown):
			response.Fail(c, http.StatusConflict, response.ErrAttemptLocked)
		default:
			h.failAttempt(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": outcome})
}

// SecurityStatus godoc
// GET /api/v1/security/attempts/:attempt_id/status
func (h *SecurityHandler) SecurityStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	security, err := h.securityService.Status(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"security": security,
		"budget":   security.Budget(),
	})
}

// SecurityStatusForStaff godoc
// GET /api/v1/staff/attempts/:attempt_id/security
// Proctoring state of any attempt, no ownership check.
func (h *SecurityHandler) SecurityStatusForStaff(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	security, err := h.securityService.StatusForStaff(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrSecurityNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"security": security,
		"budget":   security.Budget(),
	})
}

// RemainingTime godoc
// GET /api/v1/security/attempts/:attempt_id/time
// Server-side countdown, never negative.
func (h *SecurityHandler) RemainingTime(c *gin.Context) {
	claims := middleware.GetClaims(c)

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	remaining, err := h.attemptService.Remaining(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"timer": remaining})
}

func (h *SecurityHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionMismatch):
		response.Fail(c, http.StatusUnauthorized, response.ErrNoDeviceSession)
	case errors.Is(err, service.ErrSessionNotActive), errors.Is(err, service.ErrSessionIdle):
		response.Fail(c, http.StatusUnauthorized, response.ErrDeviceSessionStale)
	case errors.Is(err, service.ErrSessionTestMismatch), errors.Is(err, service.ErrSessionAttemptStale):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func (h *SecurityHandler) failAttempt(c *gin.Context, err error) {
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
}
