package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/celts/celts-backend/internal/middleware"
	"github.com/celts/celts-backend/internal/model"
	"github.com/celts/celts-backend/internal/service"
	ws "github.com/celts/celts-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the proctored exam channel: autosave, heartbeats,
// violation reports, and submit, all over one socket.
type WSHandler struct {
	attemptService  *service.AttemptService
	securityService *service.SecurityService
	sessionService  *service.DeviceSessionService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	attemptService *service.AttemptService,
	securityService *service.SecurityService,
	sessionService *service.DeviceSessionService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		attemptService:  attemptService,
		securityService: securityService,
		sessionService:  sessionService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
// Upgrades to WebSocket for real-time autosave, violations, and submit.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID

	attempt, err := h.attemptService.GetOwned(c.Request.Context(), studentID, attemptID)
	if err != nil {
		ws.WriteError(conn, "no such attempt")
		return
	}
	if attempt.Status.IsTerminal() {
		ws.WriteError(conn, "attempt already finished")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

		case ws.ActionHeartbeat:
			h.handleHeartbeat(conn, studentID, raw)

		case ws.ActionAutosave:
			h.handleAutosave(conn, studentID, attemptID, raw)

		case ws.ActionViolation:
			if terminated := h.handleViolation(conn, wsLog, studentID, attemptID, raw); terminated {
				return
			}

		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, studentID, attemptID)
			return

		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleHeartbeat(conn *websocket.Conn, studentID int, raw []byte) {
	var msg ws.HeartbeatRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.SessionToken == "" {
		ws.WriteError(conn, "session_token is required")
		return
	}
	token, err := uuid.Parse(msg.SessionToken)
	if err != nil {
		ws.WriteError(conn, "invalid session_token format")
		return
	}

	if _, err := h.sessionService.Heartbeat(context.Background(), studentID, token); err != nil {
		ws.WriteError(conn, "heartbeat rejected")
		return
	}
	ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, studentID int, attemptID uuid.UUID, raw []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Skill == "" || len(msg.Response) == 0 {
		ws.WriteError(conn, "skill and response are required")
		return
	}

	skill := model.SkillType(msg.Skill)
	if !model.ValidSkill(skill) {
		ws.WriteError(conn, "unknown skill: "+msg.Skill)
		return
	}

	req := &model.SaveResponseRequest{Skill: skill, Response: msg.Response}
	if err := h.attemptService.SaveResponse(context.Background(), studentID, attemptID, req); err != nil {
		h.log.Error().Err(err).Int("student_id", studentID).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved"})
}

// handleViolation runs the report through the same ingestion path as the
// REST endpoint and reports back. Returns true when the attempt was
// terminated, which ends the stream.
func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, attemptID uuid.UUID, raw []byte) bool {
	var msg ws.ViolationRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.ViolationType == "" {
		ws.WriteError(conn, "violation_type is required")
		return false
	}

	req := &model.ReportViolationRequest{
		AttemptID:     attemptID,
		ViolationType: msg.ViolationType,
		Details:       msg.Details,
	}
	outcome, err := h.securityService.ReportViolation(context.Background(), studentID, req)
	if err != nil {
		if errors.Is(err, service.ErrUnknownViolationType) {
			ws.WriteError(conn, "unknown violation type, must be one of: "+strings.Join(model.ValidViolationTypes(), ", "))
			return false
		}
		wsLog.Error().Err(err).Msg("Violation report error")
		ws.WriteError(conn, "violation report failed")
		return false
	}

	ws.WriteTyped(conn, ws.ViolationResponse{
		Event:         ws.EventViolation,
		Severity:      string(outcome.Severity),
		ClientAction:  string(outcome.Action),
		SecurityScore: outcome.SecurityScore,
		Terminated:    outcome.Terminated,
	})

	if outcome.Terminated {
		ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventTerminated, Status: "terminated"})
		wsLog.Warn().Msg("Attempt terminated over WebSocket")
		return true
	}
	return false
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, studentID int, attemptID uuid.UUID) {
	if _, err := h.attemptService.Submit(context.Background(), studentID, attemptID); err != nil {
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "submit failed")
		return
	}

	wsLog.Info().Msg("Attempt submitted over WebSocket")
	ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Status: "completed"})
}
