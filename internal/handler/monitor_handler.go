package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/response"
	"github.com/celts/celts-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams live proctoring activity to faculty over SSE.
type MonitorHandler struct {
	rdb            *redis.Client
	testService    *service.TestService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	testService *service.TestService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		testService:    testService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// GetSnapshot godoc
// GET /api/v1/staff/tests/:id/monitor/snapshot
// One-shot aggregate view for dashboards that don't hold an SSE stream.
func (h *MonitorHandler) GetSnapshot(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snapshot, err := h.monitorService.Snapshot(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"snapshot": snapshot})
}

// MonitorTestSSE godoc
// GET /api/v1/staff/tests/:id/monitor
// Live event stream: attempt starts/finishes, violations, and terminations,
// interleaved with periodic aggregate refreshes.
func (h *MonitorHandler) MonitorTestSSE(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Initial aggregate snapshot before the live stream starts.
	h.sendSnapshot(c, reqCtx, testID, test.Title)

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.TestMonitorChannel(testID))
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("test_id", testID.String()).Msg("Faculty attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("test_id", testID.String()).Msg("Faculty disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendSnapshot(c, reqCtx, testID, test.Title)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot fetches the aggregate counters with a timeout and writes one
// SSE event.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, ctx context.Context, testID uuid.UUID, title string) {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	snapshot, err := h.monitorService.Snapshot(fetchCtx, testID)
	if err != nil {
		h.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Monitor snapshot fetch failed")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"test": map[string]interface{}{
				"id":    testID.String(),
				"title": title,
			},
			"stats": snapshot,
		},
	})
	c.Writer.Flush()
}
