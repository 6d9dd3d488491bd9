package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/sentinel/internal/features"
	"github.com/mbd888/sentinel/internal/health"
	"github.com/mbd888/sentinel/internal/logging"
	"github.com/mbd888/sentinel/internal/patterns"
	"github.com/mbd888/sentinel/internal/validation"
)

// analyzeRequest is the transport DTO for POST /v1/analyze. Optional
// fields are pointers so absence is distinguishable from zero; defaults
// are applied here, at the boundary, before the engine sees the event.
type analyzeRequest struct {
	Amount               *float64 `json:"amount"`
	ExecutionTimeSeconds float64  `json:"executionTimeSeconds"`
	ContractInteractions int      `json:"contractInteractions"`
	TimestampMillis      *int64   `json:"timestampMillis"`
	SenderScore          *float64 `json:"senderScore"`
	HasPersonalData      bool     `json:"hasPersonalData"`
	Jurisdiction         string   `json:"jurisdiction"`
	ConsentGiven         *bool    `json:"consentGiven"`
	TreasurySize         *float64 `json:"treasurySize"`
}

func (r *analyzeRequest) toEvent() *features.TransactionEvent {
	e := &features.TransactionEvent{
		ExecutionTimeSeconds: r.ExecutionTimeSeconds,
		ContractInteractions: r.ContractInteractions,
		SenderScore:          features.DefaultSenderScore,
		HasPersonalData:      r.HasPersonalData,
		Jurisdiction:         validation.NormalizeJurisdiction(validation.SanitizeString(r.Jurisdiction, 8)),
		ConsentGiven:         true,
		TreasurySize:         features.DefaultTreasurySize,
	}
	if r.Amount != nil {
		e.Amount = *r.Amount
	}
	if r.TimestampMillis != nil {
		e.TimestampMillis = *r.TimestampMillis
	} else {
		e.TimestampMillis = time.Now().UnixMilli()
	}
	if r.SenderScore != nil {
		e.SenderScore = *r.SenderScore
	}
	if r.ConsentGiven != nil {
		e.ConsentGiven = *r.ConsentGiven
	}
	if r.TreasurySize != nil {
		e.TreasurySize = *r.TreasurySize
	}
	return e
}

// analyzeHandler handles POST /v1/analyze
func (s *Server) analyzeHandler(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	if verrs := validation.Validate(
		validation.MaxLength("jurisdiction", req.Jurisdiction, 8),
		validation.ValidJurisdiction("jurisdiction", req.Jurisdiction),
	); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": verrs.Error(),
		})
		return
	}

	decision, err := s.engine.Analyze(c.Request.Context(), req.toEvent())
	if err != nil {
		if errors.Is(err, features.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_event",
				"message": err.Error(),
			})
			return
		}
		logging.L(c.Request.Context()).Error("analyze failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "analyze_failed",
			"message": "Failed to analyze transaction",
		})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// outcomeRequest is the transport DTO for POST /v1/decisions/:id/outcome.
type outcomeRequest struct {
	Outcome string `json:"outcome"`
}

// outcomeHandler handles POST /v1/decisions/:id/outcome
func (s *Server) outcomeHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "Decision id must be an integer",
		})
		return
	}

	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	if verrs := validation.Validate(
		validation.Required("outcome", req.Outcome),
	); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": verrs.Error(),
		})
		return
	}

	var outcome patterns.Outcome
	switch req.Outcome {
	case string(patterns.OutcomeThreat):
		outcome = patterns.OutcomeThreat
	case string(patterns.OutcomeSafe):
		outcome = patterns.OutcomeSafe
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_outcome",
			"message": "Outcome must be \"threat\" or \"safe\"",
		})
		return
	}

	if !s.engine.RecordOutcome(c.Request.Context(), id, outcome) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown_decision",
			"message": "No decision with this id is held in pattern memory",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decisionId": id,
		"outcome":    outcome,
		"recorded":   true,
	})
}

// listDecisionsHandler handles GET /v1/decisions
func (s *Server) listDecisionsHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	decisions, err := s.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("list decisions failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list decisions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

// engineMetricsHandler handles GET /v1/metrics
func (s *Server) engineMetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.GetMetrics())
}

// engineInfoHandler handles GET /v1/engine
func (s *Server) engineInfoHandler(c *gin.Context) {
	info := gin.H{
		"memorySize":     s.memory.Len(),
		"memoryCapacity": s.memory.Capacity(),
	}
	if s.guardian != nil {
		info["profile"] = s.guardian.Profile()
		info["guardianDecisions"] = s.guardian.Decisions()
	}
	c.JSON(http.StatusOK, info)
}

// realtimeStatsHandler handles GET /v1/realtime/stats
func (s *Server) realtimeStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.realtimeHub.Stats())
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.checks.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Sentinel",
		"description": "Consensus threat-scoring engine for financial transactions",
		"version":     "0.1.0",
		"scorers":     []string{"risk", "privacy_compliance", "treasury_impact", "guardian"},
	})
}
