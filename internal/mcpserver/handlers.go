package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *SentinelClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *SentinelClient) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeTransaction scores one transaction.
func (h *Handlers) HandleAnalyzeTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	event := map[string]any{
		"amount":               req.GetFloat("amount", 0),
		"executionTimeSeconds": req.GetFloat("execution_time_seconds", 0),
		"contractInteractions": int(req.GetFloat("contract_interactions", 0)),
		"hasPersonalData":      req.GetBool("has_personal_data", false),
		"jurisdiction":         req.GetString("jurisdiction", ""),
	}
	// Optional fields are passed only when set so the API applies its
	// documented defaults.
	args := req.GetArguments()
	if _, ok := args["sender_score"]; ok {
		event["senderScore"] = req.GetFloat("sender_score", 50)
	}
	if _, ok := args["consent_given"]; ok {
		event["consentGiven"] = req.GetBool("consent_given", true)
	}
	if _, ok := args["treasury_size"]; ok {
		event["treasurySize"] = req.GetFloat("treasury_size", 0)
	}

	raw, err := h.client.Analyze(ctx, event)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	text, err := formatDecision(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse decision: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleRecordOutcome reports ground truth for a decision.
func (h *Handlers) HandleRecordOutcome(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decisionID := int64(req.GetFloat("decision_id", 0))
	if decisionID <= 0 {
		return mcp.NewToolResultError("decision_id is required"), nil
	}
	outcome := req.GetString("outcome", "")
	if outcome != "threat" && outcome != "safe" {
		return mcp.NewToolResultError("outcome must be 'threat' or 'safe'"), nil
	}

	if _, err := h.client.RecordOutcome(ctx, decisionID, outcome); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to record outcome: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Outcome recorded: decision %d was %s. Scorer accuracy counters updated.",
		decisionID, outcome)), nil
}

// HandleGetEngineMetrics returns lifetime engine counters.
func (h *Handlers) HandleGetEngineMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetMetrics(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get metrics: %v", err)), nil
	}

	text, err := formatMetrics(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse metrics: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListRecentDecisions lists recent audit-store decisions.
func (h *Handlers) HandleListRecentDecisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 20))

	raw, err := h.client.ListDecisions(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list decisions: %v", err)), nil
	}

	text, err := formatDecisionList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse decisions: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// -----------------------------------------------------------------------------
// Formatting
// -----------------------------------------------------------------------------

type decisionView struct {
	ConsensusScore  int     `json:"consensusScore"`
	Action          string  `json:"action"`
	Reasoning       string  `json:"reasoning"`
	Confidence      float64 `json:"confidence"`
	Fingerprint     string  `json:"fingerprint"`
	DecisionID      int64   `json:"decisionId"`
	ScorerBreakdown map[string]struct {
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
		Degraded  bool    `json:"degraded"`
	} `json:"scorerBreakdown"`
}

func formatDecision(raw json.RawMessage) (string, error) {
	var d decisionView
	if err := json.Unmarshal(raw, &d); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Decision #%d: %s (consensus %d/100, confidence %.2f)\n",
		d.DecisionID, strings.ToUpper(d.Action), d.ConsensusScore, d.Confidence)
	fmt.Fprintf(&sb, "Reasoning: %s\n", d.Reasoning)
	fmt.Fprintf(&sb, "Fingerprint: %s\n", d.Fingerprint)

	if len(d.ScorerBreakdown) > 0 {
		sb.WriteString("\nScorer breakdown:\n")
		for _, name := range []string{"risk", "privacyCompliance", "treasuryImpact", "guardian"} {
			r, ok := d.ScorerBreakdown[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "  %-18s %5.1f", name, r.Score)
			if r.Degraded {
				sb.WriteString("  (degraded)")
			}
			if r.Reasoning != "" {
				fmt.Fprintf(&sb, "  %s", r.Reasoning)
			}
			sb.WriteString("\n")
		}
	}

	fmt.Fprintf(&sb, "\nUse record_outcome with decision_id %d once ground truth is known.", d.DecisionID)
	return sb.String(), nil
}

func formatMetrics(raw json.RawMessage) (string, error) {
	var m struct {
		TotalAnalyses     int64 `json:"totalAnalyses"`
		ThreatsFlagged    int64 `json:"threatsFlagged"`
		MemorySize        int   `json:"memorySize"`
		PerScorerAccuracy map[string]struct {
			Correct         int64   `json:"correct"`
			Total           int64   `json:"total"`
			AccuracyPercent float64 `json:"accuracyPercent"`
		} `json:"perScorerAccuracy"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total analyses: %d\n", m.TotalAnalyses)
	fmt.Fprintf(&sb, "Threats flagged: %d\n", m.ThreatsFlagged)
	fmt.Fprintf(&sb, "Pattern memory size: %d\n", m.MemorySize)

	if len(m.PerScorerAccuracy) > 0 {
		sb.WriteString("\nPer-scorer accuracy:\n")
		for scorer, acc := range m.PerScorerAccuracy {
			if acc.Total == 0 {
				fmt.Fprintf(&sb, "  %-20s no feedback yet\n", scorer)
				continue
			}
			fmt.Fprintf(&sb, "  %-20s %.1f%% (%d/%d)\n", scorer, acc.AccuracyPercent, acc.Correct, acc.Total)
		}
	}

	return sb.String(), nil
}

func formatDecisionList(raw json.RawMessage) (string, error) {
	var resp struct {
		Decisions []decisionView `json:"decisions"`
		Count     int            `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if resp.Count == 0 {
		return "No decisions recorded yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d recent decisions (newest first):\n\n", resp.Count)
	for _, d := range resp.Decisions {
		fmt.Fprintf(&sb, "#%d  %-8s consensus %3d  %s\n",
			d.DecisionID, d.Action, d.ConsensusScore, d.Fingerprint)
	}
	return sb.String(), nil
}
