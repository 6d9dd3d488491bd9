package realtime

import (
	"github.com/mbd888/sentinel/internal/engine"
	"github.com/mbd888/sentinel/internal/patterns"
)

// Publisher adapts the hub to the engine's publish interface.
type Publisher struct {
	hub *Hub
}

// NewPublisher wraps a hub for the engine.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// PublishDecision broadcasts a consensus decision to subscribed clients.
func (p *Publisher) PublishDecision(d *engine.Decision) {
	p.hub.BroadcastDecision(map[string]interface{}{
		"decisionId":     d.DecisionID,
		"action":         string(d.Action),
		"consensusScore": d.ConsensusScore,
		"reasoning":      d.Reasoning,
		"confidence":     d.Confidence,
		"fingerprint":    d.Fingerprint,
	})
}

// PublishOutcome broadcasts recorded ground truth for a decision.
func (p *Publisher) PublishOutcome(decisionID int64, outcome patterns.Outcome, correct bool) {
	p.hub.BroadcastOutcome(map[string]interface{}{
		"decisionId": decisionID,
		"outcome":    string(outcome),
		"correct":    correct,
	})
}
