package models

import "time"

// ModelProfile names a cost/latency/capability tier.
type ModelProfile string

const (
	ProfileHighCapability ModelProfile = "high_capability"
	ProfileFactRetrieval  ModelProfile = "fact_retrieval"
	ProfileMidTier        ModelProfile = "mid_tier"
	ProfileGeneral        ModelProfile = "general"
)

// Profiles lists every profile in routing order.
var Profiles = []ModelProfile{ProfileHighCapability, ProfileFactRetrieval, ProfileMidTier, ProfileGeneral}

// QueryClassification is the router's view of a raw query.
type QueryClassification struct {
	Specificity         float64  `json:"specificity"`
	RequiresReasoning   bool     `json:"requires_reasoning"`
	Entities            []string `json:"entities"`
	ContextTokensNeeded int      `json:"context_tokens_needed"`
}

// RoutingDecision is computed once per query, independently of retrieval.
type RoutingDecision struct {
	Profile    ModelProfile        `json:"profile"`
	Reason     string              `json:"reason"`
	Complexity QueryClassification `json:"complexity"`
}

// ProfileSettings configures how a profile calls its backend.
type ProfileSettings struct {
	Model           string
	MaxTokens       int
	Temperature     float64
	CostPer1KTokens float64
	Timeout         time.Duration
}

// ModelResponse is the uniform result of a model call.
type ModelResponse struct {
	Content    string  `json:"content"`
	ModelID    string  `json:"model"`
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`
	Degraded   bool    `json:"degraded,omitempty"`
}
