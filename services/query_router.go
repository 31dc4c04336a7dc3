package services

import (
	"math"
	"strings"

	"github.com/itish2003/guidedpath/models"
)

// routerKeywords are oncology terms the router counts in addition to the
// extractor's vocabulary.
var routerKeywords = []string{
	"cancer", "tumor", "chemotherapy", "radiation", "surgery", "metastasis",
	"biopsy", "oncology", "immunotherapy", "targeted therapy", "clinical trial",
	"stage", "grade", "prognosis", "survival", "remission", "recurrence",
	"treatment",
}

var reasoningTriggers = []string{
	"compare", "recommend", "best treatment", "first-line", "alternative",
	"prognosis", "guidelines",
}

const (
	reasoningContextTokens = 1000
	factContextTokens      = 500
)

// QueryRouter picks a model profile from the medical density of a query.
// It only looks at the raw query text.
type QueryRouter struct {
	vocabulary []string
}

func NewQueryRouter(extractor *EntityExtractor) *QueryRouter {
	seen := make(map[string]bool)
	var vocab []string
	for _, term := range append(append([]string{}, routerKeywords...), extractor.vocabulary()...) {
		if !seen[term] {
			seen[term] = true
			vocab = append(vocab, term)
		}
	}
	return &QueryRouter{vocabulary: vocab}
}

// Classify scores the query's specificity and checks for reasoning cues.
func (q *QueryRouter) Classify(query string) models.QueryClassification {
	lower := strings.ToLower(query)

	matched := []string{}
	for _, term := range q.vocabulary {
		if strings.Contains(lower, term) {
			matched = append(matched, term)
		}
	}

	specificity := 0.0
	if tokens := tokenize(query); len(tokens) > 0 {
		specificity = math.Min(1.0, 1.5*float64(len(matched))/float64(len(tokens)))
	}

	reasoning := false
	for _, trigger := range reasoningTriggers {
		if strings.Contains(lower, trigger) {
			reasoning = true
			break
		}
	}

	contextTokens := factContextTokens
	if reasoning {
		contextTokens = reasoningContextTokens
	}

	return models.QueryClassification{
		Specificity:         specificity,
		RequiresReasoning:   reasoning,
		Entities:            matched,
		ContextTokensNeeded: contextTokens,
	}
}

// SelectModel applies the ordered thresholds; the first matching rule wins.
func (q *QueryRouter) SelectModel(c models.QueryClassification) models.RoutingDecision {
	d := models.RoutingDecision{Complexity: c}
	switch {
	case c.Specificity > 0.8 && c.RequiresReasoning:
		d.Profile = models.ProfileHighCapability
		d.Reason = "High medical specificity with complex reasoning"
	case c.Specificity > 0.8:
		d.Profile = models.ProfileFactRetrieval
		d.Reason = "Medical fact retrieval"
	case c.Specificity > 0.5:
		d.Profile = models.ProfileMidTier
		d.Reason = "Moderate medical specificity"
	default:
		d.Profile = models.ProfileGeneral
		d.Reason = "General medical information"
	}
	return d
}

// Route classifies and selects in one step.
func (q *QueryRouter) Route(query string) models.RoutingDecision {
	return q.SelectModel(q.Classify(query))
}
