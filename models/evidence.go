package models

// EvidenceScore holds the four ranking axes and their weighted combination.
type EvidenceScore struct {
	Evidence    float64 `json:"evidence_score"`
	Relevance   float64 `json:"relevance_score"`
	Timeliness  float64 `json:"timeliness_score"`
	Institution float64 `json:"institution_score"`
	Final       float64 `json:"final_score"`
}

// RankedDocument is a retrieval result annotated with its evidence scores.
type RankedDocument struct {
	RetrievalResult
	Scores EvidenceScore `json:"scores"`
}
