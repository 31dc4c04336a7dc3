package models

// Citation is one ranked evidence passage attached to an answer.
type Citation struct {
	ID              int     `json:"id"`
	Excerpt         string  `json:"excerpt"`
	Source          string  `json:"source"`
	Institution     string  `json:"institution"`
	EvidenceLevel   string  `json:"evidence_level"`
	StudyType       string  `json:"study_type"`
	PublicationDate string  `json:"publication_date"`
	ConfidenceScore float64 `json:"confidence_score"`
	QualityScore    float64 `json:"quality_score"`
	RelevanceScore  float64 `json:"relevance_score"`
	URL             string  `json:"url"`
	DOI             string  `json:"doi"`
}

// QueryResponse is always well formed, including on failure.
type QueryResponse struct {
	Answer                   string           `json:"answer"`
	ModelUsed                string           `json:"model_used"`
	Citations                []Citation       `json:"citations"`
	MedicalEntitiesFound     EntityBag        `json:"medical_entities_found"`
	EvidenceQuality          string           `json:"evidence_quality"`
	EvidenceLevelDescription string           `json:"evidence_level_description,omitempty"`
	RecommendationStrength   string           `json:"recommendation_strength,omitempty"`
	CostEstimation           float64          `json:"cost_estimation"`
	TokensUsed               int              `json:"tokens_used"`
	Timestamp                float64          `json:"timestamp"`
	ProcessingTime           float64          `json:"processing_time"`
	QueryID                  string           `json:"query_id"`
	Routing                  *RoutingDecision `json:"routing,omitempty"`
	Error                    string           `json:"error,omitempty"`
}

type IngestResult struct {
	Success            bool   `json:"success"`
	DocumentsProcessed int    `json:"documents_processed"`
	ChunksCreated      int    `json:"chunks_created"`
	Error              string `json:"error,omitempty"`
}

type DirectoryBatchResult struct {
	Directory string `json:"directory"`
	Batch     int    `json:"batch"`
	Documents int    `json:"documents"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type ProcessDirectoriesResponse struct {
	TotalDirectories        int                    `json:"total_directories"`
	TotalDocumentsFound     int                    `json:"total_documents_found"`
	TotalDocumentsProcessed int                    `json:"total_documents_processed"`
	Results                 []DirectoryBatchResult `json:"results"`
}

type ValidateQueryResponse struct {
	EntitiesFound EntityBag           `json:"entities_found"`
	Complexity    QueryClassification `json:"complexity"`
	Routing       RoutingDecision     `json:"routing"`
	Status        string              `json:"validation_status"`
}

type SystemStatus struct {
	Status                 string   `json:"status"`
	DocumentsIndexed       int      `json:"documents_indexed"`
	ConversationsProcessed int      `json:"conversations_processed"`
	AverageResponseTime    float64  `json:"average_response_time"`
	ModelsAvailable        []string `json:"models_available"`
	Timestamp              float64  `json:"timestamp"`
}
