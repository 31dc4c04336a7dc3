package models

// ChunkMetadata is the metadata stored next to every chunk in the vector index.
// JSON tags double as the metadata keys in the index.
type ChunkMetadata struct {
	DocumentID      string `json:"document_id"`
	ChunkIndex      int    `json:"chunk_index"`
	Source          string `json:"source"`
	Institution     string `json:"institution"`
	EvidenceLevel   string `json:"evidence_level"`
	StudyType       string `json:"study_type,omitempty"`
	PublicationDate string `json:"publication_date"`
	DocumentType    string `json:"document_type"`
	CancerType      string `json:"cancer_type"`
	Stage           string `json:"stage,omitempty"`
	URL             string `json:"url,omitempty"`
	DOI             string `json:"doi,omitempty"`

	QualityScore float64 `json:"quality_score"`
	RecencyScore float64 `json:"recency_score"`

	SampleSize              int  `json:"sample_size,omitempty"`
	Randomized              bool `json:"randomized,omitempty"`
	Blinded                 bool `json:"blinded,omitempty"`
	DoubleBlinded           bool `json:"double_blinded,omitempty"`
	Multicenter             bool `json:"multicenter,omitempty"`
	LongTermFollowup        bool `json:"long_term_followup,omitempty"`
	StatisticalSignificance bool `json:"statistical_significance,omitempty"`

	SourceFile string `json:"source_file,omitempty"`
	FileHash   string `json:"file_hash,omitempty"`

	// IngestID is shared by every chunk written in one ingestion of a document.
	IngestID string `json:"ingest_id,omitempty"`

	// Entities is persisted separately as a JSON string.
	Entities EntityBag `json:"-"`
}

// Chunk is an immutable unit of retrievable text.
type Chunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Embedding []float32     `json:"-"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// Neighbor is a raw nearest-neighbor hit returned by the vector index.
type Neighbor struct {
	Chunk    Chunk
	Distance float64
}

// RetrievalResult is a candidate chunk flowing through one request.
// Score starts at Similarity and is updated in place by re-ranking.
type RetrievalResult struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
}
