package models

// PatientContext narrows retrieval to the caller's clinical situation.
type PatientContext struct {
	CancerType         string   `json:"cancer_type,omitempty"`
	CancerStage        string   `json:"cancer_stage,omitempty"`
	Biomarkers         []string `json:"biomarkers,omitempty"`
	PreviousTreatments []string `json:"previous_treatments,omitempty"`
	Institution        string   `json:"institution,omitempty"`
}

type QueryRequest struct {
	Query          string          `json:"query" binding:"required"`
	PatientContext *PatientContext `json:"patient_context,omitempty"`
}

type BatchQueryRequest struct {
	Queries        []string        `json:"queries" binding:"required"`
	PatientContext *PatientContext `json:"patient_context,omitempty"`
}

type ValidateQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// DocumentRecord is a pre-extracted document handed to ingestion.
type DocumentRecord struct {
	ID              string    `json:"id,omitempty"`
	Content         string    `json:"content" binding:"required"`
	Source          string    `json:"source"`
	Institution     string    `json:"institution"`
	EvidenceLevel   string    `json:"evidence_level"`
	StudyType       string    `json:"study_type,omitempty"`
	PublicationDate string    `json:"publication_date"`
	DocumentType    string    `json:"document_type"`
	CancerType      string    `json:"cancer_type"`
	Stage           string    `json:"stage,omitempty"`
	URL             string    `json:"url,omitempty"`
	DOI             string    `json:"doi,omitempty"`
	Entities        EntityBag `json:"entities,omitempty"`

	SampleSize              int  `json:"sample_size,omitempty"`
	Randomized              bool `json:"randomized,omitempty"`
	Blinded                 bool `json:"blinded,omitempty"`
	DoubleBlinded           bool `json:"double_blinded,omitempty"`
	Multicenter             bool `json:"multicenter,omitempty"`
	LongTermFollowup        bool `json:"long_term_followup,omitempty"`
	StatisticalSignificance bool `json:"statistical_significance,omitempty"`

	SourceFile string `json:"-"`
	FileHash   string `json:"-"`
}

type IngestDocumentsRequest struct {
	Documents []DocumentRecord `json:"documents" binding:"required,dive"`
}

type ProcessDirectoriesRequest struct {
	Directories    []string `json:"directories" binding:"required"`
	FileExtensions []string `json:"file_extensions,omitempty"`
	BatchSize      int      `json:"batch_size,omitempty"`
}
