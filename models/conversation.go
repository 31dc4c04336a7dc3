package models

import "time"

// ConversationRecord is kept for status reporting and inspection only; it is
// never replayed into prompts.
type ConversationRecord struct {
	QueryID            string          `json:"query_id"`
	Query              string          `json:"query"`
	Response           *QueryResponse  `json:"response"`
	Timestamp          time.Time       `json:"timestamp"`
	ProcessingTime     float64         `json:"processing_time"`
	PatientContext     *PatientContext `json:"patient_context,omitempty"`
	DocumentsRetrieved int             `json:"documents_retrieved"`
}
