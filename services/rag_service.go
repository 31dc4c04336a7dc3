package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/itish2003/guidedpath/models"
)

// RAGService answers clinical questions from indexed evidence and manages
// the knowledge base behind them.
type RAGService interface {
	ProcessQuery(c context.Context, req models.QueryRequest) *models.QueryResponse
	BatchProcessQueries(c context.Context, req models.BatchQueryRequest) []*models.QueryResponse
	ValidateQuery(query string) models.ValidateQueryResponse
	IngestDocuments(c context.Context, docs []models.DocumentRecord) models.IngestResult
	ProcessDirectories(c context.Context, req models.ProcessDirectoriesRequest) models.ProcessDirectoriesResponse
	Status(c context.Context) models.SystemStatus
	History(limit int) []models.ConversationRecord
	ClearHistory()
}

// Stage marks progress of a single query through the pipeline.
type Stage string

const (
	StageReceived          Stage = "RECEIVED"
	StageEntitiesExtracted Stage = "ENTITIES_EXTRACTED"
	StageRetrieved         Stage = "RETRIEVED"
	StageRanked            Stage = "RANKED"
	StageRouted            Stage = "ROUTED"
	StageAnswered          Stage = "ANSWERED"
	StageRecorded          Stage = "RECORDED"
	StageErrored           Stage = "ERRORED"
)

const (
	errorModelID  = "error"
	errorAnswer   = "I apologize, but I encountered an error while processing your medical query. Please consult with your healthcare provider for medical advice."
	noEvidenceMsg = "Note: no supporting evidence was found in the indexed guidelines for this question. Treat this answer as general information and verify it against current clinical guidelines."
	excerptRunes  = 300
)

var errEmptyQuery = errors.New("query must not be empty")

// RAGOptions tunes the pipeline. Zero values fall back to defaults.
type RAGOptions struct {
	TopK                  int
	MinQuality            float64
	PreferredInstitutions []string
	ContextDocuments      int
	CitationCount         int
	MaxConcurrentQueries  int
	IndexTimeout          time.Duration
}

func (o *RAGOptions) applyDefaults() {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.MinQuality <= 0 {
		o.MinQuality = 0.4
	}
	if len(o.PreferredInstitutions) == 0 {
		o.PreferredInstitutions = []string{"ASCO", "NCCN", "ESMO", "EULAR", "FDA", "NIH"}
	}
	if o.ContextDocuments <= 0 {
		o.ContextDocuments = 3
	}
	if o.CitationCount <= 0 {
		o.CitationCount = 5
	}
	if o.MaxConcurrentQueries <= 0 {
		o.MaxConcurrentQueries = 10
	}
	if o.IndexTimeout <= 0 {
		o.IndexTimeout = 10 * time.Second
	}
}

// RAGDeps are the collaborators of the service. Indexer may be nil when
// directory indexing is disabled.
type RAGDeps struct {
	Extractor *EntityExtractor
	Retriever *Retriever
	Ranker    *EvidenceRanker
	Router    *QueryRouter
	Gateway   *ModelGateway
	Ingester  *Ingester
	Indexer   *FileIndexingService
	Index     VectorIndex
	History   *ConversationHistory
	Logger    *slog.Logger
}

// ragServiceImpl holds the dependencies it needs to do its job
type ragServiceImpl struct {
	deps RAGDeps
	opts RAGOptions
	now  func() time.Time
	log  *slog.Logger
}

func NewRAGService(deps RAGDeps, opts RAGOptions) RAGService {
	opts.applyDefaults()
	if deps.History == nil {
		deps.History = NewConversationHistory(100)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &ragServiceImpl{
		deps: deps,
		opts: opts,
		now:  time.Now,
		log:  deps.Logger,
	}
}

// ProcessQuery runs the full pipeline. It never fails: errors surface as a
// well formed response with the error field set.
func (r *ragServiceImpl) ProcessQuery(c context.Context, req models.QueryRequest) (resp *models.QueryResponse) {
	start := r.now()
	queryID := uuid.New().String()
	log := r.log.With(slog.String("query_id", queryID))

	defer func() {
		if rec := recover(); rec != nil {
			resp = r.errorResponse(log, queryID, start, fmt.Errorf("internal error: %v", rec))
		}
	}()

	log.Debug("Pipeline stage", slog.String("stage", string(StageReceived)))
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return r.errorResponse(log, queryID, start, errEmptyQuery)
	}

	entities := r.deps.Extractor.Extract(query)
	log.Debug("Pipeline stage", slog.String("stage", string(StageEntitiesExtracted)), slog.Int("entities", entities.Count()))

	filter := r.buildFilters(entities, req.PatientContext)
	results := r.deps.Retriever.Retrieve(c, query, filter, r.opts.TopK)
	log.Debug("Pipeline stage", slog.String("stage", string(StageRetrieved)), slog.Int("documents", len(results)))

	ranked := r.deps.Ranker.Rank(results, entities)
	log.Debug("Pipeline stage", slog.String("stage", string(StageRanked)))

	routing := r.deps.Router.Route(query)
	log.Debug("Pipeline stage", slog.String("stage", string(StageRouted)),
		slog.String("profile", string(routing.Profile)),
		slog.Float64("specificity", routing.Complexity.Specificity))

	snippets := make([]string, 0, r.opts.ContextDocuments)
	for i := 0; i < len(ranked) && i < r.opts.ContextDocuments; i++ {
		snippets = append(snippets, ranked[i].Chunk.Text)
	}
	answer := r.deps.Gateway.Execute(c, query, snippets, routing.Profile)
	log.Debug("Pipeline stage", slog.String("stage", string(StageAnswered)), slog.String("model", answer.ModelID))

	content := answer.Content
	if len(ranked) == 0 {
		content = strings.TrimRight(content, "\n") + "\n\n" + noEvidenceMsg
	}

	processing := r.now().Sub(start).Seconds()
	resp = &models.QueryResponse{
		Answer:                   content,
		ModelUsed:                answer.ModelID,
		Citations:                r.citations(ranked),
		MedicalEntitiesFound:     entities,
		EvidenceQuality:          OverallEvidenceQuality(ranked),
		EvidenceLevelDescription: EvidenceLevelDescription(meanScore(ranked, func(s models.EvidenceScore) float64 { return s.Evidence })),
		RecommendationStrength:   RecommendationStrength(meanScore(ranked, func(s models.EvidenceScore) float64 { return s.Final })),
		CostEstimation:           answer.Cost,
		TokensUsed:               answer.TokensUsed,
		Timestamp:                unixSeconds(r.now()),
		ProcessingTime:           processing,
		QueryID:                  queryID,
		Routing:                  &routing,
	}

	r.deps.History.Append(models.ConversationRecord{
		QueryID:            queryID,
		Query:              query,
		Response:           resp,
		Timestamp:          r.now(),
		ProcessingTime:     processing,
		PatientContext:     req.PatientContext,
		DocumentsRetrieved: len(results),
	})
	log.Info("Query processed",
		slog.String("stage", string(StageRecorded)),
		slog.String("model", answer.ModelID),
		slog.Int("citations", len(resp.Citations)),
		slog.Float64("processing_time", processing))
	return resp
}

func (r *ragServiceImpl) errorResponse(log *slog.Logger, queryID string, start time.Time, err error) *models.QueryResponse {
	log.Error("Error processing medical query", slog.String("stage", string(StageErrored)), slog.Any("error", err))
	return &models.QueryResponse{
		Answer:               errorAnswer,
		ModelUsed:            errorModelID,
		Citations:            []models.Citation{},
		MedicalEntitiesFound: models.NewEntityBag(),
		EvidenceQuality:      "Error",
		Timestamp:            unixSeconds(r.now()),
		ProcessingTime:       r.now().Sub(start).Seconds(),
		QueryID:              queryID,
		Error:                err.Error(),
	}
}

// buildFilters narrows retrieval by query entities, then patient context,
// then quality and preferred institutions. Later predicates on the same
// field replace earlier ones.
func (r *ragServiceImpl) buildFilters(entities models.EntityBag, pc *models.PatientContext) models.Filter {
	var f models.Filter
	f.In("disease", entities[models.Diseases]...)
	f.In("treatment", entities[models.Treatments]...)
	f.In("biomarkers", entities[models.Biomarkers]...)

	if pc != nil {
		if pc.CancerType != "" {
			f.Eq("cancer_type", pc.CancerType)
		}
		if pc.CancerStage != "" {
			f.Eq("stage", pc.CancerStage)
		}
		f.In("biomarkers", pc.Biomarkers...)
		f.In("treatment", pc.PreviousTreatments...)
		if pc.Institution != "" {
			f.Eq("institution", pc.Institution)
		}
	}

	f.Gte("quality_score", r.opts.MinQuality)
	if !f.Has("institution") {
		f.In("institution", r.opts.PreferredInstitutions...)
	}
	return f
}

func (r *ragServiceImpl) citations(ranked []models.RankedDocument) []models.Citation {
	out := make([]models.Citation, 0, r.opts.CitationCount)
	for i, doc := range ranked {
		if i >= r.opts.CitationCount {
			break
		}
		meta := doc.Chunk.Metadata
		out = append(out, models.Citation{
			ID:              i + 1,
			Excerpt:         excerpt(doc.Chunk.Text, excerptRunes),
			Source:          orUnknown(meta.Source),
			Institution:     orUnknown(meta.Institution),
			EvidenceLevel:   orUnknown(meta.EvidenceLevel),
			StudyType:       orUnknown(meta.StudyType),
			PublicationDate: orUnknown(meta.PublicationDate),
			ConfidenceScore: round(doc.Scores.Final, 3),
			QualityScore:    round(meta.QualityScore, 3),
			RelevanceScore:  round(doc.Scores.Relevance, 3),
			URL:             meta.URL,
			DOI:             meta.DOI,
		})
	}
	return out
}

// BatchProcessQueries runs queries concurrently. Results keep input order and
// a failing query never affects the others.
func (r *ragServiceImpl) BatchProcessQueries(c context.Context, req models.BatchQueryRequest) []*models.QueryResponse {
	out := make([]*models.QueryResponse, len(req.Queries))
	var g errgroup.Group
	g.SetLimit(r.opts.MaxConcurrentQueries)
	for i, q := range req.Queries {
		g.Go(func() error {
			out[i] = r.ProcessQuery(c, models.QueryRequest{Query: q, PatientContext: req.PatientContext})
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ValidateQuery reports what the pipeline would do without retrieving or
// calling a model.
func (r *ragServiceImpl) ValidateQuery(query string) models.ValidateQueryResponse {
	classification := r.deps.Router.Classify(query)
	return models.ValidateQueryResponse{
		EntitiesFound: r.deps.Extractor.Extract(query),
		Complexity:    classification,
		Routing:       r.deps.Router.SelectModel(classification),
		Status:        "valid",
	}
}

func (r *ragServiceImpl) IngestDocuments(c context.Context, docs []models.DocumentRecord) models.IngestResult {
	r.log.Info("Ingesting documents", slog.Int("count", len(docs)))
	return r.deps.Ingester.Ingest(c, docs)
}

func (r *ragServiceImpl) ProcessDirectories(c context.Context, req models.ProcessDirectoriesRequest) models.ProcessDirectoriesResponse {
	if r.deps.Indexer == nil {
		return models.ProcessDirectoriesResponse{
			TotalDirectories: len(req.Directories),
			Results:          []models.DirectoryBatchResult{},
		}
	}
	return r.deps.Indexer.ProcessDirectories(c, req)
}

// Status reads the index size and summarises recent history. It does not
// change any state.
func (r *ragServiceImpl) Status(c context.Context) models.SystemStatus {
	ctx, cancel := context.WithTimeout(c, r.opts.IndexTimeout)
	defer cancel()

	status := "healthy"
	count, err := r.deps.Index.Count(ctx)
	if err != nil {
		r.log.Warn("Could not count indexed documents", slog.Any("error", err))
		status = "degraded"
		count = 0
	}
	return models.SystemStatus{
		Status:                 status,
		DocumentsIndexed:       count,
		ConversationsProcessed: r.deps.History.Len(),
		AverageResponseTime:    r.deps.History.AverageProcessingTime(),
		ModelsAvailable:        r.deps.Gateway.Available(),
		Timestamp:              unixSeconds(r.now()),
	}
}

func (r *ragServiceImpl) History(limit int) []models.ConversationRecord {
	return r.deps.History.Recent(limit)
}

func (r *ragServiceImpl) ClearHistory() {
	r.deps.History.Clear()
	r.log.Info("Conversation history cleared")
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
