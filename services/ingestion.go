package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/itish2003/guidedpath/models"
)

var ingestEvidenceWeights = map[string]float64{
	"systematic_review":           0.3,
	"meta_analysis":               0.3,
	"randomized_controlled_trial": 0.25,
	"cohort_study":                0.15,
	"case_control":                0.1,
	"expert_opinion":              0.05,
}

var ingestInstitutionWeights = map[string]float64{
	"ASCO": 0.2, "NCCN": 0.2, "ESMO": 0.15,
	"EULAR": 0.15, "FDA": 0.1, "NIH": 0.1,
}

// Ingester chunks documents, tags them and writes them to the vector index.
type Ingester struct {
	embedder  Embedder
	index     VectorIndex
	extractor *EntityExtractor
	splitter  textsplitter.RecursiveCharacter
	now       func() time.Time
	log       *slog.Logger
}

func NewIngester(embedder Embedder, index VectorIndex, extractor *EntityExtractor, chunkSize, chunkOverlap int, logger *slog.Logger) *Ingester {
	return &Ingester{
		embedder:  embedder,
		index:     index,
		extractor: extractor,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
		now: time.Now,
		log: logger,
	}
}

// Ingest replaces the chunks of every document. It stops at the first
// document that fails.
func (in *Ingester) Ingest(ctx context.Context, docs []models.DocumentRecord) models.IngestResult {
	result := models.IngestResult{Success: true}
	for _, doc := range docs {
		n, err := in.ingestDocument(ctx, doc)
		if err != nil {
			in.log.Error("Document ingestion failed", slog.String("document_id", doc.ID), slog.Any("error", err))
			result.Success = false
			result.Error = err.Error()
			return result
		}
		result.DocumentsProcessed++
		result.ChunksCreated += n
	}
	in.log.Info("Ingested documents",
		slog.Int("documents", result.DocumentsProcessed),
		slog.Int("chunks", result.ChunksCreated))
	return result
}

func (in *Ingester) ingestDocument(ctx context.Context, doc models.DocumentRecord) (int, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return 0, fmt.Errorf("document %q has no content", doc.ID)
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	texts, err := in.splitter.SplitText(doc.Content)
	if err != nil {
		return 0, fmt.Errorf("splitting %s: %w", doc.ID, err)
	}
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %s: %w", doc.ID, err)
	}

	ingestID := uuid.New().String()
	quality := qualityScore(doc.EvidenceLevel, doc.Institution)
	recency := in.recencyScore(doc.PublicationDate)
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		entities := in.extractor.Extract(text)
		entities.Merge(doc.Entities)
		chunks[i] = models.Chunk{
			ID:        fmt.Sprintf("%s-chunk%d-%s", doc.ID, i, uuid.New().String()[:8]),
			Text:      text,
			Embedding: vectors[i],
			Metadata: models.ChunkMetadata{
				DocumentID:              doc.ID,
				ChunkIndex:              i,
				Source:                  doc.Source,
				Institution:             doc.Institution,
				EvidenceLevel:           doc.EvidenceLevel,
				StudyType:               doc.StudyType,
				PublicationDate:         doc.PublicationDate,
				DocumentType:            doc.DocumentType,
				CancerType:              doc.CancerType,
				Stage:                   doc.Stage,
				URL:                     doc.URL,
				DOI:                     doc.DOI,
				QualityScore:            quality,
				RecencyScore:            recency,
				SampleSize:              doc.SampleSize,
				Randomized:              doc.Randomized,
				Blinded:                 doc.Blinded,
				DoubleBlinded:           doc.DoubleBlinded,
				Multicenter:             doc.Multicenter,
				LongTermFollowup:        doc.LongTermFollowup,
				StatisticalSignificance: doc.StatisticalSignificance,
				SourceFile:              doc.SourceFile,
				FileHash:                doc.FileHash,
				IngestID:                ingestID,
				Entities:                entities,
			},
		}
	}

	// New chunks go in before old ones come out, so a failed write leaves the
	// previous version searchable.
	if err := in.index.Add(ctx, chunks); err != nil {
		return 0, err
	}
	if err := in.index.DeleteStaleChunks(ctx, doc.ID, ingestID); err != nil {
		return 0, fmt.Errorf("removing previous chunks of %s: %w", doc.ID, err)
	}
	return len(chunks), nil
}

// qualityScore is 0.5 plus evidence and institution weights, capped at 1.
func qualityScore(evidenceLevel, institution string) float64 {
	score := 0.5
	score += ingestEvidenceWeights[normalizeKey(evidenceLevel)]
	score += ingestInstitutionWeights[strings.ToUpper(strings.TrimSpace(institution))]
	return math.Min(score, 1.0)
}

func (in *Ingester) recencyScore(publicationDate string) float64 {
	pub, ok := parsePublicationDate(publicationDate)
	if !ok {
		return 0.5
	}
	now := in.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	within := func(years int) bool {
		return !today.After(pub.AddDate(years, 0, 0))
	}
	switch {
	case within(1):
		return 1.0
	case within(3):
		return 0.8
	case within(5):
		return 0.6
	case within(10):
		return 0.4
	}
	return 0.2
}
