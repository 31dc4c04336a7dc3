package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/itish2003/guidedpath/models"
)

const overFetchFactor = 3

// Retriever finds filtered neighbors of a query and re-ranks them by entity
// overlap and stored quality signals.
type Retriever struct {
	embedder   Embedder
	index      VectorIndex
	extractor  *EntityExtractor
	timeout    time.Duration
	minQuality float64
	log        *slog.Logger
}

func NewRetriever(embedder Embedder, index VectorIndex, extractor *EntityExtractor, timeout time.Duration, minQuality float64, logger *slog.Logger) *Retriever {
	return &Retriever{
		embedder:   embedder,
		index:      index,
		extractor:  extractor,
		timeout:    timeout,
		minQuality: minQuality,
		log:        logger,
	}
}

// Retrieve returns at most topK results ordered by re-rank score. Failures of
// the embedder or the index are logged and yield an empty list.
func (r *Retriever) Retrieve(ctx context.Context, query string, filter models.Filter, topK int) []models.RetrievalResult {
	if topK <= 0 {
		return nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn("Query embedding failed, returning no documents", slog.Any("error", err))
		return nil
	}
	neighbors, err := r.index.Query(ctx, embedding, filter, topK*overFetchFactor)
	if err != nil {
		r.log.Warn("Vector index query failed, returning no documents", slog.Any("error", err))
		return nil
	}

	queryEntities := r.extractor.Extract(query)
	results := make([]models.RetrievalResult, 0, len(neighbors))
	for _, n := range neighbors {
		meta := n.Chunk.Metadata
		if meta.QualityScore < r.minQuality {
			continue
		}
		chunk := n.Chunk
		docEntities := meta.Entities
		if docEntities.Count() == 0 {
			docEntities = r.extractor.Extract(chunk.Text)
			chunk.Metadata.Entities = docEntities
		}

		similarity := similarityFromDistance(n.Distance)
		score := similarity
		for _, category := range models.EntityCategories {
			score += 0.1 * float64(queryEntities.Overlap(docEntities, category))
		}
		score += 0.2*meta.QualityScore + 0.1*meta.RecencyScore

		results = append(results, models.RetrievalResult{
			Chunk:      chunk,
			Similarity: similarity,
			Score:      score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	r.log.Debug("Retrieved documents",
		slog.Int("candidates", len(neighbors)),
		slog.Int("returned", len(results)))
	return results
}

// similarityFromDistance maps a cosine distance in [0,2] onto [0,1].
func similarityFromDistance(d float64) float64 {
	s := 1 - d/2
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}
