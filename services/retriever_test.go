package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/guidedpath/models"
)

func newTestRetriever(index VectorIndex, embedder Embedder) *Retriever {
	return NewRetriever(embedder, index, NewEntityExtractor(), time.Second, 0.4, discardLogger())
}

func TestRetriever_QualityThreshold(t *testing.T) {
	index := newFakeIndex(
		medicalChunk("low", "breast cancer chemotherapy", 0.39),
		medicalChunk("edge", "breast cancer chemotherapy", 0.40),
	)
	r := newTestRetriever(index, &fakeEmbedder{})

	results := r.Retrieve(context.Background(), "breast cancer", models.Filter{}, 5)

	require.Len(t, results, 1)
	assert.Equal(t, "edge", results[0].Chunk.ID)
}

func TestRetriever_OverFetchAndTopK(t *testing.T) {
	var chunks []models.Chunk
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		chunks = append(chunks, medicalChunk(id, "lung cancer", 0.8))
	}
	index := newFakeIndex(chunks...)
	r := newTestRetriever(index, &fakeEmbedder{})

	results := r.Retrieve(context.Background(), "lung cancer", models.Filter{}, 2)

	assert.Equal(t, 6, index.lastK, "Expected the index to be asked for three times topK")
	assert.Len(t, results, 2)
}

func TestRetriever_ReRanking(t *testing.T) {
	near := medicalChunk("near", "general oncology overview", 0.5)
	match := medicalChunk("match", "her2 breast cancer trastuzumab", 0.5)
	index := newFakeIndex(near, match)
	index.distances["near"] = 0.2
	index.distances["match"] = 0.4
	r := newTestRetriever(index, &fakeEmbedder{})

	results := r.Retrieve(context.Background(), "trastuzumab for her2 breast cancer", models.Filter{}, 2)

	require.Len(t, results, 2)
	assert.Equal(t, "match", results[0].Chunk.ID, "Entity overlap should outweigh a small similarity gap")
	assert.InDelta(t, 0.8, results[0].Similarity, 1e-9)
	assert.InDelta(t, 0.9, results[1].Similarity, 1e-9)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRetriever_StableTies(t *testing.T) {
	index := newFakeIndex(
		medicalChunk("first", "same text", 0.6),
		medicalChunk("second", "same text", 0.6),
		medicalChunk("third", "same text", 0.6),
	)
	r := newTestRetriever(index, &fakeEmbedder{})

	results := r.Retrieve(context.Background(), "query", models.Filter{}, 3)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Chunk.ID)
	assert.Equal(t, "second", results[1].Chunk.ID)
	assert.Equal(t, "third", results[2].Chunk.ID)
}

func TestRetriever_FailuresYieldEmpty(t *testing.T) {
	t.Run("Embedder error", func(t *testing.T) {
		r := newTestRetriever(newFakeIndex(medicalChunk("a", "cancer", 0.9)), &fakeEmbedder{err: errBoom})
		assert.Empty(t, r.Retrieve(context.Background(), "cancer", models.Filter{}, 5))
	})

	t.Run("Index error", func(t *testing.T) {
		index := newFakeIndex(medicalChunk("a", "cancer", 0.9))
		index.queryErr = errBoom
		r := newTestRetriever(index, &fakeEmbedder{})
		assert.Empty(t, r.Retrieve(context.Background(), "cancer", models.Filter{}, 5))
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := newTestRetriever(newFakeIndex(medicalChunk("a", "cancer", 0.9)), &fakeEmbedder{})
		assert.Empty(t, r.Retrieve(ctx, "cancer", models.Filter{}, 5))
	})
}

func TestRetriever_PassesFilter(t *testing.T) {
	index := newFakeIndex()
	r := newTestRetriever(index, &fakeEmbedder{})
	var f models.Filter
	f.Eq("cancer_type", "breast")
	f.Gte("quality_score", 0.4)

	r.Retrieve(context.Background(), "q", f, 1)

	assert.Equal(t, 2, index.lastFilter.Len())
	assert.True(t, index.lastFilter.Has("cancer_type"))
}

func TestSimilarityFromDistance(t *testing.T) {
	assert.Equal(t, 1.0, similarityFromDistance(0))
	assert.Equal(t, 0.5, similarityFromDistance(1))
	assert.Equal(t, 0.0, similarityFromDistance(2))
	assert.Equal(t, 0.0, similarityFromDistance(3))
	assert.Equal(t, 1.0, similarityFromDistance(-0.1))
}

func TestRetriever_FallbackEntitiesReachTheRanker(t *testing.T) {
	bare := medicalChunk("bare", "trastuzumab for her2 breast cancer", 0.8)
	bare.Metadata.Entities = nil
	tagged := medicalChunk("tagged", "trastuzumab for her2 breast cancer", 0.8)
	r := newTestRetriever(newFakeIndex(bare, tagged), &fakeEmbedder{})

	results := r.Retrieve(context.Background(), "her2 breast cancer", models.Filter{}, 2)

	require.Len(t, results, 2)
	got := results[0].Chunk.Metadata.Entities
	assert.True(t, got.Has(models.Drugs, "trastuzumab"), "Extracted entities are carried on the result")

	queryEntities := NewEntityExtractor().Extract("her2 breast cancer")
	ranked := NewEvidenceRanker().Rank(results, queryEntities)
	assert.Equal(t, ranked[0].Scores.Relevance, ranked[1].Scores.Relevance)
}
