package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/guidedpath/models"
)

var rankerNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestRanker() *EvidenceRanker {
	return NewEvidenceRankerAt(func() time.Time { return rankerNow })
}

func result(id string, meta models.ChunkMetadata, text string) models.RetrievalResult {
	meta.DocumentID = id
	return models.RetrievalResult{Chunk: models.Chunk{ID: id, Text: text, Metadata: meta}}
}

func TestEvidenceRanker_OrdersByFinalScore(t *testing.T) {
	weak := result("weak", models.ChunkMetadata{StudyType: "case_series", Institution: "blog", PublicationDate: "1999"}, "notes")
	strong := result("strong", models.ChunkMetadata{
		StudyType: "meta-analysis", Institution: "ASCO", PublicationDate: "2025-01-10",
	}, "breast cancer")

	ranked := newTestRanker().Rank([]models.RetrievalResult{weak, strong}, models.NewEntityBag())

	require.Len(t, ranked, 2)
	assert.Equal(t, "strong", ranked[0].Chunk.ID)
	assert.Equal(t, 1.0, ranked[0].Scores.Evidence)
	assert.Equal(t, 1.0, ranked[0].Scores.Institution)
	assert.Equal(t, 1.0, ranked[0].Scores.Timeliness)
	assert.Equal(t, 0.5, ranked[1].Scores.Institution)
	assert.Equal(t, 0.3, ranked[1].Scores.Timeliness)
}

func TestEvidenceRanker_StableOnTies(t *testing.T) {
	meta := models.ChunkMetadata{StudyType: "rct", Institution: "NCCN", PublicationDate: "2020"}
	in := []models.RetrievalResult{result("a", meta, "x"), result("b", meta, "x"), result("c", meta, "x")}

	ranked := newTestRanker().Rank(in, models.NewEntityBag())

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{ranked[0].Chunk.ID, ranked[1].Chunk.ID, ranked[2].Chunk.ID})
}

func TestEvidenceRanker_ScoresBounded(t *testing.T) {
	maxed := models.ChunkMetadata{
		StudyType: "meta_analysis", EvidenceLevel: "meta_analysis", Institution: "ASCO",
		PublicationDate: "2025-06-01", SampleSize: 50000,
		Randomized: true, DoubleBlinded: true, Multicenter: true, LongTermFollowup: true, StatisticalSignificance: true,
	}
	q := NewEntityExtractor().Extract("cancer chemotherapy tamoxifen biopsy breast her2 tumor lung")
	maxed.Entities = q
	text := "cancer chemotherapy tamoxifen biopsy breast her2 tumor lung"

	ranked := newTestRanker().Rank([]models.RetrievalResult{result("max", maxed, text)}, q)

	require.Len(t, ranked, 1)
	s := ranked[0].Scores
	for _, v := range []float64{s.Evidence, s.Relevance, s.Timeliness, s.Institution, s.Final} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, 1.0, s.Evidence)
	assert.Equal(t, 1.0, s.Relevance)
	assert.InDelta(t, 1.0, s.Final, 1e-9)
}

func TestEvidenceRanker_EvidenceScore(t *testing.T) {
	r := newTestRanker()

	t.Run("Unknown study type defaults", func(t *testing.T) {
		assert.InDelta(t, 0.3, r.evidenceScore(models.ChunkMetadata{StudyType: "anecdote"}), 1e-9)
	})
	t.Run("Evidence level overrides study type", func(t *testing.T) {
		assert.InDelta(t, 0.85, r.evidenceScore(models.ChunkMetadata{StudyType: "anecdote", EvidenceLevel: "Guidelines"}), 1e-9)
	})
	t.Run("Key normalisation", func(t *testing.T) {
		assert.InDelta(t, 0.9, r.evidenceScore(models.ChunkMetadata{StudyType: "Randomized Controlled Trial"}), 1e-9)
	})
	t.Run("Boosts accumulate", func(t *testing.T) {
		meta := models.ChunkMetadata{StudyType: "case_control", Institution: "Local Clinic", SampleSize: 2000, Randomized: true, Blinded: true}
		assert.InDelta(t, 0.72, r.evidenceScore(meta), 1e-9)

		meta.Institution = "who"
		assert.Equal(t, 1.0, r.evidenceScore(meta), "Authority boost pushes the score to the cap")
	})
	t.Run("Sample size steps", func(t *testing.T) {
		assert.Equal(t, 0.0, sampleSizeBoost(100))
		assert.Equal(t, 0.01, sampleSizeBoost(101))
		assert.Equal(t, 0.02, sampleSizeBoost(501))
		assert.Equal(t, 0.04, sampleSizeBoost(1001))
		assert.Equal(t, 0.06, sampleSizeBoost(5001))
		assert.Equal(t, 0.08, sampleSizeBoost(10001))
	})
}

func TestEvidenceRanker_Timeliness(t *testing.T) {
	r := newTestRanker()
	tests := []struct {
		date string
		want float64
	}{
		{"2024-06-15", 1.0},
		{"2024-06-14", 0.9},
		{"06-15-2023", 0.9},
		{"2022-07-01", 0.8},
		{"2021", 0.7},
		{"2016-01-01", 0.5},
		{"2014-01-01", 0.3},
		{"not-a-date", 0.5},
		{"", 0.5},
		{"2024/01/01", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, r.timelinessScore(tt.date))
		})
	}
}

func TestEvidenceRanker_Relevance(t *testing.T) {
	r := newTestRanker()
	q := NewEntityExtractor().Extract("tamoxifen for breast cancer")
	doc := models.Chunk{Text: "tamoxifen reduces breast cancer recurrence", Metadata: models.ChunkMetadata{Entities: q}}

	// 3 overlapping terms and 3 of 5 distinct document words shared.
	assert.InDelta(t, 0.45+0.1*3.0/5.0, r.relevanceScore(doc, q), 1e-9)
	assert.Equal(t, 0.0, r.relevanceScore(models.Chunk{Text: "unrelated"}, models.NewEntityBag()))
}

func TestEvidenceLabels(t *testing.T) {
	assert.Equal(t, "Very High Quality Evidence", EvidenceLevelDescription(0.95))
	assert.Equal(t, "High Quality Evidence", EvidenceLevelDescription(0.8))
	assert.Equal(t, "Moderate Quality Evidence", EvidenceLevelDescription(0.7))
	assert.Equal(t, "Low Quality Evidence", EvidenceLevelDescription(0.5))
	assert.Equal(t, "Very Low Quality Evidence", EvidenceLevelDescription(0.49))

	assert.Equal(t, "Strong Recommendation", RecommendationStrength(0.9))
	assert.Equal(t, "Moderate Recommendation", RecommendationStrength(0.85))
	assert.Equal(t, "Weak Recommendation", RecommendationStrength(0.6))
	assert.Equal(t, "Insufficient Evidence", RecommendationStrength(0.59))

	assert.Equal(t, "No Evidence Available", OverallEvidenceQuality(nil))
	docs := []models.RankedDocument{
		{Scores: models.EvidenceScore{Final: 0.8}},
		{Scores: models.EvidenceScore{Final: 0.9}},
	}
	assert.Equal(t, "High Quality", OverallEvidenceQuality(docs))
	assert.Equal(t, "Very Low Quality", OverallEvidenceQuality([]models.RankedDocument{{}}))
}
