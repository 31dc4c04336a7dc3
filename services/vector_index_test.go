package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/guidedpath/models"
)

func TestDecodeMetadata(t *testing.T) {
	raw := map[string]interface{}{
		"document_id":      "doc-1",
		"chunk_index":      2,
		"institution":      "NCCN",
		"quality_score":    0.85,
		"recency_score":    0.6,
		"publication_date": "2023-05-01",
		"randomized":       true,
		"source_file":      "/data/nccn.pdf",
		"file_hash":        "abc",
		entitiesKey:        `{"diseases":["cancer"],"drugs":["tamoxifen"]}`,
	}

	meta, err := decodeMetadata(raw)
	require.NoError(t, err)

	assert.Equal(t, "doc-1", meta.DocumentID)
	assert.Equal(t, 2, meta.ChunkIndex)
	assert.Equal(t, "NCCN", meta.Institution)
	assert.InDelta(t, 0.85, meta.QualityScore, 1e-9)
	assert.True(t, meta.Randomized)
	assert.Equal(t, "/data/nccn.pdf", meta.SourceFile)
	assert.True(t, meta.Entities.Has(models.Diseases, "cancer"))
	assert.True(t, meta.Entities.Has(models.Drugs, "tamoxifen"))
	assert.Empty(t, meta.Entities[models.Anatomy], "Missing categories are present and empty")
}

func TestDecodeMetadata_BadEntities(t *testing.T) {
	raw := map[string]interface{}{
		"document_id": "doc-1",
		entitiesKey:   "{'diseases': ['cancer']}",
	}

	meta, err := decodeMetadata(raw)
	assert.Error(t, err, "Non-JSON entity payloads must be rejected, never evaluated")
	assert.Equal(t, "doc-1", meta.DocumentID)
	assert.Equal(t, 0, meta.Entities.Count())
}

func TestWhereFromFilter(t *testing.T) {
	assert.Nil(t, whereFromFilter(models.Filter{}))

	var single models.Filter
	single.Gte("quality_score", 0.4)
	assert.NotNil(t, whereFromFilter(single))

	var multi models.Filter
	multi.Eq("cancer_type", "breast")
	multi.In("institution", "ASCO", "NCCN")
	multi.Gte("quality_score", 0.4)
	assert.NotNil(t, whereFromFilter(multi))
}

func TestEntityMembershipKeys(t *testing.T) {
	assert.Equal(t, "disease_melanoma", entityMembershipKey("disease", "Melanoma"))
	assert.Equal(t, "treatment_targeted_therapy", entityMembershipKey("treatment", "targeted therapy"))

	bag := NewEntityExtractor().Extract("Melanoma is a skin cancer treated with immunotherapy, BRAF status matters.")
	keys := entityMembershipKeys(bag)
	assert.ElementsMatch(t, []string{
		"disease_cancer", "disease_melanoma", "treatment_immunotherapy", "biomarkers_braf",
	}, keys, "Every term is stored, not only the first of each category")
}

func TestWhereFromFilter_EntityMembership(t *testing.T) {
	var one models.Filter
	one.In("disease", "melanoma")
	assert.NotNil(t, whereFromFilter(one))

	var many models.Filter
	many.In("disease", "melanoma", "lymphoma")
	many.In("treatment", "surgery")
	assert.NotNil(t, whereFromFilter(many))
}

func TestDecodeMetadata_IgnoresMembershipKeys(t *testing.T) {
	meta, err := decodeMetadata(map[string]interface{}{
		"document_id":      "doc-1",
		"ingest_id":        "run-1",
		"disease_melanoma": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", meta.DocumentID)
	assert.Equal(t, "run-1", meta.IngestID)
}
