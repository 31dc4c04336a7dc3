package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itish2003/guidedpath/models"
)

func TestEntityExtractor_Extract(t *testing.T) {
	extractor := NewEntityExtractor()

	t.Run("Text without medical content", func(t *testing.T) {
		bag := extractor.Extract("no medical content here")
		for _, c := range models.EntityCategories {
			assert.Empty(t, bag[c], "Expected category %s to be empty", c)
		}
		assert.Len(t, bag, len(models.EntityCategories), "Expected every category to be present")
	})

	t.Run("Empty text", func(t *testing.T) {
		bag := extractor.Extract("")
		assert.Equal(t, 0, bag.Count())
		assert.Len(t, bag, len(models.EntityCategories))
	})

	t.Run("Breast cancer query", func(t *testing.T) {
		bag := extractor.Extract("breast cancer chemotherapy her2")
		assert.Equal(t, []string{"cancer"}, bag[models.Diseases])
		assert.Equal(t, []string{"chemotherapy"}, bag[models.Treatments])
		assert.Equal(t, []string{"breast"}, bag[models.Anatomy])
		assert.Equal(t, []string{"her2"}, bag[models.Biomarkers])
		assert.Empty(t, bag[models.Drugs])
		assert.Empty(t, bag[models.Procedures])
	})

	t.Run("Case insensitive and counted once", func(t *testing.T) {
		bag := extractor.Extract("CANCER, cancer and Cancer treated with Trastuzumab")
		assert.Equal(t, []string{"cancer"}, bag[models.Diseases])
		assert.Equal(t, []string{"trastuzumab"}, bag[models.Drugs])
	})

	t.Run("Substring matches are intentional", func(t *testing.T) {
		bag := extractor.Extract("Adenocarcinoma after surgery")
		assert.Equal(t, []string{"adenocarcinoma", "carcinoma"}, bag[models.Diseases])
		assert.Equal(t, []string{"surgery"}, bag[models.Treatments])
		assert.Equal(t, []string{"surgery"}, bag[models.Procedures])
	})
}
