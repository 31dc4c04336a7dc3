package services

import (
	"strings"

	"github.com/itish2003/guidedpath/models"
)

// entityPatterns are matched as lower-case substrings. The lists favour
// precision over recall; this is a keyword tagger, not NER. Some terms
// (biopsy, surgery, radiation) belong to two categories on purpose.
var entityPatterns = map[models.EntityCategory][]string{
	models.Diseases: {
		"cancer", "carcinoma", "adenocarcinoma", "sarcoma", "lymphoma", "leukemia",
		"melanoma", "tumor", "neoplasm", "malignancy",
	},
	models.Treatments: {
		"chemotherapy", "immunotherapy", "radiation", "surgery", "targeted therapy",
		"hormone therapy", "transplant", "biopsy",
	},
	models.Drugs: {
		"tamoxifen", "methotrexate", "paclitaxel", "doxorubicin", "trastuzumab",
		"pembrolizumab", "nivolumab", "ipilimumab",
	},
	models.Procedures: {
		"biopsy", "surgery", "resection", "lumpectomy", "mastectomy", "radiation",
		"imaging", "scan", "mri", "ct scan", "pet scan",
	},
	models.Anatomy: {
		"breast", "lung", "colon", "prostate", "liver", "brain", "lymph node",
		"bone", "skin", "blood",
	},
	models.Biomarkers: {
		"her2", "er positive", "pr positive", "egfr", "alk", "ros1", "braf",
		"pd-l1", "msi-h", "tmb high",
	},
}

// EntityExtractor tags free text with the fixed medical vocabulary.
type EntityExtractor struct{}

func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{}
}

// Extract never fails; text without matches yields a bag with every category empty.
func (e *EntityExtractor) Extract(text string) models.EntityBag {
	bag := models.NewEntityBag()
	lower := strings.ToLower(text)
	if lower == "" {
		return bag
	}
	for _, category := range models.EntityCategories {
		for _, term := range entityPatterns[category] {
			if strings.Contains(lower, term) {
				bag.Add(category, term)
			}
		}
	}
	return bag
}

// vocabulary returns every term the extractor knows, across categories.
func (e *EntityExtractor) vocabulary() []string {
	seen := make(map[string]bool)
	var out []string
	for _, category := range models.EntityCategories {
		for _, term := range entityPatterns[category] {
			if !seen[term] {
				seen[term] = true
				out = append(out, term)
			}
		}
	}
	return out
}
