package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/itish2003/guidedpath/models"
)

// ConfigurePDFLicense registers the UniDoc metered key. PDF extraction fails
// without it; plain text files still work.
func ConfigurePDFLicense(key string) error {
	if key == "" {
		return errors.New("no unidoc license key configured")
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("failed to set unidoc license key: %w", err)
	}
	return nil
}

// ExtractTextFromFile reads a file and returns its text content.
// It automatically handles different file types.
func ExtractTextFromFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(content), nil
	case ".pdf":
		return extractTextFromPDF(path)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// extractTextFromPDF uses UniPDF to get all text from a PDF file.
func extractTextFromPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("reading page %d of %s: %w", i, path, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}

type namedValue struct {
	needle string
	value  string
}

// Ordered: the first match wins.
var institutionNames = []namedValue{
	{"national comprehensive cancer network", "NCCN"},
	{"american society of clinical oncology", "ASCO"},
	{"european society for medical oncology", "ESMO"},
	{"national cancer institute", "NCI"},
	{"american cancer society", "ACS"},
	{"world health organization", "WHO"},
	{"food and drug administration", "FDA"},
	{"national institutes of health", "NIH"},
	{"european medicines agency", "EMA"},
	{"cochrane", "COCHRANE"},
	{"uptodate", "UPTODATE"},
	{"clinicaltrials.gov", "CLINICALTRIALS"},
	{"national foundation for cancer research", "NFCR"},
	{"nfcr", "NFCR"},
}

var evidenceCues = []struct {
	level string
	cues  []string
}{
	{"systematic-review", []string{"systematic review", "meta-analysis", "meta analysis"}},
	{"randomized-controlled-trial", []string{"randomized controlled trial", "rct", "randomized trial"}},
	{"cohort-study", []string{"cohort study", "prospective study"}},
	{"case-control", []string{"case control", "case-control study"}},
	{"expert-opinion", []string{"guideline", "consensus", "expert opinion"}},
}

var documentTypeCues = []struct {
	kind string
	cues []string
}{
	{"clinical-trial", []string{"clinical trial", "trial protocol", "study protocol"}},
	{"review", []string{"review", "literature review", "systematic review"}},
	{"guideline", []string{"guideline", "recommendation", "consensus"}},
	{"case-study", []string{"case study", "case report"}},
}

var cancerTypes = []string{
	"breast cancer", "lung cancer", "prostate cancer", "colorectal cancer",
	"melanoma", "leukemia", "lymphoma", "pancreatic cancer", "ovarian cancer",
	"bladder cancer", "kidney cancer", "liver cancer", "stomach cancer",
	"esophageal cancer", "thyroid cancer", "brain cancer", "cervical cancer",
	"endometrial cancer", "testicular cancer", "bone cancer", "sarcoma",
	"myeloma", "myelodysplastic", "waldenstrom",
}

// InferDocumentMetadata fills institution, evidence level, document type and
// cancer type from the text and file name.
func InferDocumentMetadata(doc *models.DocumentRecord, path, content string) {
	lower := strings.ToLower(content)

	doc.Institution = "Unknown"
	for _, inst := range institutionNames {
		if strings.Contains(lower, inst.needle) {
			doc.Institution = inst.value
			break
		}
	}

	doc.EvidenceLevel = "unknown"
evidence:
	for _, e := range evidenceCues {
		for _, cue := range e.cues {
			if strings.Contains(lower, cue) {
				doc.EvidenceLevel = e.level
				break evidence
			}
		}
	}

	doc.DocumentType = "general"
docType:
	for _, d := range documentTypeCues {
		for _, cue := range d.cues {
			if strings.Contains(lower, cue) {
				doc.DocumentType = d.kind
				break docType
			}
		}
	}

	doc.CancerType = cancerTypeFromFilename(filepath.Base(path))
}

func cancerTypeFromFilename(name string) string {
	squash := strings.NewReplacer(" ", "", "_", "", "-", "")
	flat := squash.Replace(strings.ToLower(name))
	for _, ct := range cancerTypes {
		if strings.Contains(flat, strings.ReplaceAll(ct, " ", "")) {
			return ct
		}
	}
	return ""
}
