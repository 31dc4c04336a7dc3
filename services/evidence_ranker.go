package services

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/itish2003/guidedpath/models"
)

var evidenceHierarchy = map[string]float64{
	"meta_analysis":               1.0,
	"systematic_review":           0.95,
	"rct":                         0.9,
	"randomized_controlled_trial": 0.9,
	"cohort_study":                0.7,
	"prospective_cohort":          0.75,
	"retrospective_cohort":        0.65,
	"case_control":                0.6,
	"case_series":                 0.5,
	"expert_opinion":              0.4,
	"guidelines":                  0.85,
	"consensus_statement":         0.8,
	"animal_study":                0.2,
	"in_vitro":                    0.1,
	"preclinical":                 0.15,
}

var institutionAuthority = map[string]float64{
	"ASCO":           1.0,
	"NCCN":           0.95,
	"ESMO":           0.9,
	"EULAR":          0.9,
	"FDA":            0.85,
	"NIH":            0.8,
	"EMA":            0.8,
	"WHO":            0.75,
	"CDC":            0.7,
	"AHRQ":           0.75,
	"COCHRANE":       0.95,
	"UPTODATE":       0.6,
	"PUBMED":         0.5,
	"CLINICALTRIALS": 0.8,
}

const (
	defaultStudyTypeScore   = 0.3
	defaultInstitutionScore = 0.5
	unknownTimeliness       = 0.5
)

var (
	isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	usDate  = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	year    = regexp.MustCompile(`^\d{4}$`)
)

// EvidenceRanker orders retrieval results by evidence strength, relevance,
// timeliness and institutional authority.
type EvidenceRanker struct {
	now func() time.Time
}

func NewEvidenceRanker() *EvidenceRanker {
	return &EvidenceRanker{now: time.Now}
}

// NewEvidenceRankerAt pins the ranker's clock, mostly for tests.
func NewEvidenceRankerAt(now func() time.Time) *EvidenceRanker {
	return &EvidenceRanker{now: now}
}

// Rank scores every result and sorts by final score, keeping input order on ties.
func (r *EvidenceRanker) Rank(results []models.RetrievalResult, queryEntities models.EntityBag) []models.RankedDocument {
	ranked := make([]models.RankedDocument, len(results))
	for i, res := range results {
		meta := res.Chunk.Metadata
		s := models.EvidenceScore{
			Evidence:    r.evidenceScore(meta),
			Relevance:   r.relevanceScore(res.Chunk, queryEntities),
			Timeliness:  r.timelinessScore(meta.PublicationDate),
			Institution: institutionScore(meta.Institution),
		}
		s.Final = 0.4*s.Evidence + 0.3*s.Relevance + 0.15*s.Timeliness + 0.15*s.Institution
		ranked[i] = models.RankedDocument{RetrievalResult: res, Scores: s}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores.Final > ranked[j].Scores.Final
	})
	return ranked
}

func (r *EvidenceRanker) evidenceScore(meta models.ChunkMetadata) float64 {
	base, ok := evidenceHierarchy[normalizeKey(meta.StudyType)]
	if !ok {
		base = defaultStudyTypeScore
	}
	if lvl, ok := evidenceHierarchy[normalizeKey(meta.EvidenceLevel)]; ok {
		base = lvl
	}

	score := base + institutionAuthority[strings.ToUpper(strings.TrimSpace(meta.Institution))]
	score += sampleSizeBoost(meta.SampleSize)
	if meta.Randomized {
		score += 0.05
	}
	if meta.Blinded || meta.DoubleBlinded {
		score += 0.03
	}
	if meta.Multicenter {
		score += 0.02
	}
	if meta.LongTermFollowup {
		score += 0.02
	}
	if meta.StatisticalSignificance {
		score += 0.01
	}
	return math.Min(score, 1.0)
}

func sampleSizeBoost(n int) float64 {
	switch {
	case n > 10000:
		return 0.08
	case n > 5000:
		return 0.06
	case n > 1000:
		return 0.04
	case n > 500:
		return 0.02
	case n > 100:
		return 0.01
	}
	return 0
}

func (r *EvidenceRanker) relevanceScore(chunk models.Chunk, queryEntities models.EntityBag) float64 {
	docEntities := chunk.Metadata.Entities
	score := 0.0
	for _, category := range models.EntityCategories {
		score += 0.15 * float64(queryEntities.Overlap(docEntities, category))
	}

	queryWords := make(map[string]bool)
	for _, term := range queryEntities.Terms() {
		for w := range words(term) {
			queryWords[w] = true
		}
	}
	docWords := words(chunk.Text)
	if len(queryWords) > 0 && len(docWords) > 0 {
		shared := 0
		for w := range queryWords {
			if docWords[w] {
				shared++
			}
		}
		score += 0.1 * float64(shared) / float64(len(docWords))
	}
	return math.Min(score, 1.0)
}

func (r *EvidenceRanker) timelinessScore(publicationDate string) float64 {
	pub, ok := parsePublicationDate(publicationDate)
	if !ok {
		return unknownTimeliness
	}
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	within := func(years int) bool {
		return !today.After(pub.AddDate(years, 0, 0))
	}
	switch {
	case within(1):
		return 1.0
	case within(2):
		return 0.9
	case within(3):
		return 0.8
	case within(5):
		return 0.7
	case within(10):
		return 0.5
	}
	return 0.3
}

// parsePublicationDate accepts YYYY-MM-DD, MM-DD-YYYY and a bare year.
func parsePublicationDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	var layout string
	switch {
	case isoDate.MatchString(s):
		layout = "2006-01-02"
	case usDate.MatchString(s):
		layout = "01-02-2006"
	case year.MatchString(s):
		layout = "2006"
	default:
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func institutionScore(institution string) float64 {
	if w, ok := institutionAuthority[strings.ToUpper(strings.TrimSpace(institution))]; ok {
		return w
	}
	return defaultInstitutionScore
}

// normalizeKey folds "Meta-Analysis" and "meta analysis" onto "meta_analysis".
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// EvidenceLevelDescription labels a mean evidence score.
func EvidenceLevelDescription(score float64) string {
	switch {
	case score >= 0.9:
		return "Very High Quality Evidence"
	case score >= 0.8:
		return "High Quality Evidence"
	case score >= 0.7:
		return "Moderate Quality Evidence"
	case score >= 0.5:
		return "Low Quality Evidence"
	}
	return "Very Low Quality Evidence"
}

// RecommendationStrength labels a mean final score.
func RecommendationStrength(score float64) string {
	switch {
	case score >= 0.9:
		return "Strong Recommendation"
	case score >= 0.8:
		return "Moderate Recommendation"
	case score >= 0.6:
		return "Weak Recommendation"
	}
	return "Insufficient Evidence"
}

// OverallEvidenceQuality labels the mean final score of a ranked set.
func OverallEvidenceQuality(docs []models.RankedDocument) string {
	if len(docs) == 0 {
		return "No Evidence Available"
	}
	mean := meanScore(docs, func(s models.EvidenceScore) float64 { return s.Final })
	switch {
	case mean >= 0.9:
		return "Very High Quality"
	case mean >= 0.8:
		return "High Quality"
	case mean >= 0.7:
		return "Moderate Quality"
	case mean >= 0.5:
		return "Low Quality"
	}
	return "Very Low Quality"
}

func meanScore(docs []models.RankedDocument, axis func(models.EvidenceScore) float64) float64 {
	if len(docs) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range docs {
		total += axis(d.Scores)
	}
	return total / float64(len(docs))
}
