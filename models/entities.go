package models

import "sort"

// EntityCategory names one bucket of the heuristic medical entity extractor.
type EntityCategory string

const (
	Diseases   EntityCategory = "diseases"
	Treatments EntityCategory = "treatments"
	Drugs      EntityCategory = "drugs"
	Procedures EntityCategory = "procedures"
	Anatomy    EntityCategory = "anatomy"
	Biomarkers EntityCategory = "biomarkers"
)

// EntityCategories lists every category in a fixed order.
var EntityCategories = []EntityCategory{Diseases, Treatments, Drugs, Procedures, Anatomy, Biomarkers}

// EntityBag maps each category to a sorted set of matched terms.
type EntityBag map[EntityCategory][]string

// NewEntityBag returns a bag with every category present and empty.
func NewEntityBag() EntityBag {
	bag := make(EntityBag, len(EntityCategories))
	for _, c := range EntityCategories {
		bag[c] = []string{}
	}
	return bag
}

// Add inserts term into category, keeping the set sorted and free of duplicates.
func (b EntityBag) Add(category EntityCategory, term string) {
	terms := b[category]
	i := sort.SearchStrings(terms, term)
	if i < len(terms) && terms[i] == term {
		return
	}
	terms = append(terms, "")
	copy(terms[i+1:], terms[i:])
	terms[i] = term
	b[category] = terms
}

// Merge adds every term of other into b.
func (b EntityBag) Merge(other EntityBag) {
	for c, terms := range other {
		for _, t := range terms {
			b.Add(c, t)
		}
	}
}

// Has reports whether term is present in category.
func (b EntityBag) Has(category EntityCategory, term string) bool {
	terms := b[category]
	i := sort.SearchStrings(terms, term)
	return i < len(terms) && terms[i] == term
}

// Overlap counts the terms of category present in both bags.
func (b EntityBag) Overlap(other EntityBag, category EntityCategory) int {
	n := 0
	for _, t := range b[category] {
		if other.Has(category, t) {
			n++
		}
	}
	return n
}

// Count returns the total number of terms across all categories.
func (b EntityBag) Count() int {
	n := 0
	for _, terms := range b {
		n += len(terms)
	}
	return n
}

// Terms flattens the bag in category order.
func (b EntityBag) Terms() []string {
	var out []string
	for _, c := range EntityCategories {
		out = append(out, b[c]...)
	}
	return out
}
