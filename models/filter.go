package models

// FilterOp is a predicate operator understood by the vector index.
type FilterOp string

const (
	OpEq  FilterOp = "$eq"
	OpIn  FilterOp = "$in"
	OpGte FilterOp = "$gte"
)

// Predicate constrains one metadata field.
type Predicate struct {
	Field  string
	Op     FilterOp
	Values []string
	Number float64
}

// Filter is an ordered conjunction of predicates, at most one per field.
type Filter struct {
	predicates []Predicate
}

// Eq sets field == value.
func (f *Filter) Eq(field, value string) {
	f.set(Predicate{Field: field, Op: OpEq, Values: []string{value}})
}

// In sets field ∈ values. Empty value lists are ignored.
func (f *Filter) In(field string, values ...string) {
	if len(values) == 0 {
		return
	}
	f.set(Predicate{Field: field, Op: OpIn, Values: append([]string(nil), values...)})
}

// Gte sets field >= n.
func (f *Filter) Gte(field string, n float64) {
	f.set(Predicate{Field: field, Op: OpGte, Number: n})
}

// Has reports whether field already carries a predicate.
func (f *Filter) Has(field string) bool {
	_, ok := f.Get(field)
	return ok
}

// Get returns the predicate on field.
func (f *Filter) Get(field string) (Predicate, bool) {
	for _, p := range f.predicates {
		if p.Field == field {
			return p, true
		}
	}
	return Predicate{}, false
}

// Predicates returns the predicates in insertion order.
func (f *Filter) Predicates() []Predicate {
	return append([]Predicate(nil), f.predicates...)
}

// Len is the number of predicates.
func (f *Filter) Len() int { return len(f.predicates) }

// set replaces an existing predicate on the same field in place.
func (f *Filter) set(p Predicate) {
	for i := range f.predicates {
		if f.predicates[i].Field == p.Field {
			f.predicates[i] = p
			return
		}
	}
	f.predicates = append(f.predicates, p)
}
