package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/itish2003/guidedpath/models"
)

// VectorIndex stores chunks and answers filtered nearest-neighbor queries.
// Distances returned by Query are cosine distances in [0,2].
type VectorIndex interface {
	Add(ctx context.Context, chunks []models.Chunk) error
	Query(ctx context.Context, embedding []float32, filter models.Filter, k int) ([]models.Neighbor, error)
	DeleteDocument(ctx context.Context, documentID string) error
	// DeleteStaleChunks removes the chunks of a document written by any
	// ingestion other than ingestID.
	DeleteStaleChunks(ctx context.Context, documentID, ingestID string) error
	Count(ctx context.Context) (int, error)
	// IndexedSources maps every indexed source file to the hash it was indexed with.
	IndexedSources(ctx context.Context) (map[string]string, error)
}

const entitiesKey = "entities_json"

// entityFilterFields are the filter fields answered by entity membership
// rather than by a scalar metadata value.
var entityFilterFields = map[string]models.EntityCategory{
	"disease":    models.Diseases,
	"treatment":  models.Treatments,
	"biomarkers": models.Biomarkers,
}

// entityMembershipKey is the boolean metadata key marking that a chunk
// carries term, e.g. disease_melanoma or treatment_targeted_therapy.
func entityMembershipKey(field, term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	return field + "_" + strings.ReplaceAll(term, " ", "_")
}

// entityMembershipKeys lists one key per filterable entity term in bag.
func entityMembershipKeys(bag models.EntityBag) []string {
	var keys []string
	for _, field := range []string{"disease", "treatment", "biomarkers"} {
		for _, term := range bag[entityFilterFields[field]] {
			keys = append(keys, entityMembershipKey(field, term))
		}
	}
	return keys
}

// ChromaIndex is the VectorIndex backed by a Chroma collection.
type ChromaIndex struct {
	collection chromago.Collection
	log        *slog.Logger
}

// OpenChromaIndex gets or creates a cosine-space collection.
func OpenChromaIndex(ctx context.Context, client chromago.Client, collectionName string, logger *slog.Logger) (*ChromaIndex, error) {
	logger.Info("Getting or creating collection", slog.String("collection", collectionName))

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Medical guideline evidence chunks"),
				chromago.NewStringAttribute("created_by", "guidedpath"),
				chromago.NewStringAttribute("hnsw:space", "cosine"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %s: %w", collectionName, err)
	}
	return NewChromaIndex(collection, logger), nil
}

func NewChromaIndex(collection chromago.Collection, logger *slog.Logger) *ChromaIndex {
	return &ChromaIndex{collection: collection, log: logger}
}

// Add writes chunks with their embeddings and metadata in one call.
func (x *ChromaIndex) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]chromago.DocumentID, len(chunks))
	texts := make([]string, len(chunks))
	embs := make([]embeddings.Embedding, len(chunks))
	metas := make([]chromago.DocumentMetadata, len(chunks))
	for i, ch := range chunks {
		meta, err := encodeMetadata(ch.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for chunk %s: %w", ch.ID, err)
		}
		ids[i] = chromago.DocumentID(ch.ID)
		texts[i] = ch.Text
		embs[i] = embeddings.NewEmbeddingFromFloat32(ch.Embedding)
		metas[i] = meta
	}

	err := x.collection.Add(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("failed to add %d chunks to chromadb: %w", len(chunks), err)
	}
	return nil
}

// Query returns up to k neighbors that satisfy filter.
func (x *ChromaIndex) Query(ctx context.Context, embedding []float32, filter models.Filter, k int) ([]models.Neighbor, error) {
	opts := []chromago.CollectionQueryOption{
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chromago.WithNResults(k),
	}
	if where := whereFromFilter(filter); where != nil {
		opts = append(opts, chromago.WithWhereQuery(where))
	}

	results, err := x.collection.Query(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	idGroups := results.GetIDGroups()
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	neighbors := make([]models.Neighbor, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		if doc == nil || doc.ContentString() == "" {
			continue
		}
		var meta models.ChunkMetadata
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			meta, err = decodeMetadata(metadataGroups[0][i])
			if err != nil {
				x.log.Warn("Could not decode chunk metadata", slog.Any("error", err))
			}
		}
		var id string
		if len(idGroups) > 0 && i < len(idGroups[0]) {
			id = string(idGroups[0][i])
		}
		distance := 2.0
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			distance = float64(distanceGroups[0][i])
		}
		neighbors = append(neighbors, models.Neighbor{
			Chunk:    models.Chunk{ID: id, Text: doc.ContentString(), Metadata: meta},
			Distance: distance,
		})
	}
	return neighbors, nil
}

// DeleteDocument removes every chunk of a document.
func (x *ChromaIndex) DeleteDocument(ctx context.Context, documentID string) error {
	where := chromago.EqString("document_id", documentID)
	if err := x.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", documentID, err)
	}
	return nil
}

func (x *ChromaIndex) DeleteStaleChunks(ctx context.Context, documentID, ingestID string) error {
	where := chromago.And(
		chromago.EqString("document_id", documentID),
		chromago.NotEqString("ingest_id", ingestID),
	)
	if err := x.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("failed to delete stale chunks of %s: %w", documentID, err)
	}
	return nil
}

// Count counts all the chunks in the collection.
func (x *ChromaIndex) Count(ctx context.Context) (int, error) {
	count, err := x.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(count), nil
}

func (x *ChromaIndex) IndexedSources(ctx context.Context) (map[string]string, error) {
	results, err := x.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents from chromadb: %w", err)
	}
	state := make(map[string]string)
	for _, meta := range results.GetMetadatas() {
		if meta == nil {
			continue
		}
		m, err := decodeMetadata(meta)
		if err != nil || m.SourceFile == "" {
			continue
		}
		if _, exists := state[m.SourceFile]; !exists {
			state[m.SourceFile] = m.FileHash
		}
	}
	return state, nil
}

// whereFromFilter translates a Filter into a Chroma where clause; nil when empty.
func whereFromFilter(filter models.Filter) chromago.WhereClause {
	var clauses []chromago.WhereClause
	for _, p := range filter.Predicates() {
		switch p.Op {
		case models.OpEq:
			clauses = append(clauses, chromago.EqString(p.Field, p.Values[0]))
		case models.OpIn:
			if _, ok := entityFilterFields[p.Field]; ok {
				clauses = append(clauses, entityMembershipClause(p.Field, p.Values))
				continue
			}
			clauses = append(clauses, chromago.InString(p.Field, p.Values...))
		case models.OpGte:
			clauses = append(clauses, chromago.GteFloat(p.Field, float32(p.Number)))
		}
	}
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return chromago.And(clauses...)
	}
}

// entityMembershipClause matches chunks carrying any of terms.
func entityMembershipClause(field string, terms []string) chromago.WhereClause {
	clauses := make([]chromago.WhereClause, 0, len(terms))
	for _, term := range terms {
		clauses = append(clauses, chromago.EqBool(entityMembershipKey(field, term), true))
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return chromago.Or(clauses...)
}

func encodeMetadata(m models.ChunkMetadata) (chromago.DocumentMetadata, error) {
	entities := m.Entities
	if entities == nil {
		entities = models.NewEntityBag()
	}
	entitiesJSON, err := json.Marshal(entities)
	if err != nil {
		return nil, err
	}

	attrs := []*chromago.MetaAttribute{
		chromago.NewStringAttribute("document_id", m.DocumentID),
		chromago.NewIntAttribute("chunk_index", int64(m.ChunkIndex)),
		chromago.NewStringAttribute("source", m.Source),
		chromago.NewStringAttribute("institution", m.Institution),
		chromago.NewStringAttribute("evidence_level", m.EvidenceLevel),
		chromago.NewStringAttribute("publication_date", m.PublicationDate),
		chromago.NewStringAttribute("document_type", m.DocumentType),
		chromago.NewStringAttribute("cancer_type", m.CancerType),
		chromago.NewFloatAttribute("quality_score", m.QualityScore),
		chromago.NewFloatAttribute("recency_score", m.RecencyScore),
		chromago.NewStringAttribute(entitiesKey, string(entitiesJSON)),
	}
	optional := map[string]string{
		"study_type":  m.StudyType,
		"stage":       m.Stage,
		"url":         m.URL,
		"doi":         m.DOI,
		"source_file": m.SourceFile,
		"file_hash":   m.FileHash,
		"ingest_id":   m.IngestID,
	}
	for _, key := range []string{"study_type", "stage", "url", "doi", "source_file", "file_hash", "ingest_id"} {
		if v := optional[key]; v != "" {
			attrs = append(attrs, chromago.NewStringAttribute(key, v))
		}
	}
	if m.SampleSize > 0 {
		attrs = append(attrs, chromago.NewIntAttribute("sample_size", int64(m.SampleSize)))
	}
	flags := []struct {
		key string
		on  bool
	}{
		{"randomized", m.Randomized},
		{"blinded", m.Blinded},
		{"double_blinded", m.DoubleBlinded},
		{"multicenter", m.Multicenter},
		{"long_term_followup", m.LongTermFollowup},
		{"statistical_significance", m.StatisticalSignificance},
	}
	for _, f := range flags {
		if f.on {
			attrs = append(attrs, chromago.NewBoolAttribute(f.key, true))
		}
	}
	for _, key := range entityMembershipKeys(entities) {
		attrs = append(attrs, chromago.NewBoolAttribute(key, true))
	}
	return chromago.NewDocumentMetadata(attrs...), nil
}

// decodeMetadata converts index metadata into ChunkMetadata through a JSON
// round trip. The cached entities are a JSON string decoded separately.
func decodeMetadata(meta interface{}) (models.ChunkMetadata, error) {
	var out models.ChunkMetadata
	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		return out, fmt.Errorf("could not marshal metadata: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, &out); err != nil {
		return out, fmt.Errorf("could not unmarshal metadata: %w", err)
	}

	var raw struct {
		Entities string `json:"entities_json"`
	}
	out.Entities = models.NewEntityBag()
	if err := json.Unmarshal(jsonBytes, &raw); err != nil || raw.Entities == "" {
		return out, nil
	}
	var bag models.EntityBag
	if err := json.Unmarshal([]byte(raw.Entities), &bag); err != nil {
		return out, fmt.Errorf("could not decode cached entities: %w", err)
	}
	out.Entities.Merge(bag)
	return out, nil
}
