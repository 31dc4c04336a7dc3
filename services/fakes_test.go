package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/itish2003/guidedpath/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeIndex keeps chunks in memory. Query returns the chunks matching the
// filter, each with the distance recorded for its id (default 0.5).
type fakeIndex struct {
	mu         sync.Mutex
	chunks     []models.Chunk
	distances  map[string]float64
	addErr     error
	queryErr   error
	countErr   error
	lastFilter models.Filter
	lastK      int
	deleted    []string
}

func newFakeIndex(chunks ...models.Chunk) *fakeIndex {
	return &fakeIndex{chunks: chunks, distances: map[string]float64{}}
}

func (f *fakeIndex) Add(_ context.Context, chunks []models.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, _ []float32, filter models.Filter, k int) ([]models.Neighbor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	f.lastK = k
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []models.Neighbor
	for _, c := range f.chunks {
		if !matchesFilter(c.Metadata, filter) {
			continue
		}
		d, ok := f.distances[c.ID]
		if !ok {
			d = 0.5
		}
		out = append(out, models.Neighbor{Chunk: c, Distance: d})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (f *fakeIndex) DeleteDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentID)
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if c.Metadata.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	return nil
}

func (f *fakeIndex) DeleteStaleChunks(_ context.Context, documentID, ingestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if c.Metadata.DocumentID != documentID || c.Metadata.IngestID == ingestID {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	return nil
}

// matchesFilter evaluates filter the way the Chroma where clause does:
// entity fields through membership keys, everything else on stored scalars.
func matchesFilter(meta models.ChunkMetadata, filter models.Filter) bool {
	raw, _ := json.Marshal(meta)
	scalars := map[string]any{}
	_ = json.Unmarshal(raw, &scalars)
	members := map[string]bool{}
	for _, key := range entityMembershipKeys(meta.Entities) {
		members[key] = true
	}

	for _, p := range filter.Predicates() {
		if _, ok := entityFilterFields[p.Field]; ok && p.Op == models.OpIn {
			found := false
			for _, v := range p.Values {
				found = found || members[entityMembershipKey(p.Field, v)]
			}
			if !found {
				return false
			}
			continue
		}
		value, ok := scalars[p.Field]
		if !ok {
			return false
		}
		switch p.Op {
		case models.OpEq:
			if value != p.Values[0] {
				return false
			}
		case models.OpIn:
			s, _ := value.(string)
			if !slices.Contains(p.Values, s) {
				return false
			}
		case models.OpGte:
			n, _ := value.(float64)
			if n < p.Number {
				return false
			}
		}
	}
	return true
}

func (f *fakeIndex) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.chunks), nil
}

func (f *fakeIndex) IndexedSources(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for _, c := range f.chunks {
		if c.Metadata.SourceFile != "" {
			out[c.Metadata.SourceFile] = c.Metadata.FileHash
		}
	}
	return out, nil
}

type fakeBackend struct {
	content string
	tokens  int
	err     error
	panics  bool
	block   bool
	prompts []string
	mu      sync.Mutex
}

func (f *fakeBackend) Generate(ctx context.Context, req GenerationRequest) (Generation, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	if f.panics {
		panic("backend exploded")
	}
	if f.block {
		<-ctx.Done()
		return Generation{}, ctx.Err()
	}
	if f.err != nil {
		return Generation{}, f.err
	}
	return Generation{Content: f.content, TokensUsed: f.tokens}, nil
}

func (f *fakeBackend) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

var errBoom = errors.New("boom")

func medicalChunk(id, text string, quality float64) models.Chunk {
	return models.Chunk{
		ID:   id,
		Text: text,
		Metadata: models.ChunkMetadata{
			DocumentID:      id,
			Source:          "Clinical guideline",
			Institution:     "ASCO",
			EvidenceLevel:   "rct",
			StudyType:       "rct",
			PublicationDate: "2024-01-01",
			QualityScore:    quality,
			RecencyScore:    0.8,
			Entities:        NewEntityExtractor().Extract(text),
		},
	}
}
