package ports

import (
	"context"

	"github.com/maroco/major-mentor/internal/core/domain"
)

// NameRegistry answers canonical-name lookups. Read-only after load and
// safe for concurrent use.
type NameRegistry interface {
	LookupUniversity(text string) (*domain.CanonicalName, bool)
	// LookupDepartment returns every canonical department the text maps
	// to. One element is a resolution; more than one is an ambiguity the
	// caller must surface, never silently pick from.
	LookupDepartment(text string) []domain.CanonicalName
	AllDepartmentVariants(canonical string) []string
	DepartmentRecord(canonical string) (*domain.DepartmentRecord, bool)
	DepartmentNames() []string
	ExpandCategory(keyword string) []string
}

// Embedder builds vectors for query text. Must be the same model and
// dimension the index was built with.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// IndexFilter is the index's native filter shape, built by the filter
// builder and passed through opaquely.
type IndexFilter map[string]any

// VectorIndex is the external index boundary consumed by the retrieval
// gateway. Search errors surface after the client's own retry budget.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int, filter IndexFilter) ([]domain.CourseRecord, error)
	// ListDepartmentNames scrolls distinct department names out of the
	// index metadata; the department-embedding cache is built from it.
	ListDepartmentNames(ctx context.Context) ([]string, error)
}

// LanguageModel is the completion-service boundary: prompt in, message
// out. Semantic decisions are never retried, only transport failures.
type LanguageModel interface {
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
	GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error)
}

// DepartmentEmbeddings is the precomputed per-canonical-name vector
// cache. Score returns cosine similarity against the cached vector;
// ok=false means the cache has no entry (matcher degrades to lexical).
type DepartmentEmbeddings interface {
	Score(queryVector []float32, canonical string) (float64, bool)
	Ready() bool
	Rebuild(ctx context.Context) error
}

// TranscriptStore persists the per-turn audit transcript.
type TranscriptStore interface {
	AppendEntry(ctx context.Context, entry domain.TranscriptEntry) error
}

// IndexEventQueue carries index-version events; the worker rebuilds the
// department-embedding cache when one arrives.
type IndexEventQueue interface {
	PublishIndexUpdated(ctx context.Context, version string) error
	SubscribeIndexUpdated(ctx context.Context, handler func(context.Context, string) error) error
}
