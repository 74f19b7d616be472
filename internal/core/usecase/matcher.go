package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

const defaultMatchTopK = 10

// DepartmentMatcher ranks department-name candidates by fusing lexical
// similarity over the registry with embedding similarity over the cached
// department vector table. Each call re-ranks from scratch.
type DepartmentMatcher struct {
	registry   ports.NameRegistry
	embedder   ports.Embedder
	embeddings ports.DepartmentEmbeddings
}

func NewDepartmentMatcher(
	registry ports.NameRegistry,
	embedder ports.Embedder,
	embeddings ports.DepartmentEmbeddings,
) *DepartmentMatcher {
	return &DepartmentMatcher{
		registry:   registry,
		embedder:   embedder,
		embeddings: embeddings,
	}
}

func (m *DepartmentMatcher) MatchDepartments(ctx context.Context, query string, topK int) []domain.DepartmentCandidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if topK <= 0 {
		topK = defaultMatchTopK
	}

	tokens, embedText := m.expandQuery(query)

	queryVector := m.queryVector(ctx, embedText)

	candidates := make([]domain.DepartmentCandidate, 0, len(m.registry.DepartmentNames()))
	for _, canonical := range m.registry.DepartmentNames() {
		lexical := m.lexicalScore(tokens, canonical)
		semantic, hasSemantic := 0.0, false
		if queryVector != nil {
			semantic, hasSemantic = m.embeddings.Score(queryVector, canonical)
		}

		fused := lexical
		if hasSemantic {
			fused = 0.5*lexical + 0.5*semantic
		}
		if fused <= 0 {
			continue
		}
		candidates = append(candidates, domain.DepartmentCandidate{
			Name:          canonical,
			LexicalScore:  lexical,
			SemanticScore: semantic,
			FusedScore:    fused,
		})
	}

	normalizedQuery := strings.ReplaceAll(query, " ", "")
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FusedScore != candidates[j].FusedScore {
			return candidates[i].FusedScore > candidates[j].FusedScore
		}
		di := editDistance([]rune(normalizedQuery), []rune(candidates[i].Name))
		dj := editDistance([]rune(normalizedQuery), []rune(candidates[j].Name))
		if di != dj {
			return di < dj
		}
		return candidates[i].Name < candidates[j].Name
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// MatchWithin ranks only the given names, reusing the matcher's scoring.
// The validator uses it to search the turn's observed entity set.
func (m *DepartmentMatcher) MatchWithin(ctx context.Context, query string, names []string) []domain.DepartmentCandidate {
	query = strings.TrimSpace(query)
	if query == "" || len(names) == 0 {
		return nil
	}

	queryVector := m.queryVector(ctx, query)
	tokens := []string{query}

	candidates := make([]domain.DepartmentCandidate, 0, len(names))
	for _, name := range names {
		lexical := m.lexicalScore(tokens, name)
		semantic, hasSemantic := 0.0, false
		if queryVector != nil {
			semantic, hasSemantic = m.embeddings.Score(queryVector, name)
		}
		fused := lexical
		if hasSemantic {
			fused = 0.5*lexical + 0.5*semantic
		}
		candidates = append(candidates, domain.DepartmentCandidate{
			Name:          name,
			LexicalScore:  lexical,
			SemanticScore: semantic,
			FusedScore:    fused,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FusedScore > candidates[j].FusedScore
	})
	return candidates
}

// expandQuery applies the static keyword/category table before scoring so
// broad theme words ("공학") recall their member departments.
func (m *DepartmentMatcher) expandQuery(query string) (tokens []string, embedText string) {
	if expanded := m.registry.ExpandCategory(query); len(expanded) > 0 {
		return expanded, strings.Join(expanded, " ")
	}
	parts := splitQueryTokens(query)
	if len(parts) > 1 {
		return parts, strings.Join(parts, " ")
	}
	return []string{query}, query
}

// queryVector embeds the query text. Any failure degrades the call to
// lexical-only scoring instead of failing the match.
func (m *DepartmentMatcher) queryVector(ctx context.Context, text string) []float32 {
	if m.embedder == nil || m.embeddings == nil || !m.embeddings.Ready() {
		return nil
	}
	vector, err := m.embedder.EmbedQuery(ctx, text)
	if err != nil {
		slog.Warn("department_match_embed_degraded", "error", err)
		return nil
	}
	if len(vector) == 0 {
		return nil
	}
	return vector
}

// lexicalScore is the max similarity between any query token and any
// registered variant of the canonical name.
func (m *DepartmentMatcher) lexicalScore(tokens []string, canonical string) float64 {
	variants := m.registry.AllDepartmentVariants(canonical)
	if len(variants) == 0 {
		variants = []string{canonical}
	}

	best := 0.0
	for _, token := range tokens {
		normalizedToken := strings.ReplaceAll(strings.TrimSpace(token), " ", "")
		for _, variant := range variants {
			score := lexicalSimilarity(normalizedToken, strings.ReplaceAll(variant, " ", ""))
			if score > best {
				best = score
			}
		}
	}
	return best
}
