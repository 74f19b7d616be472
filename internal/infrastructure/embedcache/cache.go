package embedcache

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/maroco/major-mentor/internal/core/ports"
)

const embedBatchSize = 64

// Cache holds one embedding vector per canonical department name. The
// matcher reads it on every request; the worker replaces the whole table
// on index-updated events. Reads see either the old table or the new
// one, never a mix.
type Cache struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	registry ports.NameRegistry
	logger   *slog.Logger

	mu      sync.RWMutex
	vectors map[string][]float32
}

func New(embedder ports.Embedder, index ports.VectorIndex, registry ports.NameRegistry, logger *slog.Logger) *Cache {
	return &Cache{
		embedder: embedder,
		index:    index,
		registry: registry,
		logger:   logger,
	}
}

// Score returns cosine similarity between the query vector and the
// cached vector for canonical. ok=false when the name is not cached;
// the matcher then falls back to lexical scoring for it.
func (c *Cache) Score(queryVector []float32, canonical string) (float64, bool) {
	c.mu.RLock()
	vector, ok := c.vectors[canonical]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return cosine(queryVector, vector), true
}

func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors) > 0
}

// Size returns the number of cached department vectors.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Rebuild embeds the union of registry departments and the names the
// index currently holds, then swaps the table in one step. A failure
// leaves the previous table serving.
func (c *Cache) Rebuild(ctx context.Context) error {
	names, err := c.collectNames(ctx)
	if err != nil {
		return fmt.Errorf("collect department names: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no department names to embed")
	}

	next := make(map[string][]float32, len(names))
	for start := 0; start < len(names); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(names) {
			end = len(names)
		}
		batch := names[start:end]

		vectors, err := c.embedder.Embed(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed department batch: %w", err)
		}
		for i, name := range batch {
			if len(vectors[i]) == 0 {
				continue
			}
			next[name] = vectors[i]
		}
	}

	c.mu.Lock()
	c.vectors = next
	c.mu.Unlock()

	c.logger.Info("department_embeddings_rebuilt", slog.Int("departments", len(next)))
	return nil
}

func (c *Cache) collectNames(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, name := range c.registry.DepartmentNames() {
		seen[name] = struct{}{}
	}

	indexNames, err := c.index.ListDepartmentNames(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range indexNames {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
