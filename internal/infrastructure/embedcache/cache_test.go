package embedcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.vectors[text]
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type stubIndex struct {
	names []string
	err   error
}

func (s *stubIndex) Search(context.Context, []float32, int, ports.IndexFilter) ([]domain.CourseRecord, error) {
	return nil, nil
}

func (s *stubIndex) ListDepartmentNames(context.Context) ([]string, error) {
	return s.names, s.err
}

type stubRegistry struct {
	names []string
}

func (s *stubRegistry) LookupUniversity(string) (*domain.CanonicalName, bool) { return nil, false }
func (s *stubRegistry) LookupDepartment(string) []domain.CanonicalName        { return nil }
func (s *stubRegistry) AllDepartmentVariants(string) []string                 { return nil }
func (s *stubRegistry) DepartmentRecord(string) (*domain.DepartmentRecord, bool) {
	return nil, false
}
func (s *stubRegistry) DepartmentNames() []string      { return s.names }
func (s *stubRegistry) ExpandCategory(string) []string { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRebuildAndScore(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"컴퓨터공학과": {1, 0},
		"고분자공학과": {0, 1},
	}}
	cache := New(embedder, &stubIndex{names: []string{"고분자공학과"}}, &stubRegistry{names: []string{"컴퓨터공학과"}}, discardLogger())

	if cache.Ready() {
		t.Fatalf("cache ready before rebuild")
	}
	if err := cache.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !cache.Ready() {
		t.Fatalf("cache not ready after rebuild")
	}

	score, ok := cache.Score([]float32{1, 0}, "컴퓨터공학과")
	if !ok {
		t.Fatalf("score miss for cached name")
	}
	if math.Abs(score-1.0) > 1e-9 {
		t.Fatalf("identical vector cosine = %f, want 1", score)
	}

	score, ok = cache.Score([]float32{1, 0}, "고분자공학과")
	if !ok {
		t.Fatalf("score miss for index-sourced name")
	}
	if math.Abs(score) > 1e-9 {
		t.Fatalf("orthogonal vector cosine = %f, want 0", score)
	}

	if _, ok := cache.Score([]float32{1, 0}, "간호학과"); ok {
		t.Fatalf("uncached name reported as cached")
	}
}

func TestSizeTracksCachedVectors(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"컴퓨터공학과": {1, 0},
		"고분자공학과": {0, 1},
	}}
	cache := New(embedder, &stubIndex{names: []string{"고분자공학과"}}, &stubRegistry{names: []string{"컴퓨터공학과"}}, discardLogger())

	if cache.Size() != 0 {
		t.Fatalf("size = %d before rebuild, want 0", cache.Size())
	}
	if err := cache.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if cache.Size() != 2 {
		t.Fatalf("size = %d after rebuild, want 2", cache.Size())
	}
}

func TestRebuildFailureKeepsOldTable(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{"컴퓨터공학과": {1, 0}}}
	cache := New(embedder, &stubIndex{}, &stubRegistry{names: []string{"컴퓨터공학과"}}, discardLogger())

	if err := cache.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	embedder.err = errors.New("embed down")
	if err := cache.Rebuild(context.Background()); err == nil {
		t.Fatalf("expected rebuild error")
	}
	if _, ok := cache.Score([]float32{1, 0}, "컴퓨터공학과"); !ok {
		t.Fatalf("old table lost after failed rebuild")
	}
}

func TestRebuildPropagatesIndexError(t *testing.T) {
	cache := New(&stubEmbedder{}, &stubIndex{err: errors.New("scroll failed")}, &stubRegistry{}, discardLogger())

	if err := cache.Rebuild(context.Background()); err == nil {
		t.Fatalf("expected error from index listing")
	}
}
