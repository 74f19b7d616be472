package usecase

import (
	"context"
	"log/slog"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

const defaultMinHits = 1

// RetrievalGateway is the single choke point for course search. Every
// caller, tool and orchestrator alike, goes through Retrieve so that
// filter construction and relaxation behave identically everywhere.
type RetrievalGateway struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	registry ports.NameRegistry
	logger   *slog.Logger
	minHits  int
}

func NewRetrievalGateway(embedder ports.Embedder, index ports.VectorIndex, registry ports.NameRegistry, logger *slog.Logger) *RetrievalGateway {
	return &RetrievalGateway{
		embedder: embedder,
		index:    index,
		registry: registry,
		logger:   logger,
		minHits:  defaultMinHits,
	}
}

// Retrieve embeds the question, searches the index under the resolved
// filter and, when too few records match, relaxes the filter in a fixed
// order until something is found or nothing is left to drop.
//
// A transport failure on any attempt aborts the whole call; relaxation
// never advances past an errored search.
func (g *RetrievalGateway) Retrieve(ctx context.Context, question string, filter domain.ResolvedFilter, limit int) (*domain.RetrievalResult, error) {
	const op = "retrieval.Retrieve"

	vector, err := g.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, op, err)
	}

	dropped := make([]string, 0, 4)
	current := filter

	for {
		records, err := g.search(ctx, vector, current, limit)
		if err != nil {
			return nil, domain.WrapError(domain.ErrIndexUnavailable, op, err)
		}
		if len(records) >= g.minHits {
			return &domain.RetrievalResult{Records: records, DroppedFields: dropped}, nil
		}

		next, droppedField, ok := relaxFilter(current)
		if !ok {
			return &domain.RetrievalResult{Records: records, DroppedFields: dropped}, nil
		}
		dropped = append(dropped, droppedField...)
		g.logger.Info("retrieval_filter_relaxed",
			slog.Any("dropped", droppedField),
			slog.Int("hits", len(records)),
		)
		current = next
	}
}

func (g *RetrievalGateway) search(ctx context.Context, vector []float32, filter domain.ResolvedFilter, limit int) ([]domain.CourseRecord, error) {
	var variants []string
	if filter.Department != "" {
		variants = g.registry.AllDepartmentVariants(filter.Department)
	}
	return g.index.Search(ctx, vector, limit, BuildIndexFilter(filter, variants))
}

// relaxFilter drops the least significant populated field and reports
// which fields were removed. The order is fixed: semester, then grade,
// then department and college together, then university. Once every
// field is gone there is nothing left to relax.
func relaxFilter(filter domain.ResolvedFilter) (domain.ResolvedFilter, []string, bool) {
	switch {
	case filter.Semester != 0:
		filter.Semester = 0
		return filter, []string{fieldSemester}, true
	case filter.Grade != 0:
		filter.Grade = 0
		return filter, []string{fieldGrade}, true
	case filter.Department != "" || filter.College != "":
		dropped := make([]string, 0, 2)
		if filter.Department != "" {
			filter.Department = ""
			dropped = append(dropped, fieldDepartment)
		}
		if filter.College != "" {
			filter.College = ""
			dropped = append(dropped, fieldCollege)
		}
		return filter, dropped, true
	case filter.University != "":
		filter.University = ""
		return filter, []string{fieldUniversity}, true
	default:
		return filter, nil, false
	}
}
