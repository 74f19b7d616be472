package ports

import (
	"context"

	"github.com/maroco/major-mentor/internal/core/domain"
)

// ChatService is the inbound contract for one question-to-answer turn.
type ChatService interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error)
}

// CourseRetriever is the inbound contract for direct gateway access.
type CourseRetriever interface {
	Retrieve(ctx context.Context, question string, filter domain.ResolvedFilter, k int) (*domain.RetrievalResult, error)
}

// DepartmentDirectory serves department detail lookups.
type DepartmentDirectory interface {
	DepartmentDetail(name string) (*domain.DepartmentRecord, error)
}
