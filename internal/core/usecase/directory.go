package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

// DepartmentDirectoryUseCase serves direct department-detail lookups.
// Exact registry resolution first; a near-miss falls through to the
// matcher so "컴공" still finds 컴퓨터공학과.
type DepartmentDirectoryUseCase struct {
	registry ports.NameRegistry
	matcher  *DepartmentMatcher
}

func NewDepartmentDirectoryUseCase(registry ports.NameRegistry, matcher *DepartmentMatcher) *DepartmentDirectoryUseCase {
	return &DepartmentDirectoryUseCase{registry: registry, matcher: matcher}
}

func (d *DepartmentDirectoryUseCase) DepartmentDetail(name string) (*domain.DepartmentRecord, error) {
	const op = "directory.DepartmentDetail"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("department name is required"))
	}

	if matches := d.registry.LookupDepartment(name); len(matches) > 0 {
		if record, ok := d.registry.DepartmentRecord(matches[0].Canonical); ok {
			return record, nil
		}
	}

	candidates := d.matcher.MatchWithin(context.Background(), name, d.registry.DepartmentNames())
	if len(candidates) > 0 && candidates[0].FusedScore >= defaultValidatorThreshold {
		if record, ok := d.registry.DepartmentRecord(candidates[0].Name); ok {
			return record, nil
		}
	}

	return nil, domain.WrapError(domain.ErrNoCandidates, op, fmt.Errorf("unknown department %q", name))
}
