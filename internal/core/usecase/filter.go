package usecase

import (
	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

// Payload keys under which course metadata is indexed.
const (
	fieldUniversity = "university"
	fieldCollege    = "college"
	fieldDepartment = "department"
	fieldGrade      = "grade"
	fieldSemester   = "semester"
)

// BuildIndexFilter maps a resolved filter onto the index's native filter
// expression: one equality predicate per present field, absent fields
// omitted. The department predicate matches any registered variant so
// suffix differences ("컴퓨터공학" / "컴퓨터공학부" / "컴퓨터공학과")
// cannot hide records.
func BuildIndexFilter(filter domain.ResolvedFilter, variants []string) ports.IndexFilter {
	must := make([]map[string]any, 0, 5)

	if filter.University != "" {
		must = append(must, matchValue(fieldUniversity, filter.University))
	}
	if filter.College != "" {
		must = append(must, matchValue(fieldCollege, filter.College))
	}
	if filter.Department != "" {
		if len(variants) > 1 {
			must = append(must, map[string]any{
				"key":   fieldDepartment,
				"match": map[string]any{"any": variants},
			})
		} else {
			must = append(must, matchValue(fieldDepartment, filter.Department))
		}
	}
	if filter.Grade != 0 {
		must = append(must, matchValue(fieldGrade, filter.Grade))
	}
	if filter.Semester != 0 {
		must = append(must, matchValue(fieldSemester, filter.Semester))
	}

	if len(must) == 0 {
		return nil
	}
	return ports.IndexFilter{"must": must}
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}
