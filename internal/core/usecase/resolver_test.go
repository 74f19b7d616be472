package usecase

import "testing"

func TestExtractFiltersDepartmentGradeSemester(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("컴퓨터공학과 1학년 2학기 과목 추천해줘")

	if filter.Department != "컴퓨터공학과" {
		t.Fatalf("department = %q, want 컴퓨터공학과", filter.Department)
	}
	if filter.Grade != 1 {
		t.Fatalf("grade = %d, want 1", filter.Grade)
	}
	if filter.Semester != 2 {
		t.Fatalf("semester = %d, want 2", filter.Semester)
	}
	if filter.University != "" {
		t.Fatalf("university = %q, want empty", filter.University)
	}
}

func TestExtractFiltersUniversityAndDepartment(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("홍익대학교 컴퓨터공학과 과목 알려줘")

	if filter.University != "홍익대학교" {
		t.Fatalf("university = %q, want 홍익대학교", filter.University)
	}
	if filter.Department != "컴퓨터공학과" {
		t.Fatalf("department = %q, want 컴퓨터공학과", filter.Department)
	}
}

func TestExtractFiltersUniversityAlias(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("홍익대 고분자공학과 커리큘럼")

	if filter.University != "홍익대학교" {
		t.Fatalf("university = %q, want 홍익대학교", filter.University)
	}
	if filter.Department != "고분자공학과" {
		t.Fatalf("department = %q, want 고분자공학과", filter.Department)
	}
}

func TestExtractFiltersCollege(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("공과대학 3학년 1학기 수업")

	if filter.College != "공과대학" {
		t.Fatalf("college = %q, want 공과대학", filter.College)
	}
	if filter.University != "" {
		t.Fatalf("university = %q, want empty", filter.University)
	}
	if filter.Grade != 3 || filter.Semester != 1 {
		t.Fatalf("grade/semester = %d/%d, want 3/1", filter.Grade, filter.Semester)
	}
}

func TestExtractFiltersAmbiguousDepartment(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("디자인학과 과목 알려줘")

	if filter.Department != "" {
		t.Fatalf("department = %q, want empty", filter.Department)
	}
	if filter.AmbiguousDepartment != "디자인학과" {
		t.Fatalf("ambiguous department = %q, want 디자인학과", filter.AmbiguousDepartment)
	}
}

func TestExtractFiltersAmbiguityResolvedByUniversity(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("홍익대학교 디자인학과 과목")

	if filter.Department != "시각디자인학과" {
		t.Fatalf("department = %q, want 시각디자인학과", filter.Department)
	}
	if filter.AmbiguousDepartment != "" {
		t.Fatalf("ambiguous department = %q, want empty", filter.AmbiguousDepartment)
	}
}

func TestExtractFiltersUnknownDepartmentKeptVerbatim(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("우주항공학과 과목 있어?")

	if filter.Department != "우주항공학과" {
		t.Fatalf("department = %q, want 우주항공학과", filter.Department)
	}
}

func TestExtractFiltersEmptyQuestion(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("안녕하세요")

	if !filter.Empty() {
		t.Fatalf("filter = %+v, want empty", filter)
	}
}

func TestExtractFiltersGradeOutOfRangeIgnored(t *testing.T) {
	resolver := NewEntityResolver(newTestRegistry())

	filter := resolver.ExtractFilters("컴퓨터공학과 5학년 3학기")

	if filter.Grade != 0 {
		t.Fatalf("grade = %d, want 0", filter.Grade)
	}
	if filter.Semester != 0 {
		t.Fatalf("semester = %d, want 0", filter.Semester)
	}
}
