package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

var (
	collegeRe    = regexp.MustCompile(`[가-힣]+대학`)
	universityRe = regexp.MustCompile(`[가-힣]+대학교|[가-힣]+대`)
	gradeRe      = regexp.MustCompile(`([1-4])학년`)
	semesterRe   = regexp.MustCompile(`([1-2])학기`)

	// Priority-ordered department shapes. Engineering forms first so
	// "컴퓨터공학과" captures as 컴퓨터공학 rather than 컴퓨터공.
	departmentRes = []*regexp.Regexp{
		regexp.MustCompile(`([가-힣\s]+공학)과`),
		regexp.MustCompile(`([가-힣\s]+공학)부`),
		regexp.MustCompile(`([가-힣\s]+)학과`),
		regexp.MustCompile(`([가-힣\s]+)학부`),
		regexp.MustCompile(`([가-힣\s]+공학)`),
	}
)

// Words that the department patterns can over-capture on.
var departmentStopwords = map[string]struct{}{
	"대학": {}, "학교": {}, "과목": {}, "수업": {},
}

// EntityResolver turns a free-text question into a structured filter.
// Pure over registry state; every field resolves independently.
type EntityResolver struct {
	registry ports.NameRegistry
}

func NewEntityResolver(registry ports.NameRegistry) *EntityResolver {
	return &EntityResolver{registry: registry}
}

func (r *EntityResolver) ExtractFilters(question string) domain.ResolvedFilter {
	var filter domain.ResolvedFilter

	college := findCollege(question)
	if college != "" {
		filter.College = college
	}

	universityToken := ""
	if college == "" {
		universityToken = universityRe.FindString(question)
		if universityToken != "" {
			filter.University = r.resolveUniversity(universityToken)
		}
	}

	// Strip matched institution tokens before the department scan so
	// "홍익대학교 컴퓨터공학과" cannot capture 홍익대학교 as a department.
	questionForDept := question
	if universityToken != "" {
		questionForDept = strings.Replace(questionForDept, universityToken, "", 1)
	}
	if college != "" {
		questionForDept = strings.Replace(questionForDept, college, "", 1)
	}

	if token := findDepartmentToken(questionForDept); token != "" {
		r.resolveDepartment(token, &filter)
	}

	if m := gradeRe.FindStringSubmatch(question); m != nil {
		filter.Grade, _ = strconv.Atoi(m[1])
	}
	if m := semesterRe.FindStringSubmatch(question); m != nil {
		filter.Semester, _ = strconv.Atoi(m[1])
	}

	return filter
}

func (r *EntityResolver) resolveUniversity(token string) string {
	if canonical, ok := r.registry.LookupUniversity(token); ok {
		return canonical.Canonical
	}
	// Unknown institution: keep the surface form, completed to the full
	// 대학교 spelling the index stores.
	if !strings.HasSuffix(token, "대학교") {
		return token + "학교"
	}
	return token
}

// resolveDepartment fills either Department or AmbiguousDepartment. A
// token matching several canonical departments under different
// universities, with no university resolved, is surfaced rather than
// guessed.
func (r *EntityResolver) resolveDepartment(token string, filter *domain.ResolvedFilter) {
	matches := r.registry.LookupDepartment(token)
	switch {
	case len(matches) == 0:
		filter.Department = token
	case len(matches) == 1:
		filter.Department = matches[0].Canonical
	default:
		if filter.University != "" {
			for _, match := range matches {
				if containsString(match.ParentUniversities, filter.University) {
					filter.Department = match.Canonical
					return
				}
			}
		}
		filter.AmbiguousDepartment = token
	}
}

// findCollege matches 단과대학 names ("공과대학") while rejecting 대학교
// spellings. RE2 has no lookahead, so the trailing 교 is checked by hand.
func findCollege(question string) string {
	for _, loc := range collegeRe.FindAllStringIndex(question, -1) {
		rest := question[loc[1]:]
		if strings.HasPrefix(rest, "교") {
			continue
		}
		return question[loc[0]:loc[1]]
	}
	return ""
}

func findDepartmentToken(question string) string {
	for i, re := range departmentRes {
		for _, m := range re.FindAllStringSubmatchIndex(question, -1) {
			raw := question[m[2]:m[3]]
			// The bare 공학 form must not swallow 공학과/공학부 (their
			// suffixed patterns already ran) or trailing 학 compounds.
			if i == len(departmentRes)-1 {
				rest := question[m[3]:]
				if strings.HasPrefix(rest, "과") || strings.HasPrefix(rest, "부") || strings.HasPrefix(rest, "학") {
					continue
				}
			}
			token := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
			if len([]rune(token)) < 2 {
				continue
			}
			if _, stop := departmentStopwords[token]; stop {
				continue
			}
			// Reattach the unit suffix the pattern consumed.
			switch i {
			case 0:
				token += "과"
			case 1:
				token += "부"
			case 2:
				token += "학과"
			case 3:
				token += "학부"
			}
			return token
		}
	}
	return ""
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
