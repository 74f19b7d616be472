package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

const (
	toolSearchCourses     = "search_courses"
	toolListDepartments   = "list_departments"
	toolUniversitiesByDep = "get_universities_by_department"
	toolMajorCareerInfo   = "get_major_career_info"
	toolRecommendCurric   = "recommend_curriculum"
	toolSearchHelp        = "get_search_help"
)

const searchHelpText = "검색 팁: 대학명과 학과명을 함께 적으면 더 정확합니다. " +
	"예: \"홍익대학교 컴퓨터공학과 1학년 2학기 과목\". " +
	"학년(1~4학년)과 학기(1~2학기)를 붙이면 해당 과목만 추립니다."

// Toolbox executes the planner's tool requests. Every tool returns a
// ToolResult whose ExtractedEntityNames carry the department names the
// output mentions; the validator treats their union as ground truth.
type Toolbox struct {
	resolver    *EntityResolver
	matcher     *DepartmentMatcher
	gateway     *RetrievalGateway
	registry    ports.NameRegistry
	topK        int
	matcherTopK int
}

// NewToolbox builds the tool set. topK caps course retrieval, matcherTopK
// caps department-name candidate lists.
func NewToolbox(resolver *EntityResolver, matcher *DepartmentMatcher, gateway *RetrievalGateway, registry ports.NameRegistry, topK, matcherTopK int) *Toolbox {
	if topK <= 0 {
		topK = 5
	}
	if matcherTopK <= 0 {
		matcherTopK = defaultMatchTopK
	}
	return &Toolbox{
		resolver:    resolver,
		matcher:     matcher,
		gateway:     gateway,
		registry:    registry,
		topK:        topK,
		matcherTopK: matcherTopK,
	}
}

func (t *Toolbox) Names() []string {
	return []string{
		toolSearchCourses,
		toolListDepartments,
		toolUniversitiesByDep,
		toolMajorCareerInfo,
		toolRecommendCurric,
		toolSearchHelp,
	}
}

// Execute runs one tool request. fallbackQuestion fills a missing query
// argument so a sloppy planner still gets useful output.
func (t *Toolbox) Execute(ctx context.Context, step domain.PlanStep, fallbackQuestion string) (domain.ToolResult, error) {
	switch step.Tool {
	case toolSearchCourses:
		return t.searchCourses(ctx, step, fallbackQuestion)
	case toolListDepartments:
		return t.listDepartments(ctx, step, fallbackQuestion)
	case toolUniversitiesByDep:
		return t.universitiesByDepartment(step)
	case toolMajorCareerInfo:
		return t.majorCareerInfo(step)
	case toolRecommendCurric:
		return t.recommendCurriculum(ctx, step, fallbackQuestion)
	case toolSearchHelp:
		return domain.ToolResult{
			Tool:   toolSearchHelp,
			Status: "ok",
			Output: searchHelpText,
		}, nil
	default:
		return domain.ToolResult{}, fmt.Errorf("unsupported tool: %s", step.Tool)
	}
}

func (t *Toolbox) searchCourses(ctx context.Context, step domain.PlanStep, fallbackQuestion string) (domain.ToolResult, error) {
	question := strings.TrimSpace(toolStringInput(step.Input, "question", fallbackQuestion))
	if question == "" {
		return domain.ToolResult{}, fmt.Errorf("search_courses requires question")
	}

	filter := t.resolver.ExtractFilters(question)
	if dept := strings.TrimSpace(toolStringInput(step.Input, "department", "")); dept != "" {
		filter.Department = t.canonicalOrRaw(dept)
		filter.AmbiguousDepartment = ""
	}
	if uni := strings.TrimSpace(toolStringInput(step.Input, "university", "")); uni != "" {
		filter.University = uni
	}
	if grade := toolIntInput(step.Input, "grade", 0); grade >= 1 && grade <= 4 {
		filter.Grade = grade
	}
	if semester := toolIntInput(step.Input, "semester", 0); semester == 1 || semester == 2 {
		filter.Semester = semester
	}

	if filter.AmbiguousDepartment != "" {
		return domain.ToolResult{}, domain.WrapError(domain.ErrAmbiguousEntity, "tool search_courses",
			fmt.Errorf("department %q matches several universities", filter.AmbiguousDepartment))
	}

	limit := toolIntInput(step.Input, "limit", t.topK)
	result, err := t.gateway.Retrieve(ctx, question, filter, limit)
	if err != nil {
		return domain.ToolResult{}, err
	}
	if len(result.Records) == 0 {
		return domain.ToolResult{}, domain.WrapError(domain.ErrNoCandidates, "tool search_courses",
			fmt.Errorf("no courses found for %q", question))
	}

	payload, _ := json.Marshal(map[string]any{
		"courses":        result.Records,
		"dropped_fields": result.DroppedFields,
	})
	return domain.ToolResult{
		Tool:                 toolSearchCourses,
		Status:               "ok",
		Output:               string(payload),
		ExtractedEntityNames: departmentNamesOf(result.Records),
	}, nil
}

func (t *Toolbox) listDepartments(ctx context.Context, step domain.PlanStep, fallbackQuestion string) (domain.ToolResult, error) {
	keyword := strings.TrimSpace(toolStringInput(step.Input, "keyword", fallbackQuestion))
	if keyword == "" {
		return domain.ToolResult{}, fmt.Errorf("list_departments requires keyword")
	}

	candidates := t.matcher.MatchDepartments(ctx, keyword, toolIntInput(step.Input, "limit", t.matcherTopK))
	if len(candidates) == 0 {
		return domain.ToolResult{}, domain.WrapError(domain.ErrNoCandidates, "tool list_departments",
			fmt.Errorf("no departments match %q", keyword))
	}

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	payload, _ := json.Marshal(map[string]any{
		"keyword":     keyword,
		"departments": candidates,
	})
	return domain.ToolResult{
		Tool:                 toolListDepartments,
		Status:               "ok",
		Output:               string(payload),
		ExtractedEntityNames: names,
	}, nil
}

func (t *Toolbox) universitiesByDepartment(step domain.PlanStep) (domain.ToolResult, error) {
	name := strings.TrimSpace(toolStringInput(step.Input, "department", ""))
	if name == "" {
		return domain.ToolResult{}, fmt.Errorf("get_universities_by_department requires department")
	}

	record, ok := t.lookupRecord(name)
	if !ok {
		return domain.ToolResult{}, domain.WrapError(domain.ErrNoCandidates, "tool get_universities_by_department",
			fmt.Errorf("unknown department %q", name))
	}

	payload, _ := json.Marshal(map[string]any{
		"department":   record.Name,
		"universities": record.Universities,
	})
	return domain.ToolResult{
		Tool:                 toolUniversitiesByDep,
		Status:               "ok",
		Output:               string(payload),
		ExtractedEntityNames: []string{record.Name},
	}, nil
}

func (t *Toolbox) majorCareerInfo(step domain.PlanStep) (domain.ToolResult, error) {
	name := strings.TrimSpace(toolStringInput(step.Input, "department", ""))
	if name == "" {
		return domain.ToolResult{}, fmt.Errorf("get_major_career_info requires department")
	}

	record, ok := t.lookupRecord(name)
	if !ok {
		return domain.ToolResult{}, domain.WrapError(domain.ErrNoCandidates, "tool get_major_career_info",
			fmt.Errorf("unknown department %q", name))
	}

	payload, _ := json.Marshal(map[string]any{
		"department":     record.Name,
		"jobs":           record.Jobs,
		"career_fields":  record.CareerFields,
		"qualifications": record.Qualifications,
		"main_subjects":  record.MainSubjects,
	})
	return domain.ToolResult{
		Tool:                 toolMajorCareerInfo,
		Status:               "ok",
		Output:               string(payload),
		ExtractedEntityNames: []string{record.Name},
	}, nil
}

// recommendCurriculum retrieves a department's courses for the requested
// grade and semester and groups them per term for a study-plan answer.
func (t *Toolbox) recommendCurriculum(ctx context.Context, step domain.PlanStep, fallbackQuestion string) (domain.ToolResult, error) {
	name := strings.TrimSpace(toolStringInput(step.Input, "department", ""))
	if name == "" {
		filter := t.resolver.ExtractFilters(fallbackQuestion)
		name = filter.Department
	}
	if name == "" {
		return domain.ToolResult{}, fmt.Errorf("recommend_curriculum requires department")
	}

	filter := domain.ResolvedFilter{Department: t.canonicalOrRaw(name)}
	if grade := toolIntInput(step.Input, "grade", 0); grade >= 1 && grade <= 4 {
		filter.Grade = grade
	}
	if semester := toolIntInput(step.Input, "semester", 0); semester == 1 || semester == 2 {
		filter.Semester = semester
	}

	question := strings.TrimSpace(toolStringInput(step.Input, "interests", fallbackQuestion))
	if question == "" {
		question = filter.Department + " 추천 과목"
	}

	result, err := t.gateway.Retrieve(ctx, question, filter, toolIntInput(step.Input, "limit", t.topK*2))
	if err != nil {
		return domain.ToolResult{}, err
	}
	if len(result.Records) == 0 {
		return domain.ToolResult{}, domain.WrapError(domain.ErrNoCandidates, "tool recommend_curriculum",
			fmt.Errorf("no courses found for %q", filter.Department))
	}

	byTerm := make(map[string][]domain.CourseRecord)
	for _, record := range result.Records {
		key := fmt.Sprintf("%d학년 %d학기", record.Grade, record.Semester)
		byTerm[key] = append(byTerm[key], record)
	}
	payload, _ := json.Marshal(map[string]any{
		"department":     filter.Department,
		"plan":           byTerm,
		"dropped_fields": result.DroppedFields,
	})
	return domain.ToolResult{
		Tool:                 toolRecommendCurric,
		Status:               "ok",
		Output:               string(payload),
		ExtractedEntityNames: departmentNamesOf(result.Records),
	}, nil
}

// lookupRecord resolves a surface-form department name to its registry
// record, falling back to the matcher when the exact lookup misses.
func (t *Toolbox) lookupRecord(name string) (*domain.DepartmentRecord, bool) {
	matches := t.registry.LookupDepartment(name)
	if len(matches) > 0 {
		return t.registry.DepartmentRecord(matches[0].Canonical)
	}
	candidates := t.matcher.MatchWithin(context.Background(), name, t.registry.DepartmentNames())
	if len(candidates) > 0 && candidates[0].FusedScore >= defaultValidatorThreshold {
		return t.registry.DepartmentRecord(candidates[0].Name)
	}
	return nil, false
}

func (t *Toolbox) canonicalOrRaw(name string) string {
	if matches := t.registry.LookupDepartment(name); len(matches) == 1 {
		return matches[0].Canonical
	}
	return name
}

func departmentNamesOf(records []domain.CourseRecord) []string {
	names := make([]string, 0, len(records))
	for _, record := range records {
		if record.Department != "" {
			names = append(names, record.Department)
		}
	}
	return dedupStrings(names)
}

func toolStringInput(input map[string]any, key, fallback string) string {
	if input == nil {
		return fallback
	}
	value, ok := input[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func toolIntInput(input map[string]any, key string, fallback int) int {
	if input == nil {
		return fallback
	}
	value, ok := input[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	case int64:
		return int(typed)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}
