package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
)

// runStructured executes the fixed three-stage pipeline: retrieve a
// candidate pool, have the model select the few records worth citing,
// then answer from the selected records only. Selection that cannot be
// parsed degrades to the top-ranked records instead of failing the turn.
func (uc *ChatUseCase) runStructured(ctx context.Context, turnID, question, interests string, history []domain.ChatMessage) (*domain.ChatResult, error) {
	const op = "chat.structured"

	filter := uc.resolver.ExtractFilters(question)

	if filter.AmbiguousDepartment != "" {
		return uc.ambiguityAnswer(filter.AmbiguousDepartment), nil
	}

	result, err := uc.gateway.Retrieve(ctx, question, filter, uc.limits.RetrieveK)
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return &domain.ChatResult{
			Answer:         insufficientDataAnswer,
			Steps:          1,
			DegradedReason: "no_candidates",
		}, nil
	}

	selected, degradedReason := uc.selectRecords(ctx, question, result.Records)

	answer, err := uc.answerFromRecords(ctx, question, interests, history, selected, result.DroppedFields)
	if err != nil {
		return nil, domain.WrapError(domain.ErrModelUnavailable, op, err)
	}

	toolResults := []domain.ToolResult{{
		Tool:                 toolSearchCourses,
		Status:               "ok",
		Output:               recordsAsJSON(selected),
		ExtractedEntityNames: departmentNamesOf(selected),
	}}
	validated, corrections := uc.validateDraft(ctx, answer, toolResults)

	return &domain.ChatResult{
		Answer:         validated,
		Steps:          3,
		ToolsInvoked:   []string{toolSearchCourses},
		ToolResults:    toolResults,
		Sources:        selected,
		Corrections:    corrections,
		DegradedReason: degradedReason,
	}, nil
}

// selectRecords asks the model which retrieved records to keep. Any
// parse or validation failure after one repair attempt falls back to the
// top-ranked records; the pipeline never aborts here.
func (uc *ChatUseCase) selectRecords(ctx context.Context, question string, records []domain.CourseRecord) ([]domain.CourseRecord, string) {
	selectCtx, cancel := context.WithTimeout(ctx, uc.limits.PlannerTimeout)
	defer cancel()

	raw, err := uc.llm.GenerateJSONFromPrompt(selectCtx, uc.buildSelectPrompt(question, records))
	if err != nil {
		return topRecords(records, uc.limits.SelectMax), "unparsable_selection"
	}

	ids, err := parseSelection(raw, uc.limits.SelectMin, uc.limits.SelectMax)
	if err != nil {
		repairCtx, repairCancel := context.WithTimeout(ctx, uc.limits.PlannerTimeout)
		repairedRaw, repairErr := uc.llm.GenerateJSONFromPrompt(repairCtx, buildSelectionRepairPrompt(raw))
		repairCancel()
		if repairErr == nil {
			ids, err = parseSelection(repairedRaw, uc.limits.SelectMin, uc.limits.SelectMax)
		}
		if repairErr != nil || err != nil {
			uc.logger.Warn("selection_unparsable", "turn_error",
				domain.WrapError(domain.ErrUnparsableSelection, "chat.select", err))
			return topRecords(records, uc.limits.SelectMax), "unparsable_selection"
		}
	}

	byID := make(map[string]domain.CourseRecord, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}
	selected := make([]domain.CourseRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := byID[id]; ok {
			selected = append(selected, record)
		}
	}
	if len(selected) < uc.limits.SelectMin {
		return topRecords(records, uc.limits.SelectMax), "unparsable_selection"
	}
	return selected, ""
}

func (uc *ChatUseCase) answerFromRecords(ctx context.Context, question, interests string, history []domain.ChatMessage, records []domain.CourseRecord, droppedFields []string) (string, error) {
	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, fmt.Sprintf("- [%s] %s (%s %s %d학년 %d학기): %s",
			record.ID, record.Title, record.University, record.Department,
			record.Grade, record.Semester, record.Description))
	}

	relaxNote := ""
	if len(droppedFields) > 0 {
		relaxNote = fmt.Sprintf("\n참고: 조건(%s)을 완화해서 찾은 결과입니다. 답변에 이를 언급하세요.",
			strings.Join(droppedFields, ", "))
	}
	interestLine := ""
	if strings.TrimSpace(interests) != "" {
		interestLine = "\n사용자 관심사: " + strings.TrimSpace(interests)
	}
	historyBlock := ""
	if rendered := formatHistory(history); rendered != "" {
		historyBlock = "\n이전 대화:\n" + rendered + "\n"
	}

	prompt := fmt.Sprintf(`아래 과목 자료만 근거로 질문에 한국어로 답하세요.
자료에 없는 과목이나 학과는 언급하지 마세요.%s%s
%s
자료:
%s

질문: %s`, relaxNote, interestLine, historyBlock, strings.Join(lines, "\n"), question)

	answerCtx, cancel := context.WithTimeout(ctx, uc.limits.PlannerTimeout)
	defer cancel()
	answer, err := uc.llm.GenerateFromPrompt(answerCtx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// ambiguityAnswer surfaces a department name that matched several
// universities. Honest question back to the user, not a guess.
func (uc *ChatUseCase) ambiguityAnswer(token string) *domain.ChatResult {
	matches := uc.toolbox.registry.LookupDepartment(token)
	universities := make([]string, 0, 4)
	for _, match := range matches {
		universities = append(universities, match.ParentUniversities...)
	}
	universities = dedupStrings(universities)

	answer := fmt.Sprintf("%s는 여러 대학에 개설되어 있습니다", token)
	if len(universities) > 0 {
		answer = fmt.Sprintf("%s (%s)", answer, strings.Join(universities, ", "))
	}
	answer += ". 어느 대학 기준인지 알려 주시면 정확히 찾아 드릴게요."

	return &domain.ChatResult{
		Answer:         answer,
		Steps:          1,
		DegradedReason: "ambiguous_entity",
	}
}

func (uc *ChatUseCase) buildSelectPrompt(question string, records []domain.CourseRecord) string {
	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, fmt.Sprintf("- id=%s %s (%s %s %d학년 %d학기)",
			record.ID, record.Title, record.University, record.Department,
			record.Grade, record.Semester))
	}
	return fmt.Sprintf(`질문에 답하는 데 꼭 필요한 과목 %d~%d개를 고르세요.
반드시 JSON 객체 하나만 반환하세요: {"selected_ids":["...","..."]}

후보:
%s

질문: %s`, uc.limits.SelectMin, uc.limits.SelectMax, strings.Join(lines, "\n"), question)
}

func buildSelectionRepairPrompt(raw string) string {
	return fmt.Sprintf(`다음 텍스트를 {"selected_ids":["..."]} 형태의 유효한 JSON 객체 하나로 변환하세요.
JSON만 반환하세요.
텍스트:
%s`, raw)
}

func parseSelection(raw string, minCount, maxCount int) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty selection response")
	}
	var payload struct {
		SelectedIDs []string `json:"selected_ids"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal selection json: %w", err)
	}
	ids := make([]string, 0, len(payload.SelectedIDs))
	for _, id := range payload.SelectedIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	ids = dedupStrings(ids)
	if len(ids) < minCount {
		return nil, fmt.Errorf("selection has %d ids, need at least %d", len(ids), minCount)
	}
	if len(ids) > maxCount {
		ids = ids[:maxCount]
	}
	return ids, nil
}

func topRecords(records []domain.CourseRecord, n int) []domain.CourseRecord {
	if len(records) <= n {
		return records
	}
	return records[:n]
}

func recordsAsJSON(records []domain.CourseRecord) string {
	payload, _ := json.Marshal(records)
	return string(payload)
}
