package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
)

// runReact drives the bounded plan-act loop: ask the planner for one
// step, execute it, feed the observation back, repeat. The loop is a
// counted state machine; after MaxSteps the turn is forced to compose a
// final answer from whatever evidence accumulated.
func (uc *ChatUseCase) runReact(ctx context.Context, turnID, question, interests string, history []domain.ChatMessage) (*domain.ChatResult, error) {
	const op = "chat.react"

	scratchpad := make([]string, 0, uc.limits.MaxSteps)
	toolResults := make([]domain.ToolResult, 0, uc.limits.MaxSteps)
	toolsInvoked := make([]string, 0, uc.limits.MaxSteps)
	toolSeen := make(map[string]struct{})
	finalAnswer := ""
	degradedReason := ""
	steps := 0

	for i := 1; i <= uc.limits.MaxSteps; i++ {
		if ctx.Err() != nil {
			degradedReason = "timeout"
			break
		}
		steps = i

		plannerCtx, plannerCancel := context.WithTimeout(ctx, uc.limits.PlannerTimeout)
		planRaw, err := uc.llm.GenerateJSONFromPrompt(plannerCtx, uc.buildReactPrompt(question, interests, history, scratchpad))
		plannerCancel()
		if err != nil {
			if isTimeoutError(err) {
				degradedReason = "timeout"
				break
			}
			return nil, domain.WrapError(domain.ErrModelUnavailable, op, err)
		}

		step, err := parsePlanStep(planRaw)
		if err != nil {
			repairCtx, repairCancel := context.WithTimeout(ctx, uc.limits.PlannerTimeout)
			repairedRaw, repairErr := uc.llm.GenerateJSONFromPrompt(repairCtx, buildPlanRepairPrompt(planRaw))
			repairCancel()
			if repairErr != nil {
				if isTimeoutError(repairErr) {
					degradedReason = "timeout"
					break
				}
				return nil, domain.WrapError(domain.ErrModelUnavailable, op, repairErr)
			}
			step, err = parsePlanStep(repairedRaw)
			if err != nil {
				degradedReason = "planner_invalid_json"
				break
			}
		}

		switch step.Type {
		case "final":
			finalAnswer = strings.TrimSpace(step.Answer)
			if finalAnswer == "" {
				degradedReason = "empty_final_answer"
			}
		case "tool":
			toolCtx, toolCancel := context.WithTimeout(ctx, uc.limits.ToolTimeout)
			result, execErr := uc.toolbox.Execute(toolCtx, step, question)
			toolCancel()
			if execErr != nil {
				if isTurnAborting(execErr) {
					return nil, execErr
				}
				if isTimeoutError(execErr) {
					degradedReason = "timeout"
				}
				// Business outcomes and argument mistakes go back to the
				// planner as observations so it can change course.
				errorPayload, _ := json.Marshal(map[string]string{"error": execErr.Error()})
				result = domain.ToolResult{
					Tool:   step.Tool,
					Status: "error",
					Output: string(errorPayload),
				}
			}
			toolResults = append(toolResults, result)
			if result.Tool != "" {
				if _, seen := toolSeen[result.Tool]; !seen {
					toolSeen[result.Tool] = struct{}{}
					toolsInvoked = append(toolsInvoked, result.Tool)
				}
			}
			scratchpad = append(scratchpad, fmt.Sprintf("%s:%s", result.Tool, result.Output))
		default:
			degradedReason = "unsupported_step_type"
		}

		if finalAnswer != "" || degradedReason != "" {
			break
		}
	}

	if finalAnswer == "" && degradedReason == "" {
		degradedReason = "step_budget_exceeded"
	}
	if finalAnswer == "" {
		finalAnswer = uc.composeForcedAnswer(ctx, question, scratchpad)
	}
	if finalAnswer == "" {
		finalAnswer = insufficientDataAnswer
	}

	answer, corrections := uc.validateDraft(ctx, finalAnswer, toolResults)

	return &domain.ChatResult{
		Answer:         answer,
		Steps:          steps,
		ToolsInvoked:   toolsInvoked,
		ToolResults:    toolResults,
		Corrections:    corrections,
		DegradedReason: degradedReason,
	}, nil
}

// composeForcedAnswer turns the scratchpad into a final answer when the
// loop ended without one. Plain generation, no more tool calls.
func (uc *ChatUseCase) composeForcedAnswer(ctx context.Context, question string, scratchpad []string) string {
	if len(scratchpad) == 0 {
		return ""
	}
	prompt := fmt.Sprintf(`아래 도구 실행 기록만 근거로 사용자의 질문에 한국어로 답하세요.
기록에 없는 학과나 과목은 언급하지 마세요. 근거가 부족하면 부족하다고 말하세요.

도구 실행 기록:
%s

질문: %s`, strings.Join(scratchpad, "\n"), question)

	answer, err := uc.llm.GenerateFromPrompt(ctx, prompt)
	if err != nil {
		uc.logger.Warn("forced_answer_failed", "error", err)
		return ""
	}
	return strings.TrimSpace(answer)
}

func (uc *ChatUseCase) buildReactPrompt(question, interests string, history []domain.ChatMessage, scratchpad []string) string {
	pad := scratchpad
	if len(pad) == 0 {
		pad = []string{"(아직 도구 출력 없음)"}
	}
	interestLine := strings.TrimSpace(interests)
	if interestLine == "" {
		interestLine = "(미입력)"
	}
	historyBlock := formatHistory(history)
	if historyBlock == "" {
		historyBlock = "(이전 대화 없음)"
	}

	return fmt.Sprintf(`당신은 학과/과목 안내 챗봇의 계획 모듈입니다.
반드시 JSON 객체 하나만 반환하세요.
스키마:
{"type":"tool","tool":"%s","input":{...}}
또는
{"type":"final","answer":"..."}

사용 가능한 도구:
- search_courses: {"question":"...","department":"...","grade":1,"semester":2,"limit":5} 과목 검색
- list_departments: {"keyword":"..."} 키워드로 학과 후보 나열
- get_universities_by_department: {"department":"..."} 학과 개설 대학 조회
- get_major_career_info: {"department":"..."} 진로/자격증/주요과목 조회
- recommend_curriculum: {"department":"...","grade":1,"semester":2,"interests":"..."} 수강 계획 추천
- get_search_help: {} 검색 도움말

규칙: 도구 출력에 나온 학과명만 답에 사용하세요. 근거가 충분해지면 final을 반환하세요.

관심사: %s

이전 대화:
%s

지금까지의 도구 출력:
%s

사용자 질문:
%s`, strings.Join(uc.toolbox.Names(), "|"), interestLine, historyBlock, strings.Join(pad, "\n"), question)
}

func buildPlanRepairPrompt(raw string) string {
	return fmt.Sprintf(`다음 텍스트를 아래 스키마의 유효한 JSON 객체 하나로 변환하세요.
{"type":"tool","tool":"...","input":{...}} 또는 {"type":"final","answer":"..."}
JSON만 반환하세요.
텍스트:
%s`, raw)
}

func parsePlanStep(raw string) (domain.PlanStep, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.PlanStep{}, fmt.Errorf("empty planner response")
	}
	var step domain.PlanStep
	if err := json.Unmarshal([]byte(raw), &step); err != nil {
		return domain.PlanStep{}, fmt.Errorf("unmarshal planner json: %w", err)
	}
	step.Type = strings.ToLower(strings.TrimSpace(step.Type))
	step.Tool = strings.ToLower(strings.TrimSpace(step.Tool))
	if step.Type != "tool" && step.Type != "final" {
		return domain.PlanStep{}, fmt.Errorf("unknown step type: %q", step.Type)
	}
	return step, nil
}

func isTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
