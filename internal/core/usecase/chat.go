package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
)

const (
	defaultMaxSteps       = 10
	defaultTurnTimeout    = 90 * time.Second
	defaultPlannerTimeout = 20 * time.Second
	defaultToolTimeout    = 30 * time.Second
	defaultRetrieveK      = 5
	defaultSelectMin      = 2
	defaultSelectMax      = 3
)

const insufficientDataAnswer = "지금 가진 자료로는 답을 드리기 어렵습니다. 학과명이나 대학명을 조금 더 구체적으로 적어 주세요."

// ChatUseCase runs one question-to-answer turn. The mode on the request
// picks the runner: react is a bounded plan-act loop, structured is a
// fixed retrieve-select-answer pipeline.
type ChatUseCase struct {
	llm         ports.LanguageModel
	toolbox     *Toolbox
	resolver    *EntityResolver
	gateway     *RetrievalGateway
	validator   *EntityValidator
	transcripts ports.TranscriptStore
	limits      domain.OrchestratorLimits
	logger      *slog.Logger
}

func NewChatUseCase(
	llm ports.LanguageModel,
	toolbox *Toolbox,
	resolver *EntityResolver,
	gateway *RetrievalGateway,
	validator *EntityValidator,
	transcripts ports.TranscriptStore,
	limits domain.OrchestratorLimits,
	logger *slog.Logger,
) *ChatUseCase {
	if limits.MaxSteps <= 0 {
		limits.MaxSteps = defaultMaxSteps
	}
	if limits.TurnTimeout <= 0 {
		limits.TurnTimeout = defaultTurnTimeout
	}
	if limits.PlannerTimeout <= 0 {
		limits.PlannerTimeout = defaultPlannerTimeout
	}
	if limits.ToolTimeout <= 0 {
		limits.ToolTimeout = defaultToolTimeout
	}
	if limits.RetrieveK <= 0 {
		limits.RetrieveK = defaultRetrieveK
	}
	if limits.SelectMin <= 0 {
		limits.SelectMin = defaultSelectMin
	}
	if limits.SelectMax < limits.SelectMin {
		limits.SelectMax = defaultSelectMax
	}

	return &ChatUseCase{
		llm:         llm,
		toolbox:     toolbox,
		resolver:    resolver,
		gateway:     gateway,
		validator:   validator,
		transcripts: transcripts,
		limits:      limits,
		logger:      logger,
	}
}

func (uc *ChatUseCase) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("question is required"))
	}

	turnID := strings.TrimSpace(req.TurnID)
	if turnID == "" {
		turnID = uuid.NewString()
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ModeReact
	}

	turnCtx, cancel := context.WithTimeout(ctx, uc.limits.TurnTimeout)
	defer cancel()

	uc.appendTranscript(ctx, turnID, "user", question, "")

	var (
		result *domain.ChatResult
		err    error
	)
	switch mode {
	case domain.ModeStructured:
		result, err = uc.runStructured(turnCtx, turnID, question, req.Interests, req.History)
	case domain.ModeReact:
		result, err = uc.runReact(turnCtx, turnID, question, req.Interests, req.History)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("unsupported mode: %s", mode))
	}
	if err != nil {
		return nil, err
	}

	result.TurnID = turnID
	result.Mode = mode

	for _, tr := range result.ToolResults {
		uc.appendTranscript(ctx, turnID, "tool", tr.Output, tr.Tool)
	}
	uc.appendTranscript(ctx, turnID, "assistant", result.Answer, "")

	return result, nil
}

// validateDraft runs the entity validator over the draft answer against
// everything the turn's tools observed.
func (uc *ChatUseCase) validateDraft(ctx context.Context, draft string, toolResults []domain.ToolResult) (string, []domain.NameCorrection) {
	observed := make([]string, 0, len(toolResults))
	for _, tr := range toolResults {
		observed = append(observed, tr.ExtractedEntityNames...)
	}
	return uc.validator.ValidateAnswer(ctx, draft, dedupStrings(observed))
}

// appendTranscript is best effort: losing an audit line never fails the
// turn the user is waiting on.
func (uc *ChatUseCase) appendTranscript(ctx context.Context, turnID, role, content, toolName string) {
	if uc.transcripts == nil || content == "" {
		return
	}
	entry := domain.TranscriptEntry{
		ID:        uuid.NewString(),
		TurnID:    turnID,
		Role:      role,
		Content:   content,
		ToolName:  toolName,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.transcripts.AppendEntry(ctx, entry); err != nil {
		uc.logger.Warn("transcript_append_failed",
			slog.String("turn_id", turnID),
			slog.String("role", role),
			slog.Any("error", err),
		)
	}
}

const maxHistoryMessages = 6

// formatHistory renders the tail of the conversation for a prompt, one
// line per message. Empty when the turn has no history.
func formatHistory(history []domain.ChatMessage) string {
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "사용자"
		if msg.Role == "assistant" {
			role = "챗봇"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, content))
	}
	return strings.Join(lines, "\n")
}

// isTurnAborting reports whether the error class must end the whole turn.
// Business outcomes and local parse failures never qualify.
func isTurnAborting(err error) bool {
	return domain.IsKind(err, domain.ErrIndexUnavailable) || domain.IsKind(err, domain.ErrModelUnavailable)
}
