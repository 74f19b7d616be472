package domain

import "time"

// ChatMode selects the orchestrator variant for one turn. The caller
// chooses the mode per request; it never changes mid-turn.
type ChatMode string

const (
	ModeReact      ChatMode = "react"
	ModeStructured ChatMode = "structured"
)

// ValidatorPolicy controls how the entity validator treats department
// names that cannot be traced back to tool evidence.
type ValidatorPolicy string

const (
	ValidatorRelaxed ValidatorPolicy = "relaxed"
	ValidatorStrict  ValidatorPolicy = "strict"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	TurnID    string        `json:"turn_id,omitempty"`
	Question  string        `json:"question"`
	Interests string        `json:"interests,omitempty"`
	Mode      ChatMode      `json:"mode,omitempty"`
	History   []ChatMessage `json:"history,omitempty"`
}

// ToolResult is one executed tool call. ExtractedEntityNames feeds the
// entity validator: the union across the turn is the validator's ground
// truth.
type ToolResult struct {
	Tool                 string   `json:"tool"`
	Status               string   `json:"status"`
	Output               string   `json:"output"`
	ExtractedEntityNames []string `json:"extracted_entity_names,omitempty"`
}

type ChatResult struct {
	TurnID         string           `json:"turn_id"`
	Answer         string           `json:"answer"`
	Mode           ChatMode         `json:"mode"`
	Steps          int              `json:"steps"`
	ToolsInvoked   []string         `json:"tools_invoked,omitempty"`
	ToolResults    []ToolResult     `json:"tool_results,omitempty"`
	Sources        []CourseRecord   `json:"sources,omitempty"`
	Corrections    []NameCorrection `json:"corrections,omitempty"`
	DegradedReason string           `json:"degraded_reason,omitempty"`
}

// NameCorrection records one validator intervention on the draft answer.
type NameCorrection struct {
	Original   string  `json:"original"`
	ReplacedBy string  `json:"replaced_by,omitempty"`
	Removed    bool    `json:"removed,omitempty"`
	FusedScore float64 `json:"fused_score,omitempty"`
}

// PlanStep is one parsed planner reply in react mode: either a tool
// request or the final answer.
type PlanStep struct {
	Type   string         `json:"type"`
	Tool   string         `json:"tool,omitempty"`
	Answer string         `json:"answer,omitempty"`
	Input  map[string]any `json:"input,omitempty"`
}

// OrchestratorLimits bounds one turn. The react loop is a bounded state
// machine, never unbounded recursion.
type OrchestratorLimits struct {
	MaxSteps           int
	TurnTimeout        time.Duration
	PlannerTimeout     time.Duration
	ToolTimeout        time.Duration
	RetrieveK          int
	SelectMin          int
	SelectMax          int
	ValidatorPolicy    ValidatorPolicy
	ValidatorThreshold float64
}

// TranscriptEntry is one persisted line of a turn's audit transcript.
// Write-only: nothing in the engine reads it back during a turn.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	TurnID    string    `json:"turn_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolName  string    `json:"tool_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
