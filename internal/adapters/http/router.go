package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
	"github.com/maroco/major-mentor/internal/core/usecase"
	"github.com/maroco/major-mentor/internal/observability/metrics"
)

const serviceName = "mentor-api"

// TranscriptReader serves the audit endpoint. Separate from the
// write-only TranscriptStore port so the chat path never depends on
// reads.
type TranscriptReader interface {
	ListEntries(ctx context.Context, turnID string) ([]domain.TranscriptEntry, error)
}

type Router struct {
	chat        ports.ChatService
	retriever   ports.CourseRetriever
	resolver    *usecase.EntityResolver
	directory   ports.DepartmentDirectory
	transcripts TranscriptReader
	metrics     *metrics.HTTPServerMetrics
	logger      *slog.Logger

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type RouterOptions struct {
	Transcripts    TranscriptReader
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	chat ports.ChatService,
	retriever ports.CourseRetriever,
	resolver *usecase.EntityResolver,
	directory ports.DepartmentDirectory,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	options RouterOptions,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		chat:           chat,
		retriever:      retriever,
		resolver:       resolver,
		directory:      directory,
		transcripts:    options.Transcripts,
		metrics:        m,
		logger:         logger,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.handleChat)
	mux.HandleFunc("/v1/retrieve", rt.handleRetrieve)
	mux.HandleFunc("/v1/departments/", rt.handleDepartmentDetail)
	mux.HandleFunc("/v1/turns/", rt.handleTranscript)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, 50*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := rt.chat.Chat(r.Context(), req)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordChatTurn(serviceName, string(result.Mode), result.DegradedReason, result.Steps)
		for _, tool := range result.ToolResults {
			rt.metrics.RecordToolCall(serviceName, tool.Tool, tool.Status)
		}
		for _, corr := range result.Corrections {
			rt.metrics.RecordNameCorrection(serviceName, corr.Removed)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Question   string `json:"question"`
		Limit      int    `json:"limit"`
		University string `json:"university"`
		Department string `json:"department"`
		Grade      int    `json:"grade"`
		Semester   int    `json:"semester"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	filter := rt.resolver.ExtractFilters(req.Question)
	if req.University != "" {
		filter.University = req.University
	}
	if req.Department != "" {
		filter.Department = req.Department
		filter.AmbiguousDepartment = ""
	}
	if req.Grade != 0 {
		filter.Grade = req.Grade
	}
	if req.Semester != 0 {
		filter.Semester = req.Semester
	}
	if filter.AmbiguousDepartment != "" {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":                "department name is ambiguous",
			"ambiguous_department": filter.AmbiguousDepartment,
		})
		return
	}

	result, err := rt.retriever.Retrieve(r.Context(), req.Question, filter, req.Limit)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(serviceName, len(result.Records), result.DroppedFields)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filter":         filter,
		"records":        result.Records,
		"dropped_fields": result.DroppedFields,
	})
}

func (rt *Router) handleDepartmentDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/v1/departments/")
	if name == "" {
		writeError(w, http.StatusBadRequest, "department name is required")
		return
	}

	record, err := rt.directory.DepartmentDetail(name)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if rt.transcripts == nil {
		writeError(w, http.StatusNotFound, "transcripts are not enabled")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/turns/")
	turnID, ok := strings.CutSuffix(rest, "/transcript")
	if !ok || turnID == "" {
		writeError(w, http.StatusBadRequest, "expected /v1/turns/{turn_id}/transcript")
		return
	}

	entries, err := rt.transcripts.ListEntries(r.Context(), turnID)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"turn_id": turnID,
		"entries": entries,
	})
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
