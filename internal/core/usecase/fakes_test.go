package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/core/ports"
	regstore "github.com/maroco/major-mentor/internal/infrastructure/registry"
)

func newTestRegistry() *regstore.Registry {
	universities := []regstore.UniversityMapping{
		{OfficialName: "홍익대학교", Aliases: []string{"홍익대"}, Slang: []string{"홍대"}},
		{OfficialName: "국민대학교", Aliases: []string{"국민대"}},
	}
	records := []domain.DepartmentRecord{
		{
			Name:    "컴퓨터공학과",
			Aliases: []string{"컴공"},
			Universities: []domain.UniversityEntry{
				{University: "홍익대학교", College: "공과대학", Department: "컴퓨터공학과"},
			},
			Jobs:           []string{"소프트웨어 개발자", "데이터 엔지니어"},
			CareerFields:   []string{"IT 서비스"},
			Qualifications: []string{"정보처리기사"},
			MainSubjects: []domain.MainSubject{
				{Name: "자료구조", Summary: "기초 자료구조와 알고리즘"},
			},
		},
		{
			Name: "고분자공학과",
			Universities: []domain.UniversityEntry{
				{University: "홍익대학교", College: "공과대학", Department: "고분자공학과"},
			},
			Jobs:           []string{"고분자소재연구원"},
			Qualifications: []string{"화학분석기사"},
		},
		{
			Name:    "시각디자인학과",
			Aliases: []string{"디자인학과"},
			Universities: []domain.UniversityEntry{
				{University: "홍익대학교", College: "미술대학", Department: "시각디자인학과"},
			},
		},
		{
			Name:    "산업디자인학과",
			Aliases: []string{"디자인학과"},
			Universities: []domain.UniversityEntry{
				{University: "국민대학교", College: "조형대학", Department: "산업디자인학과"},
			},
		},
	}
	categories := map[string][]string{
		"공학": {"컴퓨터공학과", "고분자공학과"},
	}
	return regstore.New(universities, records, categories)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeEmbeddings struct {
	scores map[string]float64
	ready  bool
}

func (f *fakeEmbeddings) Score(_ []float32, canonical string) (float64, bool) {
	score, ok := f.scores[canonical]
	return score, ok
}

func (f *fakeEmbeddings) Ready() bool { return f.ready }

func (f *fakeEmbeddings) Rebuild(context.Context) error { return nil }

// fakeIndex scripts Search responses per call; once the script runs out
// it keeps returning always.
type fakeIndex struct {
	responses [][]domain.CourseRecord
	always    []domain.CourseRecord
	searchErr error
	errOnCall int
	calls     int
	filters   []ports.IndexFilter
	names     []string
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, _ int, filter ports.IndexFilter) ([]domain.CourseRecord, error) {
	f.calls++
	f.filters = append(f.filters, filter)
	if f.searchErr != nil && (f.errOnCall == 0 || f.errOnCall == f.calls) {
		return nil, f.searchErr
	}
	if len(f.responses) > 0 {
		out := f.responses[0]
		f.responses = f.responses[1:]
		return out, nil
	}
	return f.always, nil
}

func (f *fakeIndex) ListDepartmentNames(context.Context) ([]string, error) {
	return f.names, nil
}

type fakeLLM struct {
	jsonResponses []string
	jsonErr       error
	defaultJSON   string
	textResponse  string
	textErr       error
	jsonCalls     int
	textCalls     int
	jsonPrompts   []string
	textPrompts   []string
}

func (f *fakeLLM) GenerateJSONFromPrompt(_ context.Context, prompt string) (string, error) {
	f.jsonCalls++
	f.jsonPrompts = append(f.jsonPrompts, prompt)
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	if len(f.jsonResponses) == 0 {
		if f.defaultJSON != "" {
			return f.defaultJSON, nil
		}
		return `{"type":"final","answer":"기본 답변"}`, nil
	}
	out := f.jsonResponses[0]
	f.jsonResponses = f.jsonResponses[1:]
	return out, nil
}

func (f *fakeLLM) GenerateFromPrompt(_ context.Context, prompt string) (string, error) {
	f.textCalls++
	f.textPrompts = append(f.textPrompts, prompt)
	if f.textErr != nil {
		return "", f.textErr
	}
	if f.textResponse == "" {
		return "생성 답변", nil
	}
	return f.textResponse, nil
}

type fakeTranscripts struct {
	entries []domain.TranscriptEntry
	err     error
}

func (f *fakeTranscripts) AppendEntry(_ context.Context, entry domain.TranscriptEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func courseFixture(id, title, department string, grade, semester int) domain.CourseRecord {
	return domain.CourseRecord{
		ID:         id,
		Title:      title,
		University: "홍익대학교",
		Department: department,
		Grade:      grade,
		Semester:   semester,
		Score:      0.9,
	}
}
