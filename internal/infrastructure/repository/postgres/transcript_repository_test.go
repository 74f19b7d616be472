package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/maroco/major-mentor/internal/core/domain"
)

func TestAppendEntryInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO turn_transcripts").
		WithArgs("e-1", "turn-1", "tool", `{"count":3}`, "search_courses", createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewTranscriptRepository(db)
	err = repo.AppendEntry(context.Background(), domain.TranscriptEntry{
		ID:        "e-1",
		TurnID:    "turn-1",
		Role:      "tool",
		Content:   `{"count":3}`,
		ToolName:  "search_courses",
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendEntryNullsEmptyToolName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO turn_transcripts").
		WithArgs("e-2", "turn-1", "user", "컴퓨터공학과 과목 추천해줘", nil, createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewTranscriptRepository(db)
	err = repo.AppendEntry(context.Background(), domain.TranscriptEntry{
		ID:        "e-2",
		TurnID:    "turn-1",
		Role:      "user",
		Content:   "컴퓨터공학과 과목 추천해줘",
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendEntrySetsCreatedAtWhenZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO turn_transcripts").
		WithArgs("e-3", "turn-2", "assistant", "답변", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewTranscriptRepository(db)
	err = repo.AppendEntry(context.Background(), domain.TranscriptEntry{
		ID:      "e-3",
		TurnID:  "turn-2",
		Role:    "assistant",
		Content: "답변",
	})
	if err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendEntryPropagatesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO turn_transcripts").
		WillReturnError(errors.New("connection reset"))

	repo := NewTranscriptRepository(db)
	err = repo.AppendEntry(context.Background(), domain.TranscriptEntry{
		ID:      "e-4",
		TurnID:  "turn-3",
		Role:    "user",
		Content: "질문",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestListEntriesReturnsTurnInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "turn_id", "role", "content", "tool_name", "created_at"}).
		AddRow("e-1", "turn-1", "user", "질문", nil, createdAt).
		AddRow("e-2", "turn-1", "tool", `{"count":3}`, "search_courses", createdAt.Add(time.Second)).
		AddRow("e-3", "turn-1", "assistant", "답변", nil, createdAt.Add(2*time.Second))
	mock.ExpectQuery("FROM turn_transcripts").
		WithArgs("turn-1").
		WillReturnRows(rows)

	repo := NewTranscriptRepository(db)
	entries, err := repo.ListEntries(context.Background(), "turn-1")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Role != "user" || entries[2].Role != "assistant" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Role, entries[2].Role)
	}
	if entries[1].ToolName != "search_courses" {
		t.Fatalf("expected tool name on tool entry, got %q", entries[1].ToolName)
	}
	if entries[0].ToolName != "" {
		t.Fatalf("expected empty tool name on user entry, got %q", entries[0].ToolName)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListEntriesPropagatesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM turn_transcripts").
		WillReturnError(errors.New("relation does not exist"))

	repo := NewTranscriptRepository(db)
	if _, err := repo.ListEntries(context.Background(), "turn-1"); err == nil {
		t.Fatal("expected error")
	}
}
