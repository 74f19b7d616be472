package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, universitiesFile, `[{"official_name":"홍익대학교","aliases":["홍익대"]}]`)
	writeFile(t, dir, departmentsFile, `[{"name":"컴퓨터공학과","aliases":["컴공"]}]`)
	writeFile(t, dir, categoriesFile, `{"공학":["컴퓨터공학과"]}`)

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := r.LookupUniversity("홍익대"); !ok {
		t.Fatalf("university alias not loaded")
	}
	if matches := r.LookupDepartment("컴공"); len(matches) != 1 {
		t.Fatalf("department alias not loaded: %v", matches)
	}
	if got := r.ExpandCategory("공학"); len(got) != 1 {
		t.Fatalf("categories not loaded: %v", got)
	}
}

func TestLoadMissingCategoriesIsOptional(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, universitiesFile, `[{"official_name":"홍익대학교"}]`)
	writeFile(t, dir, departmentsFile, `[{"name":"컴퓨터공학과"}]`)

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := r.ExpandCategory("공학"); got != nil {
		t.Fatalf("expected no expansion, got %v", got)
	}
}

func TestLoadEmptyUniversitiesFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, universitiesFile, `[]`)
	writeFile(t, dir, departmentsFile, `[{"name":"컴퓨터공학과"}]`)

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for empty university table")
	}
}

func TestLoadMissingDepartmentsFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, universitiesFile, `[{"official_name":"홍익대학교"}]`)

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for missing department catalog")
	}
}

func TestLoadMalformedJSONFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, universitiesFile, `{not json`)
	writeFile(t, dir, departmentsFile, `[{"name":"컴퓨터공학과"}]`)

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}
