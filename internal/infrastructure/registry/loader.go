package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maroco/major-mentor/internal/core/domain"
)

const (
	universitiesFile = "universities.json"
	departmentsFile  = "departments.json"
	categoriesFile   = "categories.json"
)

// Load reads the mapping tables from dir. The registry cannot silently
// run empty, so any read or decode failure is returned and treated as
// fatal by the caller.
func Load(dir string) (*Registry, error) {
	var universities []UniversityMapping
	if err := readJSON(filepath.Join(dir, universitiesFile), &universities); err != nil {
		return nil, fmt.Errorf("load university mapping: %w", err)
	}
	if len(universities) == 0 {
		return nil, fmt.Errorf("load university mapping: %s is empty", universitiesFile)
	}

	var records []domain.DepartmentRecord
	if err := readJSON(filepath.Join(dir, departmentsFile), &records); err != nil {
		return nil, fmt.Errorf("load department catalog: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("load department catalog: %s is empty", departmentsFile)
	}

	// The category table is optional; matching degrades to no expansion.
	categories := make(map[string][]string)
	if err := readJSON(filepath.Join(dir, categoriesFile), &categories); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load category table: %w", err)
		}
		categories = nil
	}

	return New(universities, records, categories), nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
