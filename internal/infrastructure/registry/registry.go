package registry

import (
	"sort"
	"strings"

	"github.com/maroco/major-mentor/internal/core/domain"
)

// UniversityMapping is one row of the university alias table.
type UniversityMapping struct {
	OfficialName string   `json:"official_name"`
	Aliases      []string `json:"aliases,omitempty"`
	Slang        []string `json:"slang,omitempty"`
}

// Registry holds the canonical-name tables. Built once, read-only
// afterwards; no locking is needed for concurrent lookups.
type Registry struct {
	universities    map[string]string // normalized variant -> official name
	universityNames []string

	departments     map[string]*domain.DepartmentRecord // canonical -> record
	departmentNames []string
	deptVariants    map[string][]string // normalized variant -> canonical names
	variantsByName  map[string][]string // canonical -> display variants

	categories map[string][]string // normalized keyword -> expansion tokens
}

// New builds a registry from in-memory tables. Loaders and tests share
// this path.
func New(universities []UniversityMapping, records []domain.DepartmentRecord, categories map[string][]string) *Registry {
	r := &Registry{
		universities:   make(map[string]string),
		departments:    make(map[string]*domain.DepartmentRecord),
		deptVariants:   make(map[string][]string),
		variantsByName: make(map[string][]string),
		categories:     make(map[string][]string),
	}

	for _, u := range universities {
		official := strings.TrimSpace(u.OfficialName)
		if official == "" {
			continue
		}
		r.universityNames = append(r.universityNames, official)
		r.addUniversityVariant(official, official)
		for _, alias := range u.Aliases {
			r.addUniversityVariant(alias, official)
		}
		for _, slang := range u.Slang {
			r.addUniversityVariant(slang, official)
		}
	}
	sort.Strings(r.universityNames)

	for i := range records {
		record := records[i]
		name := strings.TrimSpace(record.Name)
		if name == "" {
			continue
		}
		r.departments[name] = &record
		r.departmentNames = append(r.departmentNames, name)

		variants := departmentVariants(record)
		r.variantsByName[name] = variants
		for _, variant := range variants {
			r.addDepartmentVariant(variant, name)
		}
	}
	sort.Strings(r.departmentNames)

	for keyword, tokens := range categories {
		key := Normalize(keyword)
		if key == "" || len(tokens) == 0 {
			continue
		}
		r.categories[key] = dedupPreserveOrder(tokens)
	}

	return r
}

func (r *Registry) addUniversityVariant(variant, official string) {
	key := Normalize(variant)
	if key == "" {
		return
	}
	if _, exists := r.universities[key]; !exists {
		r.universities[key] = official
	}
}

func (r *Registry) addDepartmentVariant(variant, canonical string) {
	key := Normalize(variant)
	if key == "" {
		return
	}
	for _, existing := range r.deptVariants[key] {
		if existing == canonical {
			return
		}
	}
	r.deptVariants[key] = append(r.deptVariants[key], canonical)
}

// departmentVariants expands one record into every spelling that should
// resolve to it: the canonical name, declared aliases, the unit-suffix
// stripped base and the base with each suffix reattached.
func departmentVariants(record domain.DepartmentRecord) []string {
	out := []string{record.Name}
	out = append(out, record.Aliases...)

	base := StripUnitSuffix(Normalize(record.Name))
	if base != "" {
		out = append(out, base, base+"과", base+"부")
		// 학과/학부 forms only make sense when the base is not already an
		// engineering stem: 컴퓨터공학 + 학과 is not a real spelling.
		if !strings.HasSuffix(base, "공학") {
			out = append(out, base+"학과", base+"학부")
		}
	}
	return dedupPreserveOrder(out)
}

// LookupUniversity resolves an alias or slang spelling to its official
// name.
func (r *Registry) LookupUniversity(text string) (*domain.CanonicalName, bool) {
	key := Normalize(text)
	if key == "" {
		return nil, false
	}
	official, ok := r.universities[key]
	if !ok {
		// Suffix-tolerant retry: "홍익대" for "홍익대학교" and back.
		official, ok = r.universities[strings.TrimSuffix(key, "학교")]
		if !ok {
			official, ok = r.universities[key+"학교"]
		}
	}
	if !ok {
		return nil, false
	}
	return &domain.CanonicalName{Canonical: official}, true
}

// LookupDepartment returns every canonical department the text maps to.
// Lookup order: exact normalized variant, then the unit-suffix stripped
// form when the exact form misses.
func (r *Registry) LookupDepartment(text string) []domain.CanonicalName {
	key := Normalize(text)
	if key == "" {
		return nil
	}
	canonicals, ok := r.deptVariants[key]
	if !ok {
		canonicals, ok = r.deptVariants[StripUnitSuffix(key)]
	}
	if !ok {
		return nil
	}

	out := make([]domain.CanonicalName, 0, len(canonicals))
	for _, canonical := range canonicals {
		out = append(out, domain.CanonicalName{
			Canonical:          canonical,
			Variants:           r.variantsByName[canonical],
			ParentUniversities: r.parentUniversities(canonical),
		})
	}
	return out
}

func (r *Registry) parentUniversities(canonical string) []string {
	record, ok := r.departments[canonical]
	if !ok {
		return nil
	}
	parents := make([]string, 0, len(record.Universities))
	for _, entry := range record.Universities {
		parents = append(parents, entry.University)
	}
	return dedupPreserveOrder(parents)
}

// AllDepartmentVariants returns the display variants registered for one
// canonical department name.
func (r *Registry) AllDepartmentVariants(canonical string) []string {
	return r.variantsByName[canonical]
}

func (r *Registry) DepartmentRecord(canonical string) (*domain.DepartmentRecord, bool) {
	record, ok := r.departments[canonical]
	if ok {
		return record, true
	}
	matches := r.LookupDepartment(canonical)
	if len(matches) == 1 {
		record, ok = r.departments[matches[0].Canonical]
		return record, ok
	}
	return nil, false
}

func (r *Registry) DepartmentNames() []string {
	return r.departmentNames
}

// ExpandCategory turns a broad theme keyword into related tokens for
// recall. Unknown keywords expand to nothing.
func (r *Registry) ExpandCategory(keyword string) []string {
	return r.categories[Normalize(keyword)]
}

func dedupPreserveOrder(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
