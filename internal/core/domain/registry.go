package domain

// CanonicalName is the single authoritative spelling of a university or
// department, together with every variant that resolves to it. Built once
// at registry load time and immutable for the process lifetime.
type CanonicalName struct {
	Canonical          string   `json:"canonical"`
	Variants           []string `json:"variants,omitempty"`
	ParentUniversities []string `json:"parent_universities,omitempty"`
}

// UniversityEntry is one (university, department) offering row from the
// department catalog.
type UniversityEntry struct {
	University string `json:"university"`
	College    string `json:"college,omitempty"`
	Department string `json:"department"`
	Campus     string `json:"campus,omitempty"`
	URL        string `json:"url,omitempty"`
}

// MainSubject is one representative course of a department.
type MainSubject struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// DepartmentRecord carries the catalog detail behind one canonical
// department name: where it is offered and what graduates do.
type DepartmentRecord struct {
	Name           string            `json:"name"`
	Aliases        []string          `json:"aliases,omitempty"`
	Universities   []UniversityEntry `json:"universities,omitempty"`
	Jobs           []string          `json:"jobs,omitempty"`
	CareerFields   []string          `json:"career_fields,omitempty"`
	Qualifications []string          `json:"qualifications,omitempty"`
	MainSubjects   []MainSubject     `json:"main_subjects,omitempty"`
}
