package domain

// ResolvedFilter is the structured form of one question. Produced per
// request by the entity resolver, consumed once by the filter builder.
// Zero values mean "field not resolved".
type ResolvedFilter struct {
	University string `json:"university,omitempty"`
	College    string `json:"college,omitempty"`
	Department string `json:"department,omitempty"`
	Grade      int    `json:"grade,omitempty"`
	Semester   int    `json:"semester,omitempty"`

	// AmbiguousDepartment is set when a department token matched several
	// canonical departments under different universities and no
	// university was detected. The field stays unresolved rather than
	// guessed.
	AmbiguousDepartment string `json:"ambiguous_department,omitempty"`
}

func (f ResolvedFilter) Empty() bool {
	return f.University == "" && f.College == "" && f.Department == "" &&
		f.Grade == 0 && f.Semester == 0
}

// CourseRecord is one retrieved course document, immutable once returned
// by the retrieval gateway.
type CourseRecord struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	University  string  `json:"university,omitempty"`
	Department  string  `json:"department,omitempty"`
	Grade       int     `json:"grade,omitempty"`
	Semester    int     `json:"semester,omitempty"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// RetrievalResult reports the records and how far the relaxation cascade
// had to go to produce them. DroppedFields preserves drop order.
type RetrievalResult struct {
	Records       []CourseRecord `json:"records"`
	DroppedFields []string       `json:"dropped_fields,omitempty"`
}

// DepartmentCandidate is one ranked department-name match. Ephemeral,
// lives inside one matcher call.
type DepartmentCandidate struct {
	Name          string  `json:"name"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	FusedScore    float64 `json:"fused_score"`
}
