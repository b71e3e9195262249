package model

// QuestionType selects which detail block a question carries.
type QuestionType string

const (
	QuestionTypeSingleCorrectMCQ   QuestionType = "SINGLE_CORRECT_MCQ"
	QuestionTypeMultipleCorrectMCQ QuestionType = "MULTIPLE_CORRECT_MCQ"
	QuestionTypeSubjective         QuestionType = "SUBJECTIVE"
	QuestionTypePassage            QuestionType = "PASSAGE"
	QuestionTypeMatching           QuestionType = "MATCHING"
)

// IsMCQ reports whether the type is answered by picking options.
func (t QuestionType) IsMCQ() bool {
	return t == QuestionTypeSingleCorrectMCQ || t == QuestionTypeMultipleCorrectMCQ
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleCorrectMCQ, QuestionTypeMultipleCorrectMCQ,
		QuestionTypeSubjective, QuestionTypePassage, QuestionTypeMatching:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type Source string

const (
	SourcePreviousYear  Source = "PREVIOUS_YEAR"
	SourceAIGenerated   Source = "AI_GENERATED"
	SourceUserGenerated Source = "USER_GENERATED"
)

func (s Source) Valid() bool {
	return s == SourcePreviousYear || s == SourceAIGenerated || s == SourceUserGenerated
}

// Creator identifies the staff member authoring a question.
type Creator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Option is one answer choice of an MCQ question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// EvaluationRubric is one grading criterion of a subjective question.
type EvaluationRubric struct {
	Criterion    string   `json:"criterion"`
	Weight       int      `json:"weight"`
	KeywordHints []string `json:"keywordHints,omitempty"`
}

type PassageDetails struct {
	PassageTitle string `json:"passageTitle,omitempty"`
	PassageText  string `json:"passageText,omitempty"`
}

// MatchItem pairs a left-column value with a right-column value.
type MatchItem struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type MatchingDetails struct {
	LeftColumn     []string    `json:"leftColumn"`
	RightColumn    []string    `json:"rightColumn"`
	CorrectMatches []MatchItem `json:"correctMatches"`
}

// QuestionDraft is a question being authored. Every field may be absent:
// nil pointers and slices, empty strings and empty enums all mean "not set".
// An empty non-nil Options or EvaluationRubric is a block that was opened and
// emptied, which is not the same as absent; both are encoded without
// omitempty so stored sessions keep the difference.
//
// A draft keeps the detail blocks of every type it has been switched through,
// as a form does. Details picks the one that matches QuestionType.
type QuestionDraft struct {
	ID                  string             `json:"id"`
	ParentID            string             `json:"parentId,omitempty"`
	HasChild            bool               `json:"hasChild"`
	QuestionTitle       string             `json:"questionTitle"`
	MarkupQuestionTitle string             `json:"markupQuestionTitle,omitempty"`
	Marks               *float64           `json:"marks,omitempty"`
	Difficulty          Difficulty         `json:"difficulty,omitempty"`
	QuestionType        QuestionType       `json:"questionType,omitempty"`
	Options             []Option           `json:"options"`
	EvaluationRubric    []EvaluationRubric `json:"evaluationRubric"`
	PassageDetails      *PassageDetails    `json:"passageDetails,omitempty"`
	MatchingDetails     *MatchingDetails   `json:"matchingDetails,omitempty"`
	Year                string             `json:"year,omitempty"`
	Source              Source             `json:"source,omitempty"`
	CreatedBy           Creator            `json:"createdBy"`
	ChildIDs            []string           `json:"childIds,omitempty"`
	SyllabusMapping     *SyllabusMapping   `json:"syllabusMapping,omitempty"`
}

// Details is the type-specific part of a question. Exactly one variant
// exists per QuestionType; the set is closed.
type Details interface {
	Type() QuestionType
}

// OptionDetails backs both MCQ types.
type OptionDetails struct {
	QuestionType QuestionType
	Options      []Option
}

func (d OptionDetails) Type() QuestionType { return d.QuestionType }

type RubricDetails struct {
	Rubric []EvaluationRubric
}

func (RubricDetails) Type() QuestionType { return QuestionTypeSubjective }

type PassageBody struct {
	Passage *PassageDetails
}

func (PassageBody) Type() QuestionType { return QuestionTypePassage }

type MatchingBody struct {
	Matching *MatchingDetails
}

func (MatchingBody) Type() QuestionType { return QuestionTypeMatching }

// Details returns the detail variant selected by QuestionType, or nil when
// the type is unset or unknown. Blocks left over from other types are never
// returned.
func (d QuestionDraft) Details() Details {
	switch d.QuestionType {
	case QuestionTypeSingleCorrectMCQ, QuestionTypeMultipleCorrectMCQ:
		return OptionDetails{QuestionType: d.QuestionType, Options: d.Options}
	case QuestionTypeSubjective:
		return RubricDetails{Rubric: d.EvaluationRubric}
	case QuestionTypePassage:
		return PassageBody{Passage: d.PassageDetails}
	case QuestionTypeMatching:
		return MatchingBody{Matching: d.MatchingDetails}
	default:
		return nil
	}
}

// Float64 returns a pointer to v, for building drafts with marks.
func Float64(v float64) *float64 { return &v }

// NewDraft returns an empty draft with the form defaults.
func NewDraft(creator Creator) QuestionDraft {
	return QuestionDraft{
		Difficulty:       DifficultyMedium,
		QuestionType:     QuestionTypeSingleCorrectMCQ,
		Options:          []Option{{ID: "1"}},
		EvaluationRubric: []EvaluationRubric{{Weight: 1, KeywordHints: []string{}}},
		PassageDetails:   &PassageDetails{},
		MatchingDetails: &MatchingDetails{
			LeftColumn:     []string{""},
			RightColumn:    []string{""},
			CorrectMatches: []MatchItem{{}},
		},
		Source:          SourceUserGenerated,
		CreatedBy:       creator,
		SyllabusMapping: NewSyllabusMapping(),
	}
}

// NewChildDraft returns a fresh child template bound to parent. The child
// inherits the parent's source, year and creator.
func NewChildDraft(parent QuestionDraft) QuestionDraft {
	d := NewDraft(parent.CreatedBy)
	d.ParentID = parent.ID
	d.Source = parent.Source
	d.Year = parent.Year
	return d
}

// Clone returns a deep copy so snapshots never alias form state. Empty
// slices stay empty rather than becoming nil.
func (d QuestionDraft) Clone() QuestionDraft {
	out := d
	if d.Marks != nil {
		out.Marks = Float64(*d.Marks)
	}
	out.Options = cloneSlice(d.Options)
	if d.EvaluationRubric != nil {
		out.EvaluationRubric = make([]EvaluationRubric, len(d.EvaluationRubric))
		for i, r := range d.EvaluationRubric {
			r.KeywordHints = cloneSlice(r.KeywordHints)
			out.EvaluationRubric[i] = r
		}
	}
	if d.PassageDetails != nil {
		p := *d.PassageDetails
		out.PassageDetails = &p
	}
	if d.MatchingDetails != nil {
		out.MatchingDetails = &MatchingDetails{
			LeftColumn:     cloneSlice(d.MatchingDetails.LeftColumn),
			RightColumn:    cloneSlice(d.MatchingDetails.RightColumn),
			CorrectMatches: cloneSlice(d.MatchingDetails.CorrectMatches),
		}
	}
	out.ChildIDs = cloneSlice(d.ChildIDs)
	if d.SyllabusMapping != nil {
		m := d.SyllabusMapping.Clone()
		out.SyllabusMapping = &m
	}
	return out
}

// cloneSlice copies s, keeping nil as nil and empty as empty.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// QuestionSummary is a row of the remote question list, used to pick a parent.
type QuestionSummary struct {
	ID            string `json:"id"`
	QuestionTitle string `json:"questionTitle,omitempty"`
	HasChild      bool   `json:"hasChild,omitempty"`
}

// QuestionFilter narrows ListQuestions. Zero values mean "no filter".
type QuestionFilter struct {
	HasChild *bool
	Search   string
}
