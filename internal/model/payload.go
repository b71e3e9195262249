package model

// WirePayload is the body sent to the remote service. It only carries the
// fields relevant to the question's role and type.
type WirePayload struct {
	ID        string   `json:"id"`
	ParentID  *string  `json:"parentId"`
	HasChild  bool     `json:"hasChild"`
	Source    Source   `json:"source"`
	Year      *string  `json:"year,omitempty"`
	CreatedBy Creator  `json:"createdBy"`
	ChildIDs  []string `json:"childIds,omitempty"`

	// Content is nil for parent shells; its fields are inlined when set.
	*WireContent
}

// WireContent is the content part of a non-parent question.
type WireContent struct {
	QuestionTitle       string             `json:"questionTitle"`
	MarkupQuestionTitle string             `json:"markupQuestionTitle"`
	Marks               float64            `json:"marks"`
	Difficulty          Difficulty         `json:"difficulty"`
	QuestionType        []QuestionType     `json:"questionType"`
	SyllabusMapping     *SyllabusMapping   `json:"syllabusMapping"`
	Options             []Option           `json:"options,omitempty"`
	EvaluationRubric    []EvaluationRubric `json:"evaluationRubric,omitempty"`
	PassageDetails      *PassageDetails    `json:"passageDetails,omitempty"`
	MatchingDetails     *MatchingDetails   `json:"matchingDetails,omitempty"`
}

// SubmitResult is what the remote service answers to a successful submission.
type SubmitResult struct {
	Message string `json:"msg,omitempty"`
	ID      string `json:"id,omitempty"`
}
