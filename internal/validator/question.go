package validator

import (
	"strings"

	"github.com/stemsi/qbank-console/internal/model"
)

// Field keys of the question error tree. They match the draft's JSON names.
const (
	FieldID               = "id"
	FieldSource           = "source"
	FieldYear             = "year"
	FieldQuestionTitle    = "questionTitle"
	FieldMarks            = "marks"
	FieldDifficulty       = "difficulty"
	FieldQuestionType     = "questionType"
	FieldOptions          = "options"
	FieldOptionsGeneral   = "optionsGeneral"
	FieldEvaluationRubric = "evaluationRubric"
	FieldMatchingDetails  = "matchingDetails"
	FieldSyllabusMapping  = "syllabusMapping"
)

// Question validates a content question or, when HasChild is set, a parent
// shell. Every violated rule is reported; the result is empty when the draft
// is valid.
func Question(d model.QuestionDraft) Errors {
	errs := ParentShell(d)
	if d.HasChild {
		return errs
	}

	if blank(d.QuestionTitle) {
		errs[FieldQuestionTitle] = Message("Question title is required")
	}

	// Zero marks are rejected: a question must be worth something.
	if d.Marks == nil || *d.Marks <= 0 {
		errs[FieldMarks] = Message("Marks must be a positive number")
	}

	if d.Difficulty == "" {
		errs[FieldDifficulty] = Message("Difficulty is required")
	} else if !d.Difficulty.Valid() {
		errs[FieldDifficulty] = Message("Difficulty must be EASY, MEDIUM or HARD")
	}
	if d.QuestionType == "" {
		errs[FieldQuestionType] = Message("Question type is required")
	} else if !d.QuestionType.Valid() {
		errs[FieldQuestionType] = Message("Question type is not supported")
	}

	switch details := d.Details().(type) {
	case model.OptionDetails:
		validateOptions(errs, details.Options)
	case model.RubricDetails:
		validateRubric(errs, details.Rubric)
	case model.MatchingBody:
		validateMatching(errs, details.Matching)
	case model.PassageBody:
		// Passage title and text are both optional.
	}

	if node := Syllabus(d.SyllabusMapping); node != nil {
		errs[FieldSyllabusMapping] = node
	}

	return errs
}

// ParentShell checks only what a parent shell needs: its id and source.
func ParentShell(d model.QuestionDraft) Errors {
	errs := Errors{}

	if blank(d.ID) {
		errs[FieldID] = Message("Question ID is required")
	}
	if d.Source == "" {
		errs[FieldSource] = Message("Source is required")
	} else if !d.Source.Valid() {
		errs[FieldSource] = Message("Source is not supported")
	} else if d.Source == model.SourcePreviousYear && blank(d.Year) {
		errs[FieldYear] = Message("Year is required for previous year questions")
	}

	return errs
}

// validateOptions checks each option and, separately, that at least one is
// marked correct. A nil slice means the options block was never filled.
func validateOptions(errs Errors, options []model.Option) {
	if options == nil {
		return
	}

	items := make([]*Node, len(options))
	hasError := false
	anyCorrect := false
	for i, opt := range options {
		fields := Errors{}
		if blank(opt.ID) {
			fields["id"] = Message("Option ID is required")
		}
		if blank(opt.Text) {
			fields["text"] = Message("Option text is required")
		}
		if len(fields) > 0 {
			items[i] = Fields(fields)
			hasError = true
		}
		if opt.IsCorrect {
			anyCorrect = true
		}
	}

	if hasError {
		errs[FieldOptions] = List(items)
	}
	if !anyCorrect {
		errs[FieldOptionsGeneral] = Message("At least one option must be marked as correct")
	}
}

func validateRubric(errs Errors, rubric []model.EvaluationRubric) {
	if rubric == nil {
		return
	}

	items := make([]*Node, len(rubric))
	hasError := false
	for i, r := range rubric {
		fields := Errors{}
		if blank(r.Criterion) {
			fields["criterion"] = Message("Criterion is required")
		}
		if r.Weight < 1 {
			fields["weight"] = Message("Weight must be at least 1")
		}
		if len(fields) > 0 {
			items[i] = Fields(fields)
			hasError = true
		}
	}

	if hasError {
		errs[FieldEvaluationRubric] = List(items)
	}
}

func validateMatching(errs Errors, m *model.MatchingDetails) {
	if m == nil {
		errs[FieldMatchingDetails] = Message("Matching details are required")
		return
	}

	fields := Errors{}
	if node := columnErrors(m.LeftColumn, "Left column items are required", "Left column item is required"); node != nil {
		fields["leftColumn"] = node
	}
	if node := columnErrors(m.RightColumn, "Right column items are required", "Right column item is required"); node != nil {
		fields["rightColumn"] = node
	}
	if node := matchErrors(m); node != nil {
		fields["correctMatches"] = node
	}

	if len(fields) > 0 {
		errs[FieldMatchingDetails] = Fields(fields)
	}
}

func columnErrors(column []string, emptyMsg, itemMsg string) *Node {
	if len(column) == 0 {
		return Message(emptyMsg)
	}
	items := make([]*Node, len(column))
	hasError := false
	for i, item := range column {
		if blank(item) {
			items[i] = Message(itemMsg)
			hasError = true
		}
	}
	if !hasError {
		return nil
	}
	return List(items)
}

// matchErrors checks each pair is filled and refers to items that exist in
// the matching column. Blank column items never count as existing.
func matchErrors(m *model.MatchingDetails) *Node {
	if len(m.CorrectMatches) == 0 {
		return Message("Correct matches are required")
	}
	left, right := columnSet(m.LeftColumn), columnSet(m.RightColumn)

	items := make([]*Node, len(m.CorrectMatches))
	hasError := false
	for i, pair := range m.CorrectMatches {
		fields := Errors{}
		switch {
		case blank(pair.From):
			fields["from"] = Message("From value is required")
		case !left[strings.TrimSpace(pair.From)]:
			fields["from"] = Message("From value must be a left column item")
		}
		switch {
		case blank(pair.To):
			fields["to"] = Message("To value is required")
		case !right[strings.TrimSpace(pair.To)]:
			fields["to"] = Message("To value must be a right column item")
		}
		if len(fields) > 0 {
			items[i] = Fields(fields)
			hasError = true
		}
	}
	if !hasError {
		return nil
	}
	return List(items)
}

func columnSet(column []string) map[string]bool {
	set := make(map[string]bool, len(column))
	for _, item := range column {
		if !blank(item) {
			set[strings.TrimSpace(item)] = true
		}
	}
	return set
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
