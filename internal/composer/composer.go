// Package composer turns question drafts into the minimal wire payload the
// remote question service accepts.
package composer

import (
	"strings"

	"github.com/stemsi/qbank-console/internal/model"
)

// Compose builds the wire payload for d. It is pure and assumes d has already
// passed validation; it never returns fields that do not belong to d's role
// or question type.
func Compose(d model.QuestionDraft) model.WirePayload {
	p := model.WirePayload{
		ID:        d.ID,
		HasChild:  d.HasChild,
		Source:    d.Source,
		CreatedBy: d.CreatedBy,
	}
	if d.ParentID != "" {
		parentID := d.ParentID
		p.ParentID = &parentID
	}
	// A year left over from an earlier source selection is dropped.
	if d.Source == model.SourcePreviousYear {
		year := d.Year
		p.Year = &year
	}
	if len(d.ChildIDs) > 0 {
		p.ChildIDs = append([]string(nil), d.ChildIDs...)
	}

	if d.HasChild {
		return p
	}

	markup := d.MarkupQuestionTitle
	if markup == "" {
		markup = d.QuestionTitle
	}
	var marks float64
	if d.Marks != nil {
		marks = *d.Marks
	}
	content := &model.WireContent{
		QuestionTitle:       d.QuestionTitle,
		MarkupQuestionTitle: markup,
		Marks:               marks,
		Difficulty:          d.Difficulty,
		QuestionType:        []model.QuestionType{d.QuestionType},
	}
	if d.SyllabusMapping != nil {
		m := d.SyllabusMapping.Clone()
		content.SyllabusMapping = &m
	}

	switch details := d.Details().(type) {
	case model.OptionDetails:
		content.Options = append([]model.Option(nil), details.Options...)
	case model.RubricDetails:
		content.EvaluationRubric = append([]model.EvaluationRubric(nil), details.Rubric...)
	case model.PassageBody:
		if details.Passage != nil {
			passage := *details.Passage
			content.PassageDetails = &passage
		}
	case model.MatchingBody:
		if details.Matching != nil {
			content.MatchingDetails = &model.MatchingDetails{
				LeftColumn:     nonBlank(details.Matching.LeftColumn),
				RightColumn:    nonBlank(details.Matching.RightColumn),
				CorrectMatches: append([]model.MatchItem(nil), details.Matching.CorrectMatches...),
			}
		}
	}

	p.WireContent = content
	return p
}

// ParentPatch builds the second submission of a parent shell: the same shell
// now listing its children.
func ParentPatch(parent model.QuestionDraft, childIDs []string) model.WirePayload {
	shell := parent.Clone()
	shell.HasChild = true
	shell.ChildIDs = append([]string(nil), childIDs...)
	return Compose(shell)
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}
