package validator

import "github.com/stemsi/qbank-console/internal/model"

// Syllabus validates the board/class/subject/chapter selection of a content
// question. It returns nil when the mapping is complete.
func Syllabus(m *model.SyllabusMapping) *Node {
	if m == nil {
		return Message("Syllabus mapping is required")
	}

	fields := Errors{}
	if !m.Board.Selected() {
		fields["board"] = Message("Board is required")
	}
	if !m.Class.Selected() {
		fields["class"] = Message("Class is required")
	}
	if !m.Subject.Selected() {
		fields["subject"] = Message("Subject is required")
	}

	if len(m.Chapters) == 0 {
		fields["chapter"] = Message("At least one chapter is required")
	} else {
		for _, ch := range m.Chapters {
			if !ch.Selected() {
				fields["chapter"] = Message("Invalid chapter data")
				break
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return Fields(fields)
}
