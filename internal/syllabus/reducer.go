// Package syllabus holds the cascading-selection reducer for a question's
// syllabus mapping. Every operation is a pure (mapping, event) -> mapping
// transformation.
package syllabus

import (
	"fmt"

	"github.com/stemsi/qbank-console/internal/model"
)

// Action is what an Event does at its level.
type Action string

const (
	ActionSelect Action = "select"
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Event is one user interaction with the syllabus picker. Index addresses a
// chapter or topic row; ID is the chosen entity for ActionSelect.
type Event struct {
	Action Action              `json:"action"`
	Level  model.TaxonomyLevel `json:"level"`
	Index  int                 `json:"index"`
	ID     string              `json:"id"`
}

// FromRequest converts a bound selection request into an Event.
func FromRequest(req model.SelectionEvent) Event {
	return Event{
		Action: Action(req.Action),
		Level:  model.TaxonomyLevel(req.Level),
		Index:  req.Index,
		ID:     req.ID,
	}
}

func (e Event) String() string {
	switch e.Action {
	case ActionSelect:
		return fmt.Sprintf("select %s[%d]=%q", e.Level, e.Index, e.ID)
	case ActionRemove:
		return fmt.Sprintf("remove %s[%d]", e.Level, e.Index)
	default:
		return fmt.Sprintf("%s %s", e.Action, e.Level)
	}
}

func SelectBoard(id string) Event   { return Event{Action: ActionSelect, Level: model.LevelBoard, ID: id} }
func SelectClass(id string) Event   { return Event{Action: ActionSelect, Level: model.LevelClass, ID: id} }
func SelectSubject(id string) Event { return Event{Action: ActionSelect, Level: model.LevelSubject, ID: id} }

func SelectChapter(index int, id string) Event {
	return Event{Action: ActionSelect, Level: model.LevelChapter, Index: index, ID: id}
}

func SelectTopic(index int, id string) Event {
	return Event{Action: ActionSelect, Level: model.LevelTopic, Index: index, ID: id}
}

func AddChapter() Event { return Event{Action: ActionAdd, Level: model.LevelChapter} }
func AddTopic() Event   { return Event{Action: ActionAdd, Level: model.LevelTopic} }

func RemoveChapter(index int) Event {
	return Event{Action: ActionRemove, Level: model.LevelChapter, Index: index}
}

func RemoveTopic(index int) Event {
	return Event{Action: ActionRemove, Level: model.LevelTopic, Index: index}
}

// Apply returns the mapping after ev. candidates is the list currently loaded
// for ev.Level and is only consulted by select events. When the event cannot
// apply (unknown id, bad index, missing ancestor) the input is returned
// unchanged with changed=false.
func Apply(m model.SyllabusMapping, ev Event, candidates []model.TaxonomyEntity) (model.SyllabusMapping, bool) {
	switch ev.Action {
	case ActionSelect:
		entity, ok := resolve(candidates, ev.ID)
		if !ok {
			return m, false
		}
		return selectEntity(m, ev, entity)
	case ActionAdd:
		return addRow(m, ev.Level)
	case ActionRemove:
		return removeRow(m, ev.Level, ev.Index)
	default:
		return m, false
	}
}

func resolve(candidates []model.TaxonomyEntity, id string) (model.TaxonomyEntity, bool) {
	if id == "" {
		return model.TaxonomyEntity{}, false
	}
	for _, c := range candidates {
		if c.ID == id {
			return model.TaxonomyEntity{ID: c.ID, Name: c.Name}, true
		}
	}
	return model.TaxonomyEntity{}, false
}

func selectEntity(m model.SyllabusMapping, ev Event, e model.TaxonomyEntity) (model.SyllabusMapping, bool) {
	out := m.Clone()

	switch ev.Level {
	case model.LevelBoard:
		out.Board = e
		resetBelowBoard(&out)
	case model.LevelClass:
		if !m.Board.Selected() {
			return m, false
		}
		out.Class = e
		resetBelowClass(&out)
	case model.LevelSubject:
		if !m.Class.Selected() {
			return m, false
		}
		out.Subject = e
		resetBelowSubject(&out)
	case model.LevelChapter:
		if !m.Subject.Selected() || !inRange(ev.Index, len(m.Chapters)) {
			return m, false
		}
		out.Chapters[ev.Index] = e
		out.Topics = emptyRows()
	case model.LevelTopic:
		if len(m.SelectedChapterIDs()) == 0 || !inRange(ev.Index, len(m.Topics)) {
			return m, false
		}
		out.Topics[ev.Index] = e
	default:
		return m, false
	}

	return out, true
}

func addRow(m model.SyllabusMapping, level model.TaxonomyLevel) (model.SyllabusMapping, bool) {
	out := m.Clone()
	switch level {
	case model.LevelChapter:
		out.Chapters = append(out.Chapters, model.Chapter{})
	case model.LevelTopic:
		// Topics are picked from the selected chapters; there is nothing to
		// pick from until one is chosen.
		if len(m.SelectedChapterIDs()) == 0 {
			return m, false
		}
		out.Topics = append(out.Topics, model.Topic{})
	default:
		return m, false
	}
	return out, true
}

// removeRow drops a chapter or topic row. The last row of a list is kept.
func removeRow(m model.SyllabusMapping, level model.TaxonomyLevel, index int) (model.SyllabusMapping, bool) {
	out := m.Clone()
	switch level {
	case model.LevelChapter:
		if len(m.Chapters) < 2 || !inRange(index, len(m.Chapters)) {
			return m, false
		}
		out.Chapters = append(out.Chapters[:index], out.Chapters[index+1:]...)
		if len(out.SelectedChapterIDs()) == 0 {
			out.Topics = emptyRows()
		}
	case model.LevelTopic:
		if len(m.Topics) < 2 || !inRange(index, len(m.Topics)) {
			return m, false
		}
		out.Topics = append(out.Topics[:index], out.Topics[index+1:]...)
	default:
		return m, false
	}
	return out, true
}

func resetBelowBoard(m *model.SyllabusMapping) {
	m.Class = model.Class{}
	resetBelowClass(m)
}

func resetBelowClass(m *model.SyllabusMapping) {
	m.Subject = model.Subject{}
	resetBelowSubject(m)
}

func resetBelowSubject(m *model.SyllabusMapping) {
	m.Chapters = emptyRows()
	m.Topics = emptyRows()
}

func emptyRows() []model.TaxonomyEntity {
	return []model.TaxonomyEntity{{}}
}

func inRange(i, n int) bool {
	return i >= 0 && i < n
}
