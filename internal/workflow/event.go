package workflow

import "time"

// EventType names a step outcome of a composition session.
type EventType string

const (
	EventParentCreated     EventType = "parent_created"
	EventParentFailed      EventType = "parent_failed"
	EventChildAdded        EventType = "child_added"
	EventChildSubmitted    EventType = "child_submitted"
	EventChildFailed       EventType = "child_failed"
	EventParentPatched     EventType = "parent_patched"
	EventParentPatchFailed EventType = "parent_patch_failed"
	EventBatchCompleted    EventType = "batch_completed"
)

// Event is emitted after every remote step. Step and Total are 1-based
// progress through the child batch; both are zero outside a batch.
type Event struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	QuestionID string    `json:"question_id,omitempty"`
	ParentID   string    `json:"parent_id,omitempty"`
	Step       int       `json:"step,omitempty"`
	Total      int       `json:"total,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Failed reports whether the event records a rejected submission.
func (e Event) Failed() bool {
	return e.Error != ""
}

// Notifier receives session events. A nil Notifier drops them.
type Notifier func(Event)

func (n Notifier) emit(e Event) {
	if n != nil {
		n(e)
	}
}

func (s *Session) event(t EventType, questionID string, step, total int, err error) Event {
	e := Event{
		Type:       t,
		SessionID:  s.ID,
		QuestionID: questionID,
		Step:       step,
		Total:      total,
		At:         time.Now(),
	}
	if s.Parent != nil && s.Parent.ID != questionID {
		e.ParentID = s.Parent.ID
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
