// Package workflow implements parent/child question composition: create a
// parent shell, collect child drafts locally, then submit the children and
// patch the parent with their ids.
//
// Each step is independently retryable. Nothing is rolled back on failure;
// children the remote service already accepted stay accepted.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stemsi/qbank-console/internal/composer"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/validator"
)

// Phase is the state of a composition session.
type Phase string

const (
	// PhaseParent: editing the parent shell; nothing persisted yet.
	PhaseParent Phase = "parent"
	// PhaseChild: the parent exists remotely and children are being collected.
	PhaseChild Phase = "child"
)

var (
	ErrWrongPhase  = errors.New("operation not allowed in current phase")
	ErrNoChildren  = errors.New("no child questions to submit")
	ErrNoParentSet = errors.New("session has no parent question")
)

// Submitter sends one composed payload to the question service.
type Submitter interface {
	SubmitQuestion(ctx context.Context, payload model.WirePayload) (*model.SubmitResult, error)
}

// ChildEntry is an accumulated child draft. Submitted is set once the remote
// service acknowledged it, so a retried batch skips it.
type ChildEntry struct {
	Draft     model.QuestionDraft `json:"draft"`
	Submitted bool                `json:"submitted"`
}

// Session is one parent/child authoring session. It is plain data so it can
// be stored between requests.
type Session struct {
	ID        string               `json:"id"`
	Owner     model.Creator        `json:"owner"`
	Phase     Phase                `json:"phase"`
	Draft     model.QuestionDraft  `json:"draft"`
	Parent    *model.QuestionDraft `json:"parent,omitempty"`
	Children  []ChildEntry         `json:"children"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewSession starts in PhaseParent with an empty parent shell owned by owner.
func NewSession(id string, owner model.Creator) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Owner:     owner,
		Phase:     PhaseParent,
		Draft:     parentTemplate(owner),
		Children:  []ChildEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func parentTemplate(owner model.Creator) model.QuestionDraft {
	d := model.NewDraft(owner)
	d.HasChild = true
	return d
}

// SetDraft replaces the form state, keeping the fields the phase dictates.
func (s *Session) SetDraft(d model.QuestionDraft) {
	d = d.Clone()
	d.CreatedBy = s.Owner
	switch s.Phase {
	case PhaseParent:
		d.HasChild = true
		d.ParentID = ""
		d.ChildIDs = nil
	case PhaseChild:
		d.HasChild = false
		d.ChildIDs = nil
		if s.Parent != nil {
			d.ParentID = s.Parent.ID
		}
	}
	s.Draft = d
	s.touch()
}

// CreateParent validates the draft as a parent shell and submits it. On
// success the session moves to PhaseChild with a fresh child template.
// Validation failures are returned as Errors with a nil error.
func (s *Session) CreateParent(ctx context.Context, sub Submitter, notify Notifier) (validator.Errors, error) {
	if s.Phase != PhaseParent {
		return nil, fmt.Errorf("create parent in %s phase: %w", s.Phase, ErrWrongPhase)
	}

	parent := s.Draft.Clone()
	parent.HasChild = true
	parent.ParentID = ""
	parent.ChildIDs = nil
	parent.CreatedBy = s.Owner

	if errs := validator.ParentShell(parent); errs.HasErrors() {
		return errs, nil
	}

	if _, err := sub.SubmitQuestion(ctx, composer.Compose(parent)); err != nil {
		notify.emit(s.event(EventParentFailed, parent.ID, 0, 0, err))
		return nil, fmt.Errorf("create parent %s: %w", parent.ID, err)
	}

	s.Parent = &parent
	s.Children = []ChildEntry{}
	s.Draft = model.NewChildDraft(parent)
	s.Phase = PhaseChild
	s.touch()

	notify.emit(s.event(EventParentCreated, parent.ID, 0, 0, nil))
	return nil, nil
}

// AddChild validates the current draft as a full question and appends it to
// the batch. Ids must be unique within the batch and differ from the parent.
func (s *Session) AddChild() (validator.Errors, error) {
	if s.Phase != PhaseChild {
		return nil, fmt.Errorf("add child in %s phase: %w", s.Phase, ErrWrongPhase)
	}
	if s.Parent == nil {
		return nil, ErrNoParentSet
	}

	child := s.Draft.Clone()
	child.HasChild = false
	child.ParentID = s.Parent.ID
	child.ChildIDs = nil

	errs := validator.Question(child)
	if _, taken := errs[validator.FieldID]; !taken {
		if msg := s.childIDConflict(child.ID); msg != "" {
			errs[validator.FieldID] = validator.Message(msg)
		}
	}
	if errs.HasErrors() {
		return errs, nil
	}

	s.Children = append(s.Children, ChildEntry{Draft: child})
	s.Draft = model.NewChildDraft(*s.Parent)
	s.touch()
	return nil, nil
}

func (s *Session) childIDConflict(id string) string {
	if id == s.Parent.ID {
		return "Child question ID must differ from the parent ID"
	}
	for _, c := range s.Children {
		if c.Draft.ID == id {
			return "Question ID is already used in this batch"
		}
	}
	return ""
}

// ResetChild discards the unsaved child draft. Accumulated children stay.
func (s *Session) ResetChild() error {
	if s.Phase != PhaseChild {
		return fmt.Errorf("reset child in %s phase: %w", s.Phase, ErrWrongPhase)
	}
	if s.Parent == nil {
		return ErrNoParentSet
	}
	s.Draft = model.NewChildDraft(*s.Parent)
	s.touch()
	return nil
}

// Pending returns how many accumulated children are not yet acknowledged.
func (s *Session) Pending() int {
	n := 0
	for _, c := range s.Children {
		if !c.Submitted {
			n++
		}
	}
	return n
}

// ChildIDs lists the accumulated child ids in submission order.
func (s *Session) ChildIDs() []string {
	ids := make([]string, len(s.Children))
	for i, c := range s.Children {
		ids[i] = c.Draft.ID
	}
	return ids
}

// Report summarises a completed batch.
type Report struct {
	ParentID string   `json:"parent_id"`
	ChildIDs []string `json:"child_ids"`
	Resumed  int      `json:"resumed"`
}

// SubmitAllChildren submits every unacknowledged child in order, one at a
// time, then patches the parent with all child ids. It stops at the first
// failure and returns a *BatchError; calling it again resumes from there.
// On success the session resets to PhaseParent.
func (s *Session) SubmitAllChildren(ctx context.Context, sub Submitter, notify Notifier) (*Report, error) {
	if s.Phase != PhaseChild {
		return nil, fmt.Errorf("submit children in %s phase: %w", s.Phase, ErrWrongPhase)
	}
	if s.Parent == nil {
		return nil, ErrNoParentSet
	}
	if len(s.Children) == 0 {
		return nil, ErrNoChildren
	}

	total := len(s.Children)
	resumed := total - s.Pending()

	for i := range s.Children {
		entry := &s.Children[i]
		if entry.Submitted {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, s.batchError(i, entry.Draft.ID, false, err)
		}

		if _, err := sub.SubmitQuestion(ctx, composer.Compose(entry.Draft)); err != nil {
			notify.emit(s.event(EventChildFailed, entry.Draft.ID, i+1, total, err))
			return nil, s.batchError(i, entry.Draft.ID, false, err)
		}

		entry.Submitted = true
		s.touch()
		notify.emit(s.event(EventChildSubmitted, entry.Draft.ID, i+1, total, nil))
	}

	childIDs := s.ChildIDs()
	if _, err := sub.SubmitQuestion(ctx, composer.ParentPatch(*s.Parent, childIDs)); err != nil {
		notify.emit(s.event(EventParentPatchFailed, s.Parent.ID, total, total, err))
		return nil, s.batchError(total, s.Parent.ID, true, err)
	}
	notify.emit(s.event(EventParentPatched, s.Parent.ID, total, total, nil))

	report := &Report{ParentID: s.Parent.ID, ChildIDs: childIDs, Resumed: resumed}

	s.Phase = PhaseParent
	s.Parent = nil
	s.Children = []ChildEntry{}
	s.Draft = parentTemplate(s.Owner)
	s.touch()

	notify.emit(Event{
		Type:      EventBatchCompleted,
		SessionID: s.ID,
		ParentID:  report.ParentID,
		Step:      total,
		Total:     total,
		At:        time.Now(),
	})
	return report, nil
}

func (s *Session) batchError(step int, questionID string, patch bool, err error) *BatchError {
	submitted := len(s.Children) - s.Pending()
	return &BatchError{
		ParentID:    s.Parent.ID,
		QuestionID:  questionID,
		Step:        step,
		Total:       len(s.Children),
		Submitted:   submitted,
		ParentPatch: patch,
		Err:         err,
	}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

// BatchError reports where SubmitAllChildren stopped. Children counted in
// Submitted are persisted remotely and are not resent on retry.
type BatchError struct {
	ParentID    string
	QuestionID  string
	Step        int
	Total       int
	Submitted   int
	ParentPatch bool
	Err         error
}

func (e *BatchError) Error() string {
	if e.ParentPatch {
		return fmt.Sprintf("patch parent %s with %d children: %v", e.ParentID, e.Total, e.Err)
	}
	return fmt.Sprintf("submit child %s (%d/%d, %d already submitted): %v",
		e.QuestionID, e.Step+1, e.Total, e.Submitted, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
