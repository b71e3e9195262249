package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/validator"
)

var owner = model.Creator{ID: "t1", Name: "Teacher"}

// fakeSubmitter records payloads and fails the calls listed in failOn
// (0-based call numbers).
type fakeSubmitter struct {
	calls  []model.WirePayload
	failOn map[int]error
}

func (f *fakeSubmitter) SubmitQuestion(_ context.Context, p model.WirePayload) (*model.SubmitResult, error) {
	n := len(f.calls)
	f.calls = append(f.calls, p)
	if err, ok := f.failOn[n]; ok {
		return nil, err
	}
	return &model.SubmitResult{Message: "ok", ID: p.ID}, nil
}

func childContent(id string) model.QuestionDraft {
	return model.QuestionDraft{
		ID:            id,
		QuestionTitle: "What is " + id + "?",
		Marks:         model.Float64(2),
		Difficulty:    model.DifficultyMedium,
		QuestionType:  model.QuestionTypeSubjective,
		EvaluationRubric: []model.EvaluationRubric{
			{Criterion: "Correct answer", Weight: 1},
		},
		Source: model.SourceUserGenerated,
		SyllabusMapping: &model.SyllabusMapping{
			Board:    model.Board{ID: "b1", Name: "CBSE"},
			Class:    model.Class{ID: "c1", Name: "5"},
			Subject:  model.Subject{ID: "s1", Name: "Math"},
			Chapters: []model.Chapter{{ID: "ch1", Name: "Arithmetic"}},
		},
	}
}

func sessionWithParent(t *testing.T, sub Submitter) *Session {
	t.Helper()
	s := NewSession("sess-1", owner)
	s.SetDraft(model.QuestionDraft{ID: "p1", Source: model.SourceUserGenerated})

	errs, err := s.CreateParent(context.Background(), sub, nil)
	if err != nil || errs.HasErrors() {
		t.Fatalf("CreateParent() = %v, %v", errs, err)
	}
	return s
}

func addChild(t *testing.T, s *Session, id string) {
	t.Helper()
	s.SetDraft(childContent(id))
	errs, err := s.AddChild()
	if err != nil || errs.HasErrors() {
		t.Fatalf("AddChild(%s) = %v, %v", id, errs.Flatten(), err)
	}
}

func TestSession_ParentChildScenario(t *testing.T) {
	sub := &fakeSubmitter{}
	s := sessionWithParent(t, sub)

	if s.Phase != PhaseChild {
		t.Fatalf("phase = %s, want %s", s.Phase, PhaseChild)
	}
	if len(sub.calls) != 1 || !sub.calls[0].HasChild || sub.calls[0].WireContent != nil {
		t.Fatalf("parent payload = %+v", sub.calls)
	}
	if s.Draft.ParentID != "p1" || s.Draft.Source != model.SourceUserGenerated || s.Draft.CreatedBy != owner {
		t.Errorf("child template = %+v", s.Draft)
	}

	addChild(t, s, "c1")
	if len(s.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(s.Children))
	}

	var events []EventType
	report, err := s.SubmitAllChildren(context.Background(), sub, func(e Event) {
		events = append(events, e.Type)
	})
	if err != nil {
		t.Fatalf("SubmitAllChildren() error = %v", err)
	}

	// parent create, one child, one parent patch
	if len(sub.calls) != 3 {
		t.Fatalf("submission calls = %d, want 3", len(sub.calls))
	}
	child := sub.calls[1]
	if child.ID != "c1" || child.ParentID == nil || *child.ParentID != "p1" {
		t.Errorf("child payload = %+v", child)
	}
	patch := sub.calls[2]
	if patch.ID != "p1" || !patch.HasChild || !reflect.DeepEqual(patch.ChildIDs, []string{"c1"}) {
		t.Errorf("patch payload = %+v", patch)
	}
	if patch.WireContent != nil {
		t.Error("patch must not carry content")
	}

	if report.ParentID != "p1" || !reflect.DeepEqual(report.ChildIDs, []string{"c1"}) {
		t.Errorf("report = %+v", report)
	}
	want := []EventType{EventChildSubmitted, EventParentPatched, EventBatchCompleted}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}

	if s.Phase != PhaseParent || s.Parent != nil || len(s.Children) != 0 {
		t.Errorf("session not reset: phase=%s parent=%v children=%d", s.Phase, s.Parent, len(s.Children))
	}
	if !s.Draft.HasChild {
		t.Error("reset draft should be a parent shell")
	}
}

func TestSession_CreateParentValidation(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewSession("sess-1", owner)
	s.SetDraft(model.QuestionDraft{Source: model.SourcePreviousYear})

	errs, err := s.CreateParent(context.Background(), sub, nil)
	if err != nil {
		t.Fatalf("CreateParent() error = %v", err)
	}
	for _, path := range []string{validator.FieldID, validator.FieldYear} {
		if _, ok := errs.Lookup(path); !ok {
			t.Errorf("missing %s error", path)
		}
	}
	if len(sub.calls) != 0 {
		t.Error("invalid parent must not be submitted")
	}
	if s.Phase != PhaseParent {
		t.Errorf("phase = %s", s.Phase)
	}
}

func TestSession_CreateParentRemoteFailure(t *testing.T) {
	boom := errors.New("Question with this ID already exists")
	sub := &fakeSubmitter{failOn: map[int]error{0: boom}}
	s := NewSession("sess-1", owner)
	s.SetDraft(model.QuestionDraft{ID: "p1", Source: model.SourceAIGenerated})

	var got []Event
	_, err := s.CreateParent(context.Background(), sub, func(e Event) { got = append(got, e) })
	if !errors.Is(err, boom) {
		t.Fatalf("CreateParent() error = %v, want %v", err, boom)
	}
	if s.Phase != PhaseParent || s.Draft.ID != "p1" {
		t.Error("draft and phase should be kept for a manual retry")
	}
	if len(got) != 1 || got[0].Type != EventParentFailed || !got[0].Failed() {
		t.Errorf("events = %+v", got)
	}
}

func TestSession_WrongPhase(t *testing.T) {
	s := NewSession("sess-1", owner)

	if _, err := s.AddChild(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("AddChild() error = %v, want ErrWrongPhase", err)
	}
	if err := s.ResetChild(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("ResetChild() error = %v, want ErrWrongPhase", err)
	}
	if _, err := s.SubmitAllChildren(context.Background(), &fakeSubmitter{}, nil); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("SubmitAllChildren() error = %v, want ErrWrongPhase", err)
	}

	s = sessionWithParent(t, &fakeSubmitter{})
	if _, err := s.CreateParent(context.Background(), &fakeSubmitter{}, nil); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("CreateParent() error = %v, want ErrWrongPhase", err)
	}
	if _, err := s.SubmitAllChildren(context.Background(), &fakeSubmitter{}, nil); !errors.Is(err, ErrNoChildren) {
		t.Errorf("SubmitAllChildren() error = %v, want ErrNoChildren", err)
	}
}

func TestSession_AddChildRejections(t *testing.T) {
	s := sessionWithParent(t, &fakeSubmitter{})
	addChild(t, s, "c1")

	tests := []struct {
		name  string
		draft model.QuestionDraft
		path  string
	}{
		{"duplicate id", childContent("c1"), validator.FieldID},
		{"parent id", childContent("p1"), validator.FieldID},
		{"invalid content", func() model.QuestionDraft {
			d := childContent("c2")
			d.Marks = nil
			return d
		}(), validator.FieldMarks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetDraft(tt.draft)
			errs, err := s.AddChild()
			if err != nil {
				t.Fatalf("AddChild() error = %v", err)
			}
			if _, ok := errs.Lookup(tt.path); !ok {
				t.Errorf("missing %s error, got %v", tt.path, errs.Paths())
			}
			if len(s.Children) != 1 {
				t.Errorf("children = %d, want 1", len(s.Children))
			}
			if s.Draft.ID != tt.draft.ID {
				t.Error("a rejected draft must be kept for correction")
			}
		})
	}
}

func TestSession_ResetChildKeepsBatch(t *testing.T) {
	s := sessionWithParent(t, &fakeSubmitter{})
	addChild(t, s, "c1")
	s.SetDraft(childContent("c2"))

	if err := s.ResetChild(); err != nil {
		t.Fatalf("ResetChild() error = %v", err)
	}
	if s.Draft.ID != "" || s.Draft.ParentID != "p1" {
		t.Errorf("draft = %+v, want fresh child template", s.Draft)
	}
	if len(s.Children) != 1 {
		t.Errorf("children = %d, want 1", len(s.Children))
	}
}

func TestSession_PartialFailureResumes(t *testing.T) {
	boom := errors.New("network down")
	// call 0 is the parent, 1 is c1, 2 is c2
	sub := &fakeSubmitter{failOn: map[int]error{2: boom}}
	s := sessionWithParent(t, sub)
	addChild(t, s, "c1")
	addChild(t, s, "c2")
	addChild(t, s, "c3")

	_, err := s.SubmitAllChildren(context.Background(), sub, nil)
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("SubmitAllChildren() error = %v, want *BatchError", err)
	}
	if batchErr.QuestionID != "c2" || batchErr.Step != 1 || batchErr.Submitted != 1 || batchErr.ParentPatch {
		t.Errorf("batch error = %+v", batchErr)
	}
	if !errors.Is(err, boom) {
		t.Error("batch error should wrap the submission error")
	}
	if len(sub.calls) != 3 {
		t.Fatalf("calls = %d, want 3 (no submission after the failure)", len(sub.calls))
	}
	if s.Phase != PhaseChild || !s.Children[0].Submitted || s.Children[1].Submitted {
		t.Errorf("session after failure = %+v", s.Children)
	}

	report, err := s.SubmitAllChildren(context.Background(), sub, nil)
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}

	var ids []string
	for _, p := range sub.calls[3:] {
		ids = append(ids, p.ID)
	}
	if want := []string{"c2", "c3", "p1"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("retry submitted %v, want %v", ids, want)
	}
	if report.Resumed != 1 || !reflect.DeepEqual(report.ChildIDs, []string{"c1", "c2", "c3"}) {
		t.Errorf("report = %+v", report)
	}
}

func TestSession_PatchFailureRetriesPatchOnly(t *testing.T) {
	boom := errors.New("server error")
	sub := &fakeSubmitter{failOn: map[int]error{2: boom}}
	s := sessionWithParent(t, sub)
	addChild(t, s, "c1")

	_, err := s.SubmitAllChildren(context.Background(), sub, nil)
	var batchErr *BatchError
	if !errors.As(err, &batchErr) || !batchErr.ParentPatch {
		t.Fatalf("error = %v, want parent patch BatchError", err)
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d, want 0", s.Pending())
	}

	if _, err := s.SubmitAllChildren(context.Background(), sub, nil); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if len(sub.calls) != 4 || sub.calls[3].ID != "p1" {
		t.Errorf("retry should only resend the patch, calls = %d", len(sub.calls))
	}
}

func TestSession_CancelledContextStopsBatch(t *testing.T) {
	sub := &fakeSubmitter{}
	s := sessionWithParent(t, sub)
	addChild(t, s, "c1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SubmitAllChildren(ctx, sub, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(sub.calls) != 1 {
		t.Errorf("calls = %d, want only the parent", len(sub.calls))
	}
}

func TestSession_SetDraftEnforcesPhase(t *testing.T) {
	s := NewSession("sess-1", owner)
	s.SetDraft(model.QuestionDraft{ID: "p1", ParentID: "x", CreatedBy: model.Creator{ID: "other"}})
	if !s.Draft.HasChild || s.Draft.ParentID != "" || s.Draft.CreatedBy != owner {
		t.Errorf("parent phase draft = %+v", s.Draft)
	}

	s = sessionWithParent(t, &fakeSubmitter{})
	s.SetDraft(model.QuestionDraft{ID: "c1", HasChild: true, ParentID: "zzz"})
	if s.Draft.HasChild || s.Draft.ParentID != "p1" {
		t.Errorf("child phase draft = %+v", s.Draft)
	}
}

func TestSession_AddChildRejectsEmptyOptions(t *testing.T) {
	s := sessionWithParent(t, &fakeSubmitter{})

	d := childContent("c1")
	d.QuestionType = model.QuestionTypeSingleCorrectMCQ
	d.EvaluationRubric = nil
	d.Options = []model.Option{}
	s.SetDraft(d)

	// Sessions are stored as JSON between requests.
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	var stored Session
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}

	errs, err := stored.AddChild()
	if err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	if _, ok := errs.Lookup(validator.FieldOptionsGeneral); !ok {
		t.Errorf("AddChild() errors = %v, want %s", errs.Flatten(), validator.FieldOptionsGeneral)
	}
	if len(stored.Children) != 0 {
		t.Errorf("children = %d, want 0", len(stored.Children))
	}
}
