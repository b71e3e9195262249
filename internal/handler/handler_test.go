package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/remote"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type fakeTaxonomy struct {
	boards   []model.Board
	classes  map[string][]model.Class
	topics   map[string][]model.Topic
	failWith error
}

func (f *fakeTaxonomy) ListBoards(context.Context) ([]model.Board, error) {
	return f.boards, f.failWith
}

func (f *fakeTaxonomy) ListClasses(_ context.Context, boardID string) ([]model.Class, error) {
	return f.classes[boardID], f.failWith
}

func (f *fakeTaxonomy) ListSubjects(context.Context, string) ([]model.Subject, error) {
	return nil, f.failWith
}

func (f *fakeTaxonomy) ListChapters(context.Context, string) ([]model.Chapter, error) {
	return nil, f.failWith
}

func (f *fakeTaxonomy) ListTopics(_ context.Context, chapterID string) ([]model.Topic, error) {
	return f.topics[chapterID], f.failWith
}

type fakeBank struct {
	submitted []model.WirePayload
	err       error
}

func (f *fakeBank) ListQuestions(context.Context, model.QuestionFilter) ([]model.QuestionSummary, error) {
	return nil, f.err
}

func (f *fakeBank) SubmitQuestion(_ context.Context, p model.WirePayload) (*model.SubmitResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, p)
	return &model.SubmitResult{Message: "Question created", ID: p.ID}, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

func perform(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, env
}

// withCreator stands in for RequireBearer.
func withCreator(creator model.Creator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyCreator, creator)
		c.Set(middleware.ContextKeyToken, "token")
		c.Next()
	}
}

func validDraft() model.QuestionDraft {
	return model.QuestionDraft{
		ID:            "Q-1",
		QuestionTitle: "What is 2 + 2?",
		Marks:         model.Float64(1),
		Difficulty:    model.DifficultyEasy,
		QuestionType:  model.QuestionTypeSingleCorrectMCQ,
		Source:        model.SourceUserGenerated,
		Options: []model.Option{
			{ID: "a", Text: "4", IsCorrect: true},
			{ID: "b", Text: "5"},
		},
		SyllabusMapping: &model.SyllabusMapping{
			Board:    model.Board{ID: "B1", Name: "CBSE"},
			Class:    model.Class{ID: "C10", Name: "Class 10"},
			Subject:  model.Subject{ID: "S1", Name: "Maths"},
			Chapters: []model.Chapter{{ID: "CH1", Name: "Numbers"}},
		},
	}
}

func TestSyllabusHandler_Select(t *testing.T) {
	src := &fakeTaxonomy{
		boards:  []model.Board{{ID: "B1", Name: "CBSE"}, {ID: "B2", Name: "ICSE"}},
		classes: map[string][]model.Class{"B1": {{ID: "C10", Name: "Class 10"}}},
	}
	h := NewSyllabusHandler(service.NewTaxonomyService(src, nil, 0, zerolog.Nop()), zerolog.Nop())
	r := gin.New()
	r.POST("/syllabus/select", h.Select)

	type result struct {
		Mapping model.SyllabusMapping `json:"mapping"`
		Changed bool                  `json:"changed"`
		Errors  map[string]string     `json:"errors"`
	}

	t.Run("select board on a fresh mapping", func(t *testing.T) {
		w, env := perform(t, r, http.MethodPost, "/syllabus/select", model.SyllabusSelectRequest{
			Event: model.SelectionEvent{Action: "select", Level: "board", ID: "B1"},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var got result
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if !got.Changed {
			t.Fatal("changed = false, want true")
		}
		if got.Mapping.Board != (model.Board{ID: "B1", Name: "CBSE"}) {
			t.Errorf("board = %+v", got.Mapping.Board)
		}
		if got.Errors["syllabusMapping.class"] == "" {
			t.Errorf("expected a class error, got %v", got.Errors)
		}
	})

	t.Run("select class under the chosen board", func(t *testing.T) {
		mapping := model.NewSyllabusMapping()
		mapping.Board = model.Board{ID: "B1", Name: "CBSE"}
		_, env := perform(t, r, http.MethodPost, "/syllabus/select", model.SyllabusSelectRequest{
			Mapping: mapping,
			Event:   model.SelectionEvent{Action: "select", Level: "class", ID: "C10"},
		})
		var got result
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if !got.Changed || got.Mapping.Class.Name != "Class 10" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("unknown id leaves mapping unchanged", func(t *testing.T) {
		w, env := perform(t, r, http.MethodPost, "/syllabus/select", model.SyllabusSelectRequest{
			Event: model.SelectionEvent{Action: "select", Level: "board", ID: "B9"},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var got result
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if got.Changed || got.Mapping.Board.ID != "" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("bad level is a validation error", func(t *testing.T) {
		w, env := perform(t, r, http.MethodPost, "/syllabus/select", model.SyllabusSelectRequest{
			Event: model.SelectionEvent{Action: "select", Level: "grade", ID: "B1"},
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
			t.Fatalf("error = %+v", env.Error)
		}
		if env.Error.Fields["event.level"] == "" {
			t.Errorf("fields = %v", env.Error.Fields)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		failing := &fakeTaxonomy{failWith: &remote.NetworkError{Op: "list boards", Err: errors.New("refused")}}
		h := NewSyllabusHandler(service.NewTaxonomyService(failing, nil, 0, zerolog.Nop()), zerolog.Nop())
		r := gin.New()
		r.POST("/syllabus/select", h.Select)

		w, env := perform(t, r, http.MethodPost, "/syllabus/select", model.SyllabusSelectRequest{
			Event: model.SelectionEvent{Action: "select", Level: "board", ID: "B1"},
		})
		if w.Code != http.StatusBadGateway || env.Error == nil || env.Error.Code != "UPSTREAM_ERROR" {
			t.Errorf("status = %d, error = %+v", w.Code, env.Error)
		}
	})
}

func TestQuestionHandler(t *testing.T) {
	bank := &fakeBank{}
	h := NewQuestionHandler(service.NewQuestionService(bank, true, nil, zerolog.Nop()), zerolog.Nop())
	creator := model.Creator{ID: "T-1", Name: "Asha"}

	r := gin.New()
	g := r.Group("/", withCreator(creator))
	g.POST("/questions/validate", h.Validate)
	g.POST("/questions/compose", h.Compose)
	g.POST("/questions", h.Submit)
	g.GET("/questions/template", h.Template)

	t.Run("validate reports every error", func(t *testing.T) {
		w, env := perform(t, r, http.MethodPost, "/questions/validate", model.QuestionDraft{})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var got struct {
			Valid  bool              `json:"valid"`
			Fields map[string]string `json:"fields"`
		}
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if got.Valid {
			t.Fatal("empty draft reported valid")
		}
		for _, field := range []string{"id", "source", "questionTitle", "marks", "difficulty", "questionType", "syllabusMapping"} {
			if got.Fields[field] == "" {
				t.Errorf("missing error for %s in %v", field, got.Fields)
			}
		}
	})

	t.Run("validate accepts a complete draft", func(t *testing.T) {
		_, env := perform(t, r, http.MethodPost, "/questions/validate", validDraft())
		var got struct {
			Valid bool `json:"valid"`
		}
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if !got.Valid {
			t.Errorf("complete draft reported invalid: %s", env.Data)
		}
	})

	t.Run("compose rejects an invalid draft", func(t *testing.T) {
		d := validDraft()
		d.Options[0].IsCorrect = false
		w, env := perform(t, r, http.MethodPost, "/questions/compose", d)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		if env.Error == nil || env.Error.Fields["optionsGeneral"] == "" {
			t.Errorf("error = %+v", env.Error)
		}
	})

	t.Run("compose previews the payload", func(t *testing.T) {
		w, env := perform(t, r, http.MethodPost, "/questions/compose", validDraft())
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var got struct {
			Payload map[string]interface{} `json:"payload"`
		}
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if got.Payload["id"] != "Q-1" || got.Payload["questionTitle"] != "What is 2 + 2?" {
			t.Errorf("payload = %v", got.Payload)
		}
		if len(bank.submitted) != 0 {
			t.Error("compose must not submit")
		}
	})

	t.Run("submit stamps the caller as creator", func(t *testing.T) {
		d := validDraft()
		d.CreatedBy = model.Creator{ID: "someone-else"}
		w, _ := perform(t, r, http.MethodPost, "/questions", d)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if len(bank.submitted) != 1 {
			t.Fatalf("submitted %d payloads, want 1", len(bank.submitted))
		}
		if got := bank.submitted[0].CreatedBy; got != creator {
			t.Errorf("createdBy = %+v, want %+v", got, creator)
		}
	})

	t.Run("template is owned by the caller", func(t *testing.T) {
		_, env := perform(t, r, http.MethodGet, "/questions/template", nil)
		var got struct {
			Draft model.QuestionDraft `json:"draft"`
		}
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if got.Draft.CreatedBy != creator {
			t.Errorf("createdBy = %+v", got.Draft.CreatedBy)
		}
	})
}

func TestFailFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"no token", remote.ErrUnauthenticated, http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"rejected token", &remote.ServerError{Op: "list", StatusCode: http.StatusUnauthorized}, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"server error", &remote.ServerError{Op: "submit", StatusCode: http.StatusUnprocessableEntity, Message: "duplicate id"}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"wrong phase", fmt.Errorf("add child: %w", workflow.ErrWrongPhase), http.StatusConflict, "INVALID_PHASE"},
		{"no children", workflow.ErrNoChildren, http.StatusConflict, "NO_CHILDREN"},
		{"busy", service.ErrSessionBusy, http.StatusConflict, "SESSION_BUSY"},
		{"not owner", service.ErrNotSessionOwner, http.StatusForbidden, "FORBIDDEN"},
		{"missing session", service.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"batch", &workflow.BatchError{ParentID: "P-1", QuestionID: "C-2", Step: 1, Total: 3, Submitted: 1, Err: errors.New("boom")}, http.StatusBadGateway, "BATCH_INCOMPLETE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { failFromError(c, zerolog.Nop(), tt.err) })

			w, env := perform(t, r, http.MethodGet, "/", nil)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want %s", env.Error, tt.wantErr)
			}
		})
	}
}
