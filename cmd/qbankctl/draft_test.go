package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/remote"
	"github.com/stemsi/qbank-console/internal/workflow"
)

const yamlDraft = `
id: Q-100
questionTitle: Which gas do plants absorb?
marks: 2
difficulty: EASY
questionType: SINGLE_CORRECT_MCQ
source: PREVIOUS_YEAR
year: "2021"
options:
  - id: a
    text: Oxygen
    isCorrect: false
  - id: b
    text: Carbon dioxide
    isCorrect: true
syllabusMapping:
  board: {id: B1, name: CBSE}
  class: {id: C10, name: Class 10}
  subject: {id: S1, name: Science}
  chapter:
    - {id: CH1, name: Life Processes}
`

func TestDecodeDocument_YAML(t *testing.T) {
	var d model.QuestionDraft
	if err := decodeDocument([]byte(yamlDraft), &d); err != nil {
		t.Fatalf("decodeDocument: %v", err)
	}

	if d.ID != "Q-100" {
		t.Errorf("ID = %q, want %q", d.ID, "Q-100")
	}
	if d.Marks == nil || *d.Marks != 2 {
		t.Errorf("Marks = %v, want 2", d.Marks)
	}
	if d.QuestionType != model.QuestionTypeSingleCorrectMCQ {
		t.Errorf("QuestionType = %q, want %q", d.QuestionType, model.QuestionTypeSingleCorrectMCQ)
	}
	if len(d.Options) != 2 || !d.Options[1].IsCorrect {
		t.Errorf("Options = %+v, want two with the second correct", d.Options)
	}
	if d.SyllabusMapping == nil || len(d.SyllabusMapping.Chapters) != 1 || d.SyllabusMapping.Chapters[0].ID != "CH1" {
		t.Errorf("SyllabusMapping = %+v, want one chapter CH1", d.SyllabusMapping)
	}
}

func TestDecodeDocument_JSON(t *testing.T) {
	raw := `{"id":"Q-1","questionTitle":"t","marks":1.5,"questionType":"SUBJECTIVE"}`
	var d model.QuestionDraft
	if err := decodeDocument([]byte(raw), &d); err != nil {
		t.Fatalf("decodeDocument: %v", err)
	}
	if d.Marks == nil || *d.Marks != 1.5 {
		t.Errorf("Marks = %v, want 1.5", d.Marks)
	}
}

func TestDecodeDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "empty"},
		{"unknown field", "id: Q-1\ntitle: typo", "unknown field"},
		{"broken yaml", "id: [unclosed", "parse document"},
		{"unquoted year", "id: Q-1\nyear: 2021", "decode document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d model.QuestionDraft
			err := decodeDocument([]byte(tt.raw), &d)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestReadBatch(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "batch.yaml")
	content := `
parent:
  id: P-1
  source: USER_GENERATED
children:
  - id: C-1
    questionTitle: first
  - id: C-2
    questionTitle: second
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := readBatch(path)
	if err != nil {
		t.Fatalf("readBatch: %v", err)
	}
	if b.Parent.ID != "P-1" || len(b.Children) != 2 {
		t.Errorf("batch = %+v, want parent P-1 with two children", b)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("parent:\n  id: P-2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readBatch(empty); err == nil {
		t.Error("a batch without children should be rejected")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthenticated", remote.ErrUnauthenticated, "Please log in first (qbankctl login)"},
		{"server message", &remote.ServerError{Op: "submit question", StatusCode: 400, Message: "Duplicate id"}, "Duplicate id"},
		{
			"batch",
			&workflow.BatchError{ParentID: "P-1", Total: 3, Submitted: 1, Err: &remote.ServerError{Op: "submit question", StatusCode: 500}},
			"Failed to submit question (1 of 3 children of P-1 were submitted before the batch stopped)",
		},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userMessage(tt.err); got != tt.want {
				t.Errorf("userMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
