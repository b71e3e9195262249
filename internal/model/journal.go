package model

import "time"

// SubmissionKind tells which step of authoring produced a submission.
type SubmissionKind string

const (
	SubmissionStandard    SubmissionKind = "standard"
	SubmissionParent      SubmissionKind = "parent"
	SubmissionChild       SubmissionKind = "child"
	SubmissionParentPatch SubmissionKind = "parent_patch"
)

type SubmissionStatus string

const (
	SubmissionSucceeded SubmissionStatus = "succeeded"
	SubmissionFailed    SubmissionStatus = "failed"
)

// SubmissionRecord is one upstream submission attempt, kept so that children
// orphaned by a failed batch can be found later.
type SubmissionRecord struct {
	ID          int64            `json:"id"`
	QuestionID  string           `json:"question_id"`
	ParentID    string           `json:"parent_id,omitempty"`
	SessionID   string           `json:"session_id,omitempty"`
	Kind        SubmissionKind   `json:"kind"`
	Status      SubmissionStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	SubmittedBy string           `json:"submitted_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// JournalFilter narrows journal listings. Zero values mean "any".
type JournalFilter struct {
	ParentID  string
	SessionID string
	Status    SubmissionStatus
	Limit     int
}

// OrphanedChild is a child question that reached the remote service while
// its parent was never patched with its id afterwards.
type OrphanedChild struct {
	ParentID    string    `json:"parent_id"`
	QuestionID  string    `json:"question_id"`
	SessionID   string    `json:"session_id,omitempty"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
