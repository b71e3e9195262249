package model

// LoginRequest is the payload for signing in against the remote service.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=1"`
}

// SignupRequest is the payload for registering a teacher account.
type SignupRequest struct {
	ID       string `json:"id" binding:"required,min=1,max=100"`
	Name     string `json:"name" binding:"required,min=1,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// SelectionEvent is one cascading-selection action on a syllabus mapping.
type SelectionEvent struct {
	Action string `json:"action" binding:"required,oneof=select add remove"`
	Level  string `json:"level" binding:"required,taxonomy_level"`
	Index  int    `json:"index" binding:"min=0"`
	ID     string `json:"id"`
}

// SyllabusSelectRequest applies an event to a mapping sent by the client.
type SyllabusSelectRequest struct {
	Mapping *SyllabusMapping `json:"mapping"`
	Event   SelectionEvent   `json:"event"`
}

// StartCompositionRequest optionally seeds the parent draft of a new session.
type StartCompositionRequest struct {
	Draft *QuestionDraft `json:"draft"`
}

// QuestionListQuery filters the parent question picker.
type QuestionListQuery struct {
	HasChild *bool  `form:"has_child"`
	Search   string `form:"search" binding:"max=200"`
}

// JournalQuery filters the submission journal listing.
type JournalQuery struct {
	ParentID  string `form:"parent_id"`
	SessionID string `form:"session_id"`
	Status    string `form:"status" binding:"omitempty,oneof=succeeded failed"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
}
