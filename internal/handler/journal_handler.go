package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/validator"
)

// JournalHandler exposes the submission journal.
type JournalHandler struct {
	journalService *service.JournalService
	log            zerolog.Logger
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(journalService *service.JournalService, log zerolog.Logger) *JournalHandler {
	return &JournalHandler{
		journalService: journalService,
		log:            log.With().Str("component", "journal_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/journal?parent_id=&session_id=&status=&limit=
// Lists submission attempts, newest first. Filtering by parent_id and
// status=succeeded shows which children of a stopped batch already exist.
func (h *JournalHandler) List(c *gin.Context) {
	var q model.JournalQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	records, err := h.journalService.List(c.Request.Context(), model.JournalFilter{
		ParentID:  q.ParentID,
		SessionID: q.SessionID,
		Status:    model.SubmissionStatus(q.Status),
		Limit:     q.Limit,
	})
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"records": records})
}

// Orphans godoc
// GET /api/v1/journal/orphans?limit=
// Lists children that were created while their parent was never patched
// with their ids. Nothing is repaired automatically.
func (h *JournalHandler) Orphans(c *gin.Context) {
	var q model.JournalQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	orphans, err := h.journalService.Orphans(c.Request.Context(), q.Limit)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"orphans": orphans})
}
