package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/syllabus"
	"github.com/stemsi/qbank-console/internal/validator"
)

// CompositionHandler drives parent/child authoring sessions.
type CompositionHandler struct {
	compositionService *service.CompositionService
	log                zerolog.Logger
}

// NewCompositionHandler creates a new CompositionHandler.
func NewCompositionHandler(compositionService *service.CompositionService, log zerolog.Logger) *CompositionHandler {
	return &CompositionHandler{
		compositionService: compositionService,
		log:                log.With().Str("component", "composition_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/compositions
// Opens a session in the parent phase, optionally seeded with a draft.
func (h *CompositionHandler) Start(c *gin.Context) {
	var req model.StartCompositionRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
			return
		}
	}

	sess, err := h.compositionService.Start(c.Request.Context(), middleware.GetCreator(c), req.Draft)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": sess})
}

// Get godoc
// GET /api/v1/compositions/:id
func (h *CompositionHandler) Get(c *gin.Context) {
	sess, err := h.compositionService.Get(c.Request.Context(), c.Param("id"), middleware.GetCreator(c))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// UpdateDraft godoc
// PUT /api/v1/compositions/:id/draft
// Replaces the form state. Phase-owned fields (hasChild, parentId) are
// overwritten by the session.
func (h *CompositionHandler) UpdateDraft(c *gin.Context) {
	var draft model.QuestionDraft
	if fields := validator.Bind(c, &draft); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	sess, err := h.compositionService.UpdateDraft(c.Request.Context(), c.Param("id"), middleware.GetCreator(c), draft)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// ApplySelection godoc
// POST /api/v1/compositions/:id/syllabus
func (h *CompositionHandler) ApplySelection(c *gin.Context) {
	var req model.SelectionEvent
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, changed, err := h.compositionService.ApplySelection(
		middleware.UpstreamContext(c), c.Param("id"), middleware.GetCreator(c), syllabus.FromRequest(req))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess, "changed": changed})
}

// CreateParent godoc
// POST /api/v1/compositions/:id/parent
// Submits the parent shell and moves the session to the child phase.
func (h *CompositionHandler) CreateParent(c *gin.Context) {
	sess, errs, err := h.compositionService.CreateParent(middleware.UpstreamContext(c), c.Param("id"), middleware.GetCreator(c))
	if errs.HasErrors() {
		failValidation(c, errs)
		return
	}
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": sess})
}

// AddChild godoc
// POST /api/v1/compositions/:id/children
// Adds the current child draft to the batch and starts a fresh one.
func (h *CompositionHandler) AddChild(c *gin.Context) {
	sess, errs, err := h.compositionService.AddChild(c.Request.Context(), c.Param("id"), middleware.GetCreator(c))
	if errs.HasErrors() {
		failValidation(c, errs)
		return
	}
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": sess, "pending": sess.Pending()})
}

// ResetChild godoc
// DELETE /api/v1/compositions/:id/draft
func (h *CompositionHandler) ResetChild(c *gin.Context) {
	sess, err := h.compositionService.ResetChild(c.Request.Context(), c.Param("id"), middleware.GetCreator(c))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// SubmitAll godoc
// POST /api/v1/compositions/:id/submit
// Submits every pending child in order, then patches the parent with the
// child ids. A stopped batch answers 502 with its progress; calling again
// resumes after the last submitted child.
func (h *CompositionHandler) SubmitAll(c *gin.Context) {
	sess, report, err := h.compositionService.SubmitAll(middleware.UpstreamContext(c), c.Param("id"), middleware.GetCreator(c))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess, "report": report})
}

// Discard godoc
// DELETE /api/v1/compositions/:id
func (h *CompositionHandler) Discard(c *gin.Context) {
	if err := h.compositionService.Discard(c.Request.Context(), c.Param("id"), middleware.GetCreator(c)); err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
