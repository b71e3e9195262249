package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/validator"
)

// QuestionHandler handles standard (single question) authoring.
type QuestionHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/questions?has_child=&search=
// Lists existing questions, e.g. parents to attach children to.
func (h *QuestionHandler) List(c *gin.Context) {
	var q model.QuestionListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.List(middleware.UpstreamContext(c), model.QuestionFilter{
		HasChild: q.HasChild,
		Search:   q.Search,
	})
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	if questions == nil {
		questions = []model.QuestionSummary{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Template godoc
// GET /api/v1/questions/template
// Returns an empty draft with form defaults and the caller as creator.
func (h *QuestionHandler) Template(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"draft": h.questionService.Template(middleware.GetCreator(c))})
}

// Validate godoc
// POST /api/v1/questions/validate
// Runs every rule and returns the error tree. A draft with errors is still a 200.
func (h *QuestionHandler) Validate(c *gin.Context) {
	var draft model.QuestionDraft
	if fields := validator.Bind(c, &draft); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	errs := h.questionService.Validate(draft)
	response.Success(c, http.StatusOK, gin.H{
		"valid":  !errs.HasErrors(),
		"errors": errs,
		"fields": errs.Flatten(),
	})
}

// Compose godoc
// POST /api/v1/questions/compose
// Previews the wire payload of a valid draft without sending it.
func (h *QuestionHandler) Compose(c *gin.Context) {
	var draft model.QuestionDraft
	if fields := validator.Bind(c, &draft); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	payload, errs := h.questionService.Compose(draft)
	if errs.HasErrors() {
		failValidation(c, errs)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payload": payload})
}

// Submit godoc
// POST /api/v1/questions
// Validates, composes and submits a standard question.
func (h *QuestionHandler) Submit(c *gin.Context) {
	var draft model.QuestionDraft
	if fields := validator.Bind(c, &draft); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	res, errs, err := h.questionService.Submit(middleware.UpstreamContext(c), draft, middleware.GetCreator(c))
	if errs.HasErrors() {
		failValidation(c, errs)
		return
	}
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"question_id": draft.ID,
		"message":     res.Message,
		"result":      res,
	})
}
