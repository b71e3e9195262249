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

// SyllabusHandler runs the cascading syllabus reducer for clients that keep
// the mapping themselves.
type SyllabusHandler struct {
	taxonomyService *service.TaxonomyService
	log             zerolog.Logger
}

// NewSyllabusHandler creates a new SyllabusHandler.
func NewSyllabusHandler(taxonomyService *service.TaxonomyService, log zerolog.Logger) *SyllabusHandler {
	return &SyllabusHandler{
		taxonomyService: taxonomyService,
		log:             log.With().Str("component", "syllabus_handler").Logger(),
	}
}

// Select godoc
// POST /api/v1/syllabus/select
// Applies one selection event to the given mapping. An event that does not
// resolve returns the mapping unchanged with changed=false.
func (h *SyllabusHandler) Select(c *gin.Context) {
	var req model.SyllabusSelectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	mapping := model.NewSyllabusMapping()
	if req.Mapping != nil {
		mapping = req.Mapping
	}
	ev := syllabus.FromRequest(req.Event)

	var candidates []model.TaxonomyEntity
	if ev.Action == syllabus.ActionSelect {
		var err error
		candidates, err = h.taxonomyService.Candidates(middleware.UpstreamContext(c), *mapping, ev.Level)
		if err != nil {
			failFromError(c, h.log, err)
			return
		}
	}

	next, changed := syllabus.Apply(*mapping, ev, candidates)
	response.Success(c, http.StatusOK, gin.H{
		"mapping": next,
		"changed": changed,
		"errors":  syllabusErrors(next),
	})
}

// syllabusErrors flattens the mapping rule so clients can show it inline.
func syllabusErrors(m model.SyllabusMapping) map[string]string {
	node := validator.Syllabus(&m)
	if node == nil {
		return map[string]string{}
	}
	return validator.Errors{validator.FieldSyllabusMapping: node}.Flatten()
}
