package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/service"
)

// TaxonomyHandler serves the board → class → subject → chapter → topic lists.
type TaxonomyHandler struct {
	taxonomyService *service.TaxonomyService
	log             zerolog.Logger
}

// NewTaxonomyHandler creates a new TaxonomyHandler.
func NewTaxonomyHandler(taxonomyService *service.TaxonomyService, log zerolog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		taxonomyService: taxonomyService,
		log:             log.With().Str("component", "taxonomy_handler").Logger(),
	}
}

// Boards godoc
// GET /api/v1/taxonomy/boards
func (h *TaxonomyHandler) Boards(c *gin.Context) {
	boards, err := h.taxonomyService.Boards(middleware.UpstreamContext(c))
	h.respond(c, "boards", boards, err)
}

// Classes godoc
// GET /api/v1/taxonomy/classes?board_id=
func (h *TaxonomyHandler) Classes(c *gin.Context) {
	boardID, ok := requiredQuery(c, "board_id")
	if !ok {
		return
	}
	classes, err := h.taxonomyService.Classes(middleware.UpstreamContext(c), boardID)
	h.respond(c, "classes", classes, err)
}

// Subjects godoc
// GET /api/v1/taxonomy/subjects?class_id=
func (h *TaxonomyHandler) Subjects(c *gin.Context) {
	classID, ok := requiredQuery(c, "class_id")
	if !ok {
		return
	}
	subjects, err := h.taxonomyService.Subjects(middleware.UpstreamContext(c), classID)
	h.respond(c, "subjects", subjects, err)
}

// Chapters godoc
// GET /api/v1/taxonomy/chapters?subject_id=
func (h *TaxonomyHandler) Chapters(c *gin.Context) {
	subjectID, ok := requiredQuery(c, "subject_id")
	if !ok {
		return
	}
	chapters, err := h.taxonomyService.Chapters(middleware.UpstreamContext(c), subjectID)
	h.respond(c, "chapters", chapters, err)
}

// Topics godoc
// GET /api/v1/taxonomy/topics?chapter_id=
// chapter_id may repeat; the result is the union of the chapters' topics.
func (h *TaxonomyHandler) Topics(c *gin.Context) {
	chapterIDs := c.QueryArray("chapter_id")
	if len(chapterIDs) == 0 || chapterIDs[0] == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"chapter_id": "chapter_id is required",
		})
		return
	}
	topics, err := h.taxonomyService.TopicsForChapters(middleware.UpstreamContext(c), chapterIDs)
	h.respond(c, "topics", topics, err)
}

func (h *TaxonomyHandler) respond(c *gin.Context, key string, entities []model.TaxonomyEntity, err error) {
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	if entities == nil {
		entities = []model.TaxonomyEntity{}
	}
	response.Success(c, http.StatusOK, gin.H{key: entities})
}

func requiredQuery(c *gin.Context, name string) (string, bool) {
	v := c.Query(name)
	if v == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			name: name + " is required",
		})
		return "", false
	}
	return v, true
}
