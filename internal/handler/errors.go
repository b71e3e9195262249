package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/composer"
	"github.com/stemsi/qbank-console/internal/remote"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workflow"
)

// failValidation reports a draft's error tree as flattened field paths.
func failValidation(c *gin.Context, errs validator.Errors) {
	response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, errs.Flatten())
}

// failFromError maps service errors onto the response envelope.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	var (
		batchErr  *workflow.BatchError
		serverErr *remote.ServerError
		netErr    *remote.NetworkError
	)

	switch {
	case errors.As(err, &batchErr):
		response.FailWithData(c, http.StatusBadGateway, response.ErrBatchIncomplete, remote.Message(batchErr.Err), gin.H{
			"parent_id":    batchErr.ParentID,
			"question_id":  batchErr.QuestionID,
			"step":         batchErr.Step,
			"total":        batchErr.Total,
			"submitted":    batchErr.Submitted,
			"parent_patch": batchErr.ParentPatch,
		})
	case errors.Is(err, composer.ErrPayloadContract):
		log.Error().Err(err).Msg("Composed payload broke the wire contract")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	case errors.Is(err, remote.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	case errors.As(err, &serverErr):
		if serverErr.StatusCode == http.StatusUnauthorized {
			response.FailWithMessage(c, http.StatusUnauthorized, response.ErrTokenInvalid, remote.Message(err))
			return
		}
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, remote.Message(err))
	case errors.As(err, &netErr):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, remote.Message(err))
	case errors.Is(err, workflow.ErrWrongPhase), errors.Is(err, workflow.ErrNoParentSet):
		response.Fail(c, http.StatusConflict, response.ErrInvalidPhase)
	case errors.Is(err, workflow.ErrNoChildren):
		response.Fail(c, http.StatusConflict, response.ErrNoChildren)
	case errors.Is(err, service.ErrSessionBusy):
		response.Fail(c, http.StatusConflict, response.ErrSessionBusy)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
