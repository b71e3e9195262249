package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/remote"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Exchanges teacher credentials for a bearer token issued by the question service.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.failSignIn(c, err)
		return
	}

	creator, err := h.authService.CreatorFromToken(res.Token)
	if err != nil {
		h.log.Warn().Err(err).Msg("Issued token carries no readable identity")
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   res.Token,
		"message": res.Message,
		"creator": creator,
	})
}

// Signup godoc
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		h.failSignIn(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":   res.Token,
		"message": res.Message,
	})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the creator reference read from the caller's token.
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"creator": middleware.GetCreator(c)})
}

func (h *AuthHandler) failSignIn(c *gin.Context, err error) {
	var serverErr *remote.ServerError
	switch {
	case errors.As(err, &serverErr) && serverErr.StatusCode < http.StatusInternalServerError:
		response.FailWithMessage(c, http.StatusUnauthorized, response.ErrInvalidCredentials, remote.Message(err))
	case errors.Is(err, service.ErrTokenMalformed):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrUpstream, "The question service returned no usable token")
	default:
		failFromError(c, h.log, err)
	}
}
