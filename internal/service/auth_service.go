package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/remote"
)

// Common auth errors.
var (
	ErrTokenMalformed = errors.New("bearer token is not a readable JWT")
	ErrNoIdentity     = errors.New("bearer token carries no user identity")
)

// Claims are the identity fields the question service puts in its tokens.
// Signatures are checked by that service, not here.
type Claims struct {
	jwt.RegisteredClaims
	TeacherID string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Creator returns who the token belongs to.
func (c *Claims) Creator() (model.Creator, error) {
	id := c.TeacherID
	if id == "" {
		id = c.Subject
	}
	if id == "" {
		return model.Creator{}, ErrNoIdentity
	}
	name := c.Name
	if name == "" {
		name = c.Email
	}
	return model.Creator{ID: id, Name: name}, nil
}

// Authenticator is the part of the remote client used for sign-in.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*remote.LoginResult, error)
	Signup(ctx context.Context, req model.SignupRequest) (*remote.LoginResult, error)
}

// AuthService delegates credentials to the remote service and reads the
// caller's identity from the bearer token.
type AuthService struct {
	remote Authenticator
	parser *jwt.Parser
	log    zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(remote Authenticator, log zerolog.Logger) *AuthService {
	return &AuthService{
		remote: remote,
		parser: jwt.NewParser(),
		log:    log.With().Str("component", "auth_service").Logger(),
	}
}

// Login exchanges credentials for a bearer token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*remote.LoginResult, error) {
	res, err := s.remote.Login(ctx, req.Email, req.Password)
	if err != nil {
		s.log.Warn().Str("email", req.Email).Str("reason", remote.Message(err)).Msg("Login rejected")
		return nil, err
	}
	if res.Token == "" {
		return nil, fmt.Errorf("log in: %w", ErrTokenMalformed)
	}
	s.log.Info().Str("email", req.Email).Msg("Teacher logged in")
	return res, nil
}

// Signup registers a teacher account.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*remote.LoginResult, error) {
	res, err := s.remote.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("teacher_id", req.ID).Msg("Teacher signed up")
	return res, nil
}

// CreatorFromToken reads the creator reference from a bearer token without
// verifying it. Expiry is not checked either; the remote service rejects
// stale tokens on the next call.
func (s *AuthService) CreatorFromToken(token string) (model.Creator, error) {
	var claims Claims
	if _, _, err := s.parser.ParseUnverified(token, &claims); err != nil {
		return model.Creator{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	return claims.Creator()
}
