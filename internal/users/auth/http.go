// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/addressbook/internal/platform/middleware"
	requestutil "github.com/taibuivan/addressbook/internal/platform/request"
	"github.com/taibuivan/addressbook/internal/platform/respond"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the session endpoints mounted under /api/auth.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with session routes.
//
// # Endpoints
//   - POST /register : Creates an unconfirmed account.
//   - POST /login    : Exchanges form credentials for a token pair.
//   - POST /refresh  : Rotates a refresh token.
//   - POST /logout   : Revokes the bearer and the supplied refresh token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	return router
}

// # Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserResponse is the public projection of an account.
type UserResponse struct {
	ID       int64        `json:"id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Avatar   *string      `json:"avatar"`
	Role     sec.UserRole `json:"role"`
}

// NewUserResponse projects user into its public shape.
func NewUserResponse(user *User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Avatar:   user.Avatar,
		Role:     user.Role,
	}
}

// ValidatePassword applies the password length rules to field.
func ValidatePassword(validator *validate.Validator, field, password string) *validate.Validator {
	return validator.Required(field, password).
		MinLen(field, password, PasswordMinLen).
		MaxLen(field, password, PasswordMaxLen)
}

/*
Register handles the creation of a new account.

POST /api/auth/register

Request:
  - Body: registerRequest (Username, Email, Password)

Response:
  - 201: UserResponse
  - 400: Bad input or validation failure
  - 409: Username or email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, UsernameMinLen).
		MaxLen(FieldUsername, input.Username, UsernameMaxLen).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email)
	ValidatePassword(validator, FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Host:     requestutil.BaseURL(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, NewUserResponse(user))
}

/*
Login authenticates a user with form-encoded credentials.

POST /api/auth/login

Request:
  - Form: username, password (application/x-www-form-urlencoded)

Response:
  - 200: TokenPair
  - 401: Incorrect credentials or unconfirmed email
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	username := request.PostForm.Get(FieldUsername)
	password := request.PostForm.Get(FieldPassword)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, username).Required(FieldPassword, password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	pair, err := handler.authService.Login(request.Context(), LoginInput{
		Username:  username,
		Password:  password,
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
Refresh spends a refresh token and returns a new pair.

POST /api/auth/refresh

Response:
  - 200: TokenPair
  - 401: Unknown, expired, revoked or already-spent token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "This field is required"))
		return
	}

	pair, err := handler.authService.Refresh(
		request.Context(),
		input.RefreshToken,
		middleware.RealIP(request),
		request.UserAgent(),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

/*
Logout terminates the session identified by the bearer and refresh tokens.

POST /api/auth/logout

Request:
  - Header: Authorization: Bearer <access token>
  - Body: refreshRequest

Response:
  - 204: Both credentials revoked
  - 401: Missing bearer, invalid tokens or tokens from different users
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	accessToken, err := requestutil.BearerToken(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "This field is required"))
		return
	}

	if err := handler.authService.Logout(request.Context(), accessToken, input.RefreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
