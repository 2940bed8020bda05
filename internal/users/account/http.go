// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/addressbook/internal/platform/i18n"
	requestutil "github.com/taibuivan/addressbook/internal/platform/request"
	"github.com/taibuivan/addressbook/internal/platform/respond"
	"github.com/taibuivan/addressbook/internal/platform/sec"
	"github.com/taibuivan/addressbook/internal/platform/validate"
	"github.com/taibuivan/addressbook/internal/users/auth"
)

// maxAvatarBytes caps multipart avatar uploads.
const maxAvatarBytes = 5 << 20

const (
	FieldFile            = "file"
	FieldCurrentPassword = "current_password"
)

// Handler implements the HTTP layer for account self-service.
type Handler struct {
	accountService *Service
	guard          *auth.Guard
	meLimit        func(http.Handler) http.Handler
}

// NewHandler constructs a new account [Handler].
// meLimit throttles GET /me; nil leaves it unthrottled.
func NewHandler(service *Service, guard *auth.Guard, meLimit func(http.Handler) http.Handler) *Handler {
	if meLimit == nil {
		meLimit = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{accountService: service, guard: guard, meLimit: meLimit}
}

// Routes returns a [chi.Router] for everything mounted under /api/users.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public email confirmation
	router.Get("/confirmed_email/{token}", handler.confirmEmail)
	router.Post("/request_email", handler.requestEmail)

	router.Group(func(r chi.Router) {
		r.Use(handler.guard.Authenticate)

		r.With(handler.meLimit).Get("/me", handler.getMe)
		r.Patch("/avatar", handler.updateAvatar)
		r.Post("/password", handler.changePassword)

		// Session Security
		r.Get("/sessions", handler.listSessions)
		r.Delete("/sessions/{id}", handler.revokeSession)

		// Role-gated
		r.With(handler.guard.RequireRoles(sec.ModeratorOrAdmin...)).Get("/moderator", handler.moderator)
		r.With(handler.guard.RequireRoles(sec.AdminOnly...)).Get("/admin", handler.admin)
	})

	return router
}

// PasswordRoutes returns the public password-recovery routes mounted under /api/auth/password.
func (handler *Handler) PasswordRoutes() chi.Router {
	router := chi.NewRouter()
	router.Post("/forgot", handler.forgotPassword)
	router.Post("/reset", handler.resetPassword)
	return router
}

// # Payloads

type emailRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func decodeEmail(request *http.Request) (string, error) {
	var input emailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return "", err
	}

	email := strings.TrimSpace(input.Email)
	validator := &validate.Validator{}
	validator.Required(auth.FieldEmail, email).Email(auth.FieldEmail, email)
	if err := validator.Err(); err != nil {
		return "", err
	}
	return email, nil
}

// # Profile Endpoints

/*
GET /api/users/me.

Description: Returns the authenticated account. Throttled per client IP.

Response:
  - 200: auth.UserResponse
  - 401: Authentication required
  - 429: Rate limit exceeded
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, auth.NewUserResponse(auth.UserFrom(request.Context())))
}

/*
PATCH /api/users/avatar.

Request:
  - multipart/form-data with a 'file' part

Response:
  - 200: auth.UserResponse with the new avatar URL
  - 400: Missing file
  - 503: Uploads not configured
*/
func (handler *Handler) updateAvatar(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxAvatarBytes)

	file, _, err := request.FormFile(FieldFile)
	if err != nil {
		respond.Error(writer, request, ErrAvatarMissing)
		return
	}
	defer file.Close()

	user, err := handler.accountService.UpdateAvatar(request.Context(), auth.UserFrom(request.Context()), file)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, auth.NewUserResponse(user))
}

func (handler *Handler) moderator(writer http.ResponseWriter, request *http.Request) {
	respond.Message(writer, request, i18n.MsgModeratorWelcome, auth.UserFrom(request.Context()).Username)
}

func (handler *Handler) admin(writer http.ResponseWriter, request *http.Request) {
	respond.Message(writer, request, i18n.MsgAdminWelcome, auth.UserFrom(request.Context()).Username)
}

// # Email Confirmation Endpoints

/*
GET /api/users/confirmed_email/{token}.

Response:
  - 200: {"message": "Email confirmed" | "Your email is already confirmed"}
  - 400: Verification error (account vanished)
  - 422: Wrong token
*/
func (handler *Handler) confirmEmail(writer http.ResponseWriter, request *http.Request) {
	outcome, err := handler.accountService.ConfirmEmail(request.Context(), requestutil.Param(request, auth.FieldToken))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, request, outcome)
}

/*
POST /api/users/request_email.

Request:
  - body: emailRequest

Response:
  - 200: {"message": "Check your email to confirm" | "Your email is already confirmed"}
*/
func (handler *Handler) requestEmail(writer http.ResponseWriter, request *http.Request) {
	email, err := decodeEmail(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.accountService.RequestEmail(request.Context(), email, requestutil.BaseURL(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, request, outcome)
}

// # Password Endpoints

/*
POST /api/users/password.

Request:
  - body: changePasswordRequest

Response:
  - 204: Password changed
  - 400: Wrong current password or validation failure
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword)
	auth.ValidatePassword(validator, auth.FieldNewPassword, input.NewPassword)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.accountService.ChangePassword(
		request.Context(),
		auth.UserFrom(request.Context()),
		input.CurrentPassword,
		input.NewPassword,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/auth/password/forgot.

Response:
  - 200: Generic "reset link sent" message, regardless of whether the account exists
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	email, err := decodeEmail(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RequestPasswordReset(request.Context(), email, requestutil.BaseURL(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, request, i18n.MsgResetSent)
}

/*
POST /api/auth/password/reset.

Response:
  - 200: Password updated
  - 422: Wrong or expired reset token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(auth.FieldToken, input.Token)
	auth.ValidatePassword(validator, auth.FieldNewPassword, input.NewPassword)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, request, i18n.MsgPasswordUpdated)
}

// # Session Security Endpoints

/*
GET /api/users/sessions.

Response:
  - 200: []SessionInfo
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
DELETE /api/users/sessions/{id}.

Response:
  - 204: Session revoked
  - 404: No active session with that id belongs to the caller
*/
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID, err := requestutil.Int64Param(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RevokeSession(request.Context(), userID, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
