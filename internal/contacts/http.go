// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contacts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/addressbook/internal/platform/request"
	"github.com/taibuivan/addressbook/internal/platform/respond"
	"github.com/taibuivan/addressbook/pkg/pagination"
)

// Handler implements the HTTP layer for the address book.
type Handler struct {
	service      *Service
	authenticate func(http.Handler) http.Handler
}

// NewHandler constructs a new contact [Handler].
// authenticate must attach the caller's identity (normally auth.Guard.Authenticate).
func NewHandler(service *Service, authenticate func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, authenticate: authenticate}
}

// Routes returns a [chi.Router] for everything mounted under /api/contacts.
//
// # Endpoints
//   - GET    /                   : Paginated list (limit, offset).
//   - POST   /                   : Create.
//   - GET    /search             : Search by name or email (?query=).
//   - GET    /upcoming_birthdays : Birthdays in the next 7 days.
//   - GET    /{id}               : Fetch one.
//   - PUT    /{id}               : Partial update.
//   - DELETE /{id}               : Remove.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.authenticate)

	router.Get("/", handler.list)
	router.Post("/", handler.create)
	router.Get("/search", handler.search)
	router.Get("/upcoming_birthdays", handler.upcomingBirthdays)
	router.Get("/{id}", handler.get)
	router.Put("/{id}", handler.update)
	router.Delete("/{id}", handler.delete)

	return router
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := pagination.FromRequest(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contacts, err := handler.service.List(request.Context(), userID, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, NewResponses(contacts), pagination.NewMeta(page, len(contacts)))
}

/*
POST /api/contacts.

Response:
  - 201: Response
  - 400: Validation failure
  - 409: The caller already has a contact with this email
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input Input
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	contact, err := handler.service.Create(request.Context(), userID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, NewResponse(contact))
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	userID, contactID, err := ownerAndID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contact, err := handler.service.Get(request.Context(), userID, contactID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, NewResponse(contact))
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	userID, contactID, err := ownerAndID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var patch Patch
	if err := requestutil.DecodeJSON(request, &patch); err != nil {
		respond.Error(writer, request, err)
		return
	}

	contact, err := handler.service.Update(request.Context(), userID, contactID, patch)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, NewResponse(contact))
}

func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	userID, contactID, err := ownerAndID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), userID, contactID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contacts, err := handler.service.Search(request.Context(), userID, request.URL.Query().Get(FieldQuery))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, NewResponses(contacts))
}

func (handler *Handler) upcomingBirthdays(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	contacts, err := handler.service.UpcomingBirthdays(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, NewResponses(contacts))
}

func ownerAndID(request *http.Request) (int64, int64, error) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		return 0, 0, err
	}

	contactID, err := requestutil.Int64Param(request, "id")
	if err != nil {
		return 0, 0, err
	}
	return userID, contactID, nil
}
