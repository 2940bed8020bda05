// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contacts

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/taibuivan/addressbook/internal/platform/validate"
	"github.com/taibuivan/addressbook/pkg/pagination"
	"github.com/taibuivan/addressbook/pkg/pointer"
)

// Service holds the address book business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new contact [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the time source used for the birthday window.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// List returns a window of the owner's contacts.
func (service *Service) List(context context.Context, userID int64, page pagination.Params) ([]*Contact, error) {
	return service.repo.List(context, userID, page.Limit, page.Offset)
}

// Get returns one contact of the owner.
func (service *Service) Get(context context.Context, userID, id int64) (*Contact, error) {
	return service.repo.FindByID(context, userID, id)
}

/*
Create validates and persists a new contact for the owner.

Parameters:
  - context: context.Context
  - userID: int64 (owner)
  - input: Input

Returns:
  - *Contact: Persisted entity
  - error: Validation errors, ErrContactExists or persistence failures
*/
func (service *Service) Create(context context.Context, userID int64, input Input) (*Contact, error) {
	contact, err := buildContact(input)
	if err != nil {
		return nil, err
	}
	contact.UserID = userID

	if err := service.repo.Create(context, contact); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "contact_created",
		slog.Int64("user_id", userID),
		slog.Int64("contact_id", contact.ID),
	)
	return contact, nil
}

/*
Update applies a partial change to an existing contact.

Description: The patch is layered over the stored row and the merged result is
validated as a whole, so a PUT with a single field behaves like a PATCH.
*/
func (service *Service) Update(context context.Context, userID, id int64, patch Patch) (*Contact, error) {
	existing, err := service.repo.FindByID(context, userID, id)
	if err != nil {
		return nil, err
	}

	contact, err := buildContact(patch.Apply(existing))
	if err != nil {
		return nil, err
	}
	contact.ID = existing.ID
	contact.UserID = existing.UserID
	contact.CreatedAt = existing.CreatedAt

	if err := service.repo.Update(context, contact); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "contact_updated",
		slog.Int64("user_id", userID),
		slog.Int64("contact_id", id),
	)
	return contact, nil
}

// Delete removes one contact of the owner.
func (service *Service) Delete(context context.Context, userID, id int64) error {
	if err := service.repo.Delete(context, userID, id); err != nil {
		return err
	}

	service.logger.WarnContext(context, "contact_deleted",
		slog.Int64("user_id", userID),
		slog.Int64("contact_id", id),
	)
	return nil
}

// Search finds the owner's contacts by first name, last name or email.
func (service *Service) Search(context context.Context, userID int64, query string) ([]*Contact, error) {
	query = strings.TrimSpace(query)

	validator := &validate.Validator{}
	validator.Required(FieldQuery, query).MaxLen(FieldQuery, query, EmailMaxLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	return service.repo.Search(context, userID, query)
}

// UpcomingBirthdays lists contacts whose birthday falls within the next [BirthdayWindow], today included.
func (service *Service) UpcomingBirthdays(context context.Context, userID int64) ([]*Contact, error) {
	from := service.now()
	to := from.Add(BirthdayWindow)

	contacts, err := service.repo.Birthdays(context, userID, from, to)
	if err != nil {
		return nil, err
	}

	// Repositories already order; this keeps the contract for ones that cannot.
	sort.SliceStable(contacts, func(i, j int) bool {
		return BirthdayLess(contacts[i].Birthday, contacts[j].Birthday, from)
	})
	return contacts, nil
}

// buildContact validates input and converts it into an unsaved entity.
func buildContact(input Input) (*Contact, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Birthday = strings.TrimSpace(input.Birthday)

	validator := &validate.Validator{}
	validator.Required(FieldFirstName, input.FirstName).
		MinLen(FieldFirstName, input.FirstName, NameMinLen).
		MaxLen(FieldFirstName, input.FirstName, NameMaxLen).
		Required(FieldLastName, input.LastName).
		MinLen(FieldLastName, input.LastName, NameMinLen).
		MaxLen(FieldLastName, input.LastName, NameMaxLen).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, EmailMaxLen).
		Required(FieldPhoneNumber, input.PhoneNumber).
		MinLen(FieldPhoneNumber, input.PhoneNumber, PhoneMinLen).
		MaxLen(FieldPhoneNumber, input.PhoneNumber, PhoneMaxLen).
		Phone(FieldPhoneNumber, input.PhoneNumber).
		Required(FieldBirthday, input.Birthday).
		Date(FieldBirthday, input.Birthday).
		MaxLen(FieldAdditionalInfo, pointer.Val(input.AdditionalInfo), AdditionalInfoMaxLen)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Already validated by Date above.
	birthday, _ := time.Parse(validate.DateLayout, input.Birthday)

	return &Contact{
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		Birthday:       birthday,
		AdditionalInfo: input.AdditionalInfo,
	}, nil
}
