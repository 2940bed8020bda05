// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package contacts implements the per-user address book.

Every operation is scoped to the owning user's ID, so one account can never
read or touch another account's contacts. The owner comes from the identity
attached by the auth guard, never from the request body.
*/
package contacts

import (
	"time"

	"github.com/taibuivan/addressbook/internal/platform/apperr"
	"github.com/taibuivan/addressbook/internal/platform/i18n"
	"github.com/taibuivan/addressbook/internal/platform/validate"
	"github.com/taibuivan/addressbook/pkg/pointer"
)

// # Domain Entities

// Contact is a single address book entry.
type Contact struct {
	ID             int64
	UserID         int64
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Birthday       time.Time
	AdditionalInfo *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Response is the public JSON shape of a [Contact]. Birthdays travel as YYYY-MM-DD.
type Response struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	Birthday       string    `json:"birthday"`
	AdditionalInfo *string   `json:"additional_info"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewResponse projects contact into its public shape.
func NewResponse(contact *Contact) Response {
	return Response{
		ID:             contact.ID,
		FirstName:      contact.FirstName,
		LastName:       contact.LastName,
		Email:          contact.Email,
		PhoneNumber:    contact.PhoneNumber,
		Birthday:       contact.Birthday.Format(validate.DateLayout),
		AdditionalInfo: contact.AdditionalInfo,
		CreatedAt:      contact.CreatedAt,
		UpdatedAt:      contact.UpdatedAt,
	}
}

// NewResponses projects a slice; the result is never nil so lists encode as [].
func NewResponses(contacts []*Contact) []Response {
	responses := make([]Response, 0, len(contacts))
	for _, contact := range contacts {
		responses = append(responses, NewResponse(contact))
	}
	return responses
}

// # Inputs

// Input carries every field of a new contact.
type Input struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	PhoneNumber    string  `json:"phone_number"`
	Birthday       string  `json:"birthday"`
	AdditionalInfo *string `json:"additional_info"`
}

// Patch carries the fields of an update. Nil fields are left unchanged.
type Patch struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Email          *string `json:"email"`
	PhoneNumber    *string `json:"phone_number"`
	Birthday       *string `json:"birthday"`
	AdditionalInfo *string `json:"additional_info"`
}

// Apply returns the patch as a full [Input] layered over contact.
func (patch Patch) Apply(contact *Contact) Input {
	input := Input{
		FirstName:      contact.FirstName,
		LastName:       contact.LastName,
		Email:          contact.Email,
		PhoneNumber:    contact.PhoneNumber,
		Birthday:       contact.Birthday.Format(validate.DateLayout),
		AdditionalInfo: contact.AdditionalInfo,
	}

	input.FirstName = pointer.Fallback(patch.FirstName, input.FirstName)
	input.LastName = pointer.Fallback(patch.LastName, input.LastName)
	input.Email = pointer.Fallback(patch.Email, input.Email)
	input.PhoneNumber = pointer.Fallback(patch.PhoneNumber, input.PhoneNumber)
	input.Birthday = pointer.Fallback(patch.Birthday, input.Birthday)
	if patch.AdditionalInfo != nil {
		input.AdditionalInfo = patch.AdditionalInfo
	}
	return input
}

// # Field Identifiers

const (
	FieldFirstName      = "first_name"
	FieldLastName       = "last_name"
	FieldEmail          = "email"
	FieldPhoneNumber    = "phone_number"
	FieldBirthday       = "birthday"
	FieldAdditionalInfo = "additional_info"
	FieldQuery          = "query"
)

// # Constraints

const (
	NameMinLen           = 1
	NameMaxLen           = 50
	EmailMaxLen          = 100
	PhoneMinLen          = 7
	PhoneMaxLen          = 20
	AdditionalInfoMaxLen = 500

	// BirthdayWindow is how far ahead upcoming birthdays are looked for.
	BirthdayWindow = 7 * 24 * time.Hour
)

// # Errors

var (
	ErrContactNotFound = apperr.NotFound("Contact").WithReason("CONTACT_NOT_FOUND")
	ErrContactExists   = apperr.Conflict(i18n.MsgContactExists).WithReason("CONTACT_EXISTS")
)

// # Birthday Window

// dayKeyLayout orders dates within a year regardless of the year.
const dayKeyLayout = "01-02"

// DayKey renders the MM-DD of t.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// InBirthdayWindow reports whether birthday falls between from and to by month and day.
// A window that crosses New Year (from "12-29" to "01-05") wraps around.
func InBirthdayWindow(birthday, from, to time.Time) bool {
	day, start, end := DayKey(birthday), DayKey(from), DayKey(to)
	if start <= end {
		return day >= start && day <= end
	}
	return day >= start || day <= end
}

// BirthdayLess orders birthdays as they occur in a window starting at from,
// so December birthdays come before January ones when the window wraps.
func BirthdayLess(a, b, from time.Time) bool {
	start := DayKey(from)
	dayA, dayB := DayKey(a), DayKey(b)
	wrappedA, wrappedB := dayA < start, dayB < start
	if wrappedA != wrappedB {
		return !wrappedA
	}
	return dayA < dayB
}
