// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contacts

import (
	"context"
	"time"
)

// Repository defines the data access contract for contacts.
//
// Every method takes the owner's ID; a contact owned by someone else behaves
// exactly like one that does not exist.
type Repository interface {

	// List returns a window of the owner's contacts ordered by ID.
	List(context context.Context, userID int64, limit, offset int) ([]*Contact, error)

	/*
		FindByID returns one contact of the owner.

		Returns:
		  - *Contact: Hydrated entity
		  - error: ErrContactNotFound or retrieval failures
	*/
	FindByID(context context.Context, userID, id int64) (*Contact, error)

	/*
		Create persists a new contact and fills in its ID and timestamps.

		Returns:
		  - error: ErrContactExists when the owner already has this email
	*/
	Create(context context.Context, contact *Contact) error

	/*
		Update overwrites every mutable field of the contact and refreshes UpdatedAt.

		Returns:
		  - error: ErrContactNotFound, ErrContactExists or persistence failures
	*/
	Update(context context.Context, contact *Contact) error

	// Delete removes one contact of the owner, failing with ErrContactNotFound if absent.
	Delete(context context.Context, userID, id int64) error

	// Search matches first name, last name or email case-insensitively.
	Search(context context.Context, userID int64, query string) ([]*Contact, error)

	// Birthdays returns contacts whose birthday falls in [from, to] by month and day,
	// in the order they occur starting at from.
	Birthdays(context context.Context, userID int64, from, to time.Time) ([]*Contact, error)
}
