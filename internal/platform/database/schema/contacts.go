// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// ContactsTable represents the 'contacts' table
type ContactsTable struct {
	Table          string
	ID             string
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Birthday       string
	AdditionalInfo string
	UserID         string
	CreatedAt      string
	UpdatedAt      string
	// Per-owner email uniqueness
	UserEmailKey string
}

// Contacts is the schema definition for contacts
var Contacts = ContactsTable{
	Table:          "contacts",
	ID:             "id",
	FirstName:      "first_name",
	LastName:       "last_name",
	Email:          "email",
	PhoneNumber:    "phone_number",
	Birthday:       "birthday",
	AdditionalInfo: "additional_info",
	UserID:         "user_id",
	CreatedAt:      "created_at",
	UpdatedAt:      "updated_at",
	UserEmailKey:   "contacts_user_id_email_key",
}

// Columns returns all standard column names in scan order
func (t ContactsTable) Columns() []string {
	return []string{
		t.ID, t.FirstName, t.LastName, t.Email, t.PhoneNumber, t.Birthday,
		t.AdditionalInfo, t.UserID, t.CreatedAt, t.UpdatedAt,
	}
}
