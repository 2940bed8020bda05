// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package contactstest provides an in-memory contact repository for tests.
package contactstest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/addressbook/internal/contacts"
)

// Repository is an in-memory [contacts.Repository] with the same owner
// scoping and uniqueness rules as the Postgres one.
type Repository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]contacts.Contact
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{rows: make(map[int64]contacts.Contact)}
}

func (repo *Repository) owned(userID int64) []*contacts.Contact {
	var owned []*contacts.Contact
	for _, row := range repo.rows {
		if row.UserID == userID {
			found := row
			owned = append(owned, &found)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	return owned
}

func (repo *Repository) emailTaken(contact *contacts.Contact) bool {
	for _, row := range repo.rows {
		if row.UserID == contact.UserID && row.ID != contact.ID && row.Email == contact.Email {
			return true
		}
	}
	return false
}

func (repo *Repository) List(_ context.Context, userID int64, limit, offset int) ([]*contacts.Contact, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	owned := repo.owned(userID)
	if offset >= len(owned) {
		return nil, nil
	}
	end := min(offset+limit, len(owned))
	return owned[offset:end], nil
}

func (repo *Repository) FindByID(_ context.Context, userID, id int64) (*contacts.Contact, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	row, ok := repo.rows[id]
	if !ok || row.UserID != userID {
		return nil, contacts.ErrContactNotFound
	}
	return &row, nil
}

func (repo *Repository) Create(_ context.Context, contact *contacts.Contact) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.emailTaken(contact) {
		return contacts.ErrContactExists
	}

	repo.nextID++
	contact.ID = repo.nextID
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = contact.CreatedAt
	repo.rows[contact.ID] = *contact
	return nil
}

func (repo *Repository) Update(_ context.Context, contact *contacts.Contact) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	row, ok := repo.rows[contact.ID]
	if !ok || row.UserID != contact.UserID {
		return contacts.ErrContactNotFound
	}
	if repo.emailTaken(contact) {
		return contacts.ErrContactExists
	}

	contact.UpdatedAt = time.Now()
	repo.rows[contact.ID] = *contact
	return nil
}

func (repo *Repository) Delete(_ context.Context, userID, id int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	row, ok := repo.rows[id]
	if !ok || row.UserID != userID {
		return contacts.ErrContactNotFound
	}
	delete(repo.rows, id)
	return nil
}

func (repo *Repository) Search(_ context.Context, userID int64, query string) ([]*contacts.Contact, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	needle := strings.ToLower(query)
	var matches []*contacts.Contact
	for _, row := range repo.owned(userID) {
		if strings.Contains(strings.ToLower(row.FirstName), needle) ||
			strings.Contains(strings.ToLower(row.LastName), needle) ||
			strings.Contains(strings.ToLower(row.Email), needle) {
			matches = append(matches, row)
		}
	}
	return matches, nil
}

func (repo *Repository) Birthdays(_ context.Context, userID int64, from, to time.Time) ([]*contacts.Contact, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var matches []*contacts.Contact
	for _, row := range repo.owned(userID) {
		if contacts.InBirthdayWindow(row.Birthday, from, to) {
			matches = append(matches, row)
		}
	}
	return matches, nil
}

var _ contacts.Repository = (*Repository)(nil)
