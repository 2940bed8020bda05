// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/addressbook/internal/platform/database/schema"
	"github.com/taibuivan/addressbook/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the contact [Repository].
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var contactColumns = schema.List(schema.Contacts.Columns()...)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	contact := &Contact{}
	err := row.Scan(
		&contact.ID,
		&contact.FirstName,
		&contact.LastName,
		&contact.Email,
		&contact.PhoneNumber,
		&contact.Birthday,
		&contact.AdditionalInfo,
		&contact.UserID,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// mapWriteError turns the per-owner email constraint into [ErrContactExists].
func mapWriteError(err error, action string) error {
	if dberr.IsUniqueViolation(err) && dberr.ConstraintName(err) == schema.Contacts.UserEmailKey {
		return ErrContactExists
	}
	return dberr.Wrap(err, action)
}

func (repository *PostgresRepository) List(context context.Context, userID int64, limit, offset int) ([]*Contact, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s LIMIT $2 OFFSET $3`,
		contactColumns, schema.Contacts.Table, schema.Contacts.UserID, schema.Contacts.ID,
	)
	return repository.query(context, "list_contacts", query, userID, limit, offset)
}

func (repository *PostgresRepository) FindByID(context context.Context, userID, id int64) (*Contact, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		contactColumns, schema.Contacts.Table, schema.Contacts.ID, schema.Contacts.UserID,
	)

	contact, err := scanContact(repository.pool.QueryRow(context, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, dberr.Wrap(err, "get_contact")
	}
	return contact, nil
}

/*
Create persists a new contact for its owner.

Parameters:
  - context: context.Context
  - contact: *Contact (UserID must be set)

Returns:
  - error: ErrContactExists or persistence failures
*/
func (repository *PostgresRepository) Create(context context.Context, contact *Contact) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s, %s, %s`,
		schema.Contacts.Table,
		schema.Contacts.FirstName, schema.Contacts.LastName, schema.Contacts.Email,
		schema.Contacts.PhoneNumber, schema.Contacts.Birthday, schema.Contacts.AdditionalInfo,
		schema.Contacts.UserID,
		schema.Contacts.ID, schema.Contacts.CreatedAt, schema.Contacts.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.PhoneNumber,
		contact.Birthday,
		contact.AdditionalInfo,
		contact.UserID,
	).Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		return mapWriteError(err, "create_contact")
	}
	return nil
}

func (repository *PostgresRepository) Update(context context.Context, contact *Contact) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = NOW()
		WHERE %s = $1 AND %s = $2
		RETURNING %s`,
		schema.Contacts.Table,
		schema.Contacts.FirstName, schema.Contacts.LastName, schema.Contacts.Email,
		schema.Contacts.PhoneNumber, schema.Contacts.Birthday, schema.Contacts.AdditionalInfo,
		schema.Contacts.UpdatedAt,
		schema.Contacts.ID, schema.Contacts.UserID,
		schema.Contacts.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		contact.ID,
		contact.UserID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.PhoneNumber,
		contact.Birthday,
		contact.AdditionalInfo,
	).Scan(&contact.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrContactNotFound
		}
		return mapWriteError(err, "update_contact")
	}
	return nil
}

func (repository *PostgresRepository) Delete(context context.Context, userID, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.Contacts.Table, schema.Contacts.ID, schema.Contacts.UserID,
	)

	cmd, err := repository.pool.Exec(context, query, id, userID)
	if err != nil {
		return dberr.Wrap(err, "delete_contact")
	}

	if cmd.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (repository *PostgresRepository) Search(context context.Context, userID int64, term string) ([]*Contact, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND (%s ILIKE $2 OR %s ILIKE $2 OR %s ILIKE $2)
		ORDER BY %s`,
		contactColumns, schema.Contacts.Table,
		schema.Contacts.UserID,
		schema.Contacts.FirstName, schema.Contacts.LastName, schema.Contacts.Email,
		schema.Contacts.ID,
	)
	return repository.query(context, "search_contacts", query, userID, "%"+escapeLike(term)+"%")
}

/*
Birthdays compares birthdays on their MM-DD rendering.

Description: When the window wraps past New Year the range becomes
"on or after from OR on or before to". Ordering puts the not-yet-wrapped
days first, so late-December birthdays precede early-January ones.
*/
func (repository *PostgresRepository) Birthdays(context context.Context, userID int64, from, to time.Time) ([]*Contact, error) {
	dayKey := fmt.Sprintf(`to_char(%s, 'MM-DD')`, schema.Contacts.Birthday)

	operator := "AND"
	if DayKey(from) > DayKey(to) {
		operator = "OR"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND (%s >= $2 %s %s <= $3)
		ORDER BY (%s < $2), %s`,
		contactColumns, schema.Contacts.Table,
		schema.Contacts.UserID, dayKey, operator, dayKey,
		dayKey, dayKey,
	)
	return repository.query(context, "upcoming_birthdays", query, userID, DayKey(from), DayKey(to))
}

func (repository *PostgresRepository) query(context context.Context, action, query string, args ...any) ([]*Contact, error) {
	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, action)
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, dberr.Wrap(err, action)
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, action)
	}
	return contacts, nil
}

// escapeLike makes %, _ and \ match literally inside an ILIKE pattern.
func escapeLike(term string) string {
	escaped := make([]rune, 0, len(term))
	for _, r := range term {
		if r == '%' || r == '_' || r == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	return string(escaped)
}

var _ Repository = (*PostgresRepository)(nil)
