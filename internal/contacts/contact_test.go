// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contacts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/addressbook/internal/contacts"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad fixture date %q: %v", value, err)
	}
	return parsed
}

/*
TestInBirthdayWindow checks the MM-DD comparison, including a window that
crosses New Year.
*/
func TestInBirthdayWindow(t *testing.T) {
	tests := []struct {
		name     string
		birthday string
		from     string
		to       string
		want     bool
	}{
		{"inside, birth year ignored", "1990-06-03", "2026-06-01", "2026-06-08", true},
		{"first day inclusive", "1985-06-01", "2026-06-01", "2026-06-08", true},
		{"last day inclusive", "1985-06-08", "2026-06-01", "2026-06-08", true},
		{"day after window", "1985-06-09", "2026-06-01", "2026-06-08", false},
		{"wrap, december side", "1970-12-30", "2026-12-28", "2027-01-04", true},
		{"wrap, january side", "1970-01-02", "2026-12-28", "2027-01-04", true},
		{"wrap, outside", "1970-01-10", "2026-12-28", "2027-01-04", false},
		{"wrap, before start", "1970-12-20", "2026-12-28", "2027-01-04", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contacts.InBirthdayWindow(date(t, tt.birthday), date(t, tt.from), date(t, tt.to))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBirthdayLess_WrapsAroundNewYear(t *testing.T) {
	from := date(t, "2026-12-28")

	assert.True(t, contacts.BirthdayLess(date(t, "1990-12-31"), date(t, "1990-01-02"), from))
	assert.False(t, contacts.BirthdayLess(date(t, "1990-01-02"), date(t, "1990-12-31"), from))
	assert.True(t, contacts.BirthdayLess(date(t, "1990-01-01"), date(t, "1980-01-03"), from))
}

func TestPatch_Apply(t *testing.T) {
	info := "met at conference"
	existing := &contacts.Contact{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		PhoneNumber:    "+44 20 7946 0000",
		Birthday:       date(t, "1815-12-10"),
		AdditionalInfo: &info,
	}

	newEmail := "ada@analytical.engine"
	input := contacts.Patch{Email: &newEmail}.Apply(existing)

	assert.Equal(t, "Ada", input.FirstName)
	assert.Equal(t, newEmail, input.Email)
	assert.Equal(t, "1815-12-10", input.Birthday)
	assert.Equal(t, &info, input.AdditionalInfo)
}
