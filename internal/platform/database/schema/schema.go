// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema is the column catalog of the tables created by data/migrations.
//
// Repositories build their SQL from these names so that a renamed column is a
// single edit here and in the migration.
package schema

import "strings"

// List joins column names for SELECT and RETURNING clauses.
func List(columns ...string) string {
	return strings.Join(columns, ", ")
}
