// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package data ships the SQL migrations inside the binary.
package data

import "embed"

// Migrations holds the golang-migrate files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
