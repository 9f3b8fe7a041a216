// Package db embeds the database schema applied on startup.
package db

import _ "embed"

// Schema contains the DDL for the storefront tables. Statements are
// idempotent so the schema can be re-applied on every boot.
//
//go:embed migrations/001_schema.sql
var Schema string
