// Package reviewcache implements the content-addressed cache of §4.G: a
// lookup keyed on (filename, file SHA, rule-id set) plus per-visited-file
// freshness tokens, backed by sqlite and golang-migrate.
package reviewcache

import "embed"

// migrationFiles is the embedded set of golang-migrate migration files
// applied on Open.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS
