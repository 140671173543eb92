package postgres

import _ "embed"

// Schema creates the three read tables. The API never runs it; the
// integration tests apply it to a scratch schema.
//
//go:embed schema.sql
var Schema string
