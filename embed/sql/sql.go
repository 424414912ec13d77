package sql

import _ "embed"

// Schema creates the key-value table the board state lives in.
//
//go:embed schema.sql
var Schema string
