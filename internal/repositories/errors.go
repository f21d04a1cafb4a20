package repositories

import "errors"

// ErrNotFound is returned by lookups that expect exactly one row.
var ErrNotFound = errors.New("record not found")
