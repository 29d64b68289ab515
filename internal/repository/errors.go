package repository

import "errors"

// ErrNotFound is returned when a lookup by natural key matches no row.
var ErrNotFound = errors.New("record not found")
