package repository

import "errors"

// ErrNotFound is returned when a record with the requested key does not exist.
var ErrNotFound = errors.New("not found")
