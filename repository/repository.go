package repository

import "errors"

// ErrNotFound is returned when a referenced record no longer exists,
// e.g. because another actor deleted it concurrently
var ErrNotFound = errors.New("not found")
