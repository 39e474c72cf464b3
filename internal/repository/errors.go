// Package repository implements persistence for events and availability responses.
// PostgreSQL (pgx, no ORM) backs production; SQLite backs local development and tests.
package repository

import "errors"

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateCode is returned when an event code is already taken.
var ErrDuplicateCode = errors.New("event code already in use")
