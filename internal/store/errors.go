package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a uniqueness constraint is violated at
// commit time (duplicate username, duplicate content checksum).
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a record is not in the state required
// for the attempted transition (approval or annotation already decided).
var ErrInvalidState = errors.New("invalid state")

const pqUniqueViolation = "23505"

// translateUnique maps a postgres unique_violation onto ErrConflict so
// callers never see raw driver errors for constraint races.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrConflict
	}
	return err
}
