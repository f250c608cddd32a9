package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("row not found")

	// ErrConflict is returned when the appointment exclusion constraint
	// rejects an overlapping insert. It is the database-side backstop for
	// the application-level conflict recheck.
	ErrConflict = errors.New("overlapping appointment rejected")
)

// StoreError wraps any other failure from the underlying record store
// (network, auth, SQL). Callers apply their own retry/backoff policy.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// pg error codes: 23P01 exclusion_violation, 23505 unique_violation.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
		return ErrConflict
	}
	return &StoreError{Op: op, Err: err}
}
