package gatepass

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateInsertErr(t *testing.T) {
	slot := &pgconn.PgError{Code: uniqueViolation, ConstraintName: openExitConstraint}
	if got := translateInsertErr(slot); got != ErrAlreadyOut {
		t.Fatalf("expected ErrAlreadyOut for the open-slot index, got %v", got)
	}
	if got := translateInsertErr(fmt.Errorf("insert: %w", slot)); got != ErrAlreadyOut {
		t.Fatalf("expected ErrAlreadyOut for a wrapped violation, got %v", got)
	}

	// A unique violation on a different constraint must not be mistaken for
	// a duplicate exit.
	pk := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "exit_records_pkey"}
	if got := translateInsertErr(pk); got != pk {
		t.Fatalf("expected pk violation to pass through, got %v", got)
	}

	plain := errors.New("connection reset")
	if got := translateInsertErr(plain); got != plain {
		t.Fatalf("expected unrelated error to pass through, got %v", got)
	}
}
