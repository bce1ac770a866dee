package gatepass

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation    = "23505"
	openExitConstraint = "uniq_open_exit"
)

// Repository persists exit records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, student_id, name, room, reason, reason_category, allowed_minutes, status, exit_time, entry_time, late_return, created_at`

// InsertRecord writes a new OUT record. The partial unique index on open
// records turns a concurrent duplicate exit into ErrAlreadyOut.
func (r *Repository) InsertRecord(ctx context.Context, rec ExitRecord) (ExitRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ExitTime.IsZero() {
		rec.ExitTime = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusOut
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO exit_records (id, student_id, name, room, reason, reason_category, allowed_minutes, status, exit_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, rec.ID, rec.StudentID, rec.Name, rec.Room, rec.Reason, rec.ReasonCategory, rec.AllowedMinutes, rec.Status, rec.ExitTime)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return ExitRecord{}, translateInsertErr(err)
	}
	return rec, nil
}

// translateInsertErr maps a violation of the open-slot index to ErrAlreadyOut.
// Other violations (such as an id collision) pass through untouched.
func translateInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == openExitConstraint {
		return ErrAlreadyOut
	}
	return err
}

// CloseLatestOpen marks the newest OUT record for the student as IN in a
// single conditional update. The status guard in the WHERE clause means
// concurrent entries cannot both close the same record; the loser sees
// ErrNoActiveExit.
func (r *Repository) CloseLatestOpen(ctx context.Context, studentID string, entryTime time.Time) (ExitRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE exit_records
		SET status = $3,
		    entry_time = $2,
		    late_return = (EXTRACT(EPOCH FROM ($2::timestamptz - exit_time)) / 60.0) > allowed_minutes
		WHERE id = (
			SELECT id FROM exit_records
			WHERE student_id = $1 AND status = $4
			ORDER BY exit_time DESC
			LIMIT 1
		) AND status = $4
		RETURNING `+recordColumns+`
	`, studentID, entryTime, StatusIn, StatusOut)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExitRecord{}, ErrNoActiveExit
		}
		return ExitRecord{}, err
	}
	return rec, nil
}

// ListOpen returns all OUT records, most recent exit first.
func (r *Repository) ListOpen(ctx context.Context) ([]ExitRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM exit_records
		WHERE status = $1
		ORDER BY exit_time DESC
	`, StatusOut)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ExitRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// CountSince counts records whose exit time is at or after the given instant.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM exit_records WHERE exit_time >= $1
	`, since).Scan(&count)
	return count, err
}

// GetRecord returns a single record by id. Malformed ids are reported as
// not found rather than bubbling up a uuid cast error from Postgres.
func (r *Repository) GetRecord(ctx context.Context, id string) (ExitRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ExitRecord{}, ErrRecordNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM exit_records WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExitRecord{}, ErrRecordNotFound
		}
		return ExitRecord{}, err
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (ExitRecord, error) {
	var rec ExitRecord
	var entry sql.NullTime
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.Name, &rec.Room, &rec.Reason,
		&rec.ReasonCategory, &rec.AllowedMinutes, &rec.Status, &rec.ExitTime,
		&entry, &rec.LateReturn, &rec.CreatedAt)
	if err != nil {
		return ExitRecord{}, err
	}
	if entry.Valid {
		t := entry.Time
		rec.EntryTime = &t
	}
	return rec, nil
}
