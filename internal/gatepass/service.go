package gatepass

import (
	"context"
	"errors"
	"time"
)

// Record statuses.
const (
	StatusOut = "OUT"
	StatusIn  = "IN"
)

// Expected negative outcomes. Handlers turn these into ordinary
// {"success":false} responses, never server errors.
var (
	ErrStudentNotFound = errors.New("student not found")
	ErrAlreadyOut      = errors.New("student already outside")
	ErrNoActiveExit    = errors.New("no active exit")
	ErrRecordNotFound  = errors.New("record not found")
)

// ExitRecord is the ledger entry for one exit/entry cycle. Name and room are
// snapshotted at exit time on purpose: the record stays a faithful historical
// artifact even if the student later changes rooms.
type ExitRecord struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"studentId"`
	Name           string     `json:"name"`
	Room           string     `json:"room"`
	Reason         string     `json:"reason"`
	ReasonCategory Category   `json:"reasonCategory"`
	AllowedMinutes int        `json:"allowedMinutes"`
	Status         string     `json:"status"`
	ExitTime       time.Time  `json:"exitTime"`
	EntryTime      *time.Time `json:"entryTime,omitempty"`
	LateReturn     bool       `json:"lateReturn"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Verification is the reduced view returned to a scanning party. It is built
// from the live record, so it reflects entry once one has been recorded.
type Verification struct {
	Valid    bool       `json:"valid"`
	Student  string     `json:"student,omitempty"`
	Room     string     `json:"room,omitempty"`
	Status   string     `json:"status,omitempty"`
	ExitTime *time.Time `json:"exitTime,omitempty"`
}

// Store persists exit records. The open-exit insert and the close are single
// atomic operations so concurrent requests for the same student cannot stack
// open records or double-close one.
type Store interface {
	InsertRecord(ctx context.Context, rec ExitRecord) (ExitRecord, error)
	CloseLatestOpen(ctx context.Context, studentID string, entryTime time.Time) (ExitRecord, error)
	ListOpen(ctx context.Context) ([]ExitRecord, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	GetRecord(ctx context.Context, id string) (ExitRecord, error)
}

// StudentDirectory resolves a student's identity snapshot at exit time.
// A nil result with nil error means the student does not exist.
type StudentDirectory interface {
	FindStudent(ctx context.Context, studentID string) (name, room string, found bool, err error)
}

// Service is the exit/entry ledger.
type Service struct {
	store    Store
	students StudentDirectory
	loc      *time.Location
}

// NewService creates the ledger over a store and a student directory.
// Day boundaries for CountToday are computed in loc.
func NewService(store Store, students StudentDirectory, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, students: students, loc: loc}
}

// RecordExit classifies the reason, snapshots the student's identity and opens
// an OUT record. A missing or unknown student yields ErrStudentNotFound; a
// student who is already outside yields ErrAlreadyOut.
func (s *Service) RecordExit(ctx context.Context, studentID, reason string) (ExitRecord, error) {
	if studentID == "" {
		return ExitRecord{}, ErrStudentNotFound
	}
	name, room, found, err := s.students.FindStudent(ctx, studentID)
	if err != nil {
		return ExitRecord{}, err
	}
	if !found {
		return ExitRecord{}, ErrStudentNotFound
	}

	policy := Classify(reason)
	rec := ExitRecord{
		StudentID:      studentID,
		Name:           name,
		Room:           room,
		Reason:         reason,
		ReasonCategory: policy.Category,
		AllowedMinutes: policy.AllowedMinutes,
		Status:         StatusOut,
		ExitTime:       time.Now(),
	}
	return s.store.InsertRecord(ctx, rec)
}

// RecordEntry closes the most recent OUT record for the student, setting the
// entry time and the late-return flag. ErrNoActiveExit when nothing is open.
func (s *Service) RecordEntry(ctx context.Context, studentID string) (ExitRecord, error) {
	if studentID == "" {
		return ExitRecord{}, ErrNoActiveExit
	}
	return s.store.CloseLatestOpen(ctx, studentID, time.Now())
}

// ListOutside returns every open record, most recent exit first. The list is
// recomputed from the store on each call.
func (s *Service) ListOutside(ctx context.Context) ([]ExitRecord, error) {
	return s.store.ListOpen(ctx)
}

// CountToday counts exits since midnight in the configured timezone.
func (s *Service) CountToday(ctx context.Context) (int, error) {
	now := time.Now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return s.store.CountSince(ctx, dayStart)
}

// Get returns the full record by id.
func (s *Service) Get(ctx context.Context, id string) (ExitRecord, error) {
	if id == "" {
		return ExitRecord{}, ErrRecordNotFound
	}
	return s.store.GetRecord(ctx, id)
}

// Verify returns the reduced verification view for a scanned pass.
func (s *Service) Verify(ctx context.Context, id string) (Verification, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Verification{Valid: false}, nil
		}
		return Verification{}, err
	}
	exit := rec.ExitTime
	return Verification{
		Valid:    true,
		Student:  rec.Name,
		Room:     rec.Room,
		Status:   rec.Status,
		ExitTime: &exit,
	}, nil
}

// IsLateReturn reports whether an entry at entryTime against an exit at
// exitTime blew the allowed budget. Minutes are real-valued and the
// comparison is strict: returning exactly on the limit is on time.
func IsLateReturn(exitTime, entryTime time.Time, allowedMinutes int) bool {
	elapsed := entryTime.Sub(exitTime).Minutes()
	return elapsed > float64(allowedMinutes)
}
