package identity

import (
	"context"
	"testing"
)

type account struct {
	user User
	hash string
}

// memCredentials backs the login check with in-memory account tables.
type memCredentials struct {
	students map[string]account
	staff    map[string]account
}

func (m *memCredentials) studentCredentials(_ context.Context, id string) (User, string, bool, error) {
	acct, ok := m.students[id]
	if !ok {
		return User{}, "", false, nil
	}
	return acct.user, acct.hash, true, nil
}

func (m *memCredentials) staffCredentials(_ context.Context, id string) (User, string, bool, error) {
	acct, ok := m.staff[id]
	if !ok {
		return User{}, "", false, nil
	}
	return acct.user, acct.hash, true, nil
}

func newTestCredentials(t *testing.T) *memCredentials {
	t.Helper()
	studentHash, err := HashPassword("PW1111")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	guardHash, err := HashPassword("PW2222")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	return &memCredentials{
		students: map[string]account{
			"STU1001": {User{ID: "STU1001", Name: "Asha Verma", Role: "student"}, studentHash},
		},
		staff: map[string]account{
			"GRD4821": {User{ID: "GRD4821", Name: "Mohan Singh", Role: "guard"}, guardHash},
		},
	}
}

func TestLoginStudent(t *testing.T) {
	src := newTestCredentials(t)
	user, err := login(context.Background(), src, "STU1001", "PW1111")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if user.ID != "STU1001" || user.Role != "student" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLoginStaffFallback(t *testing.T) {
	src := newTestCredentials(t)
	user, err := login(context.Background(), src, "GRD4821", "PW2222")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if user.ID != "GRD4821" || user.Role != "guard" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLoginUnknownID(t *testing.T) {
	src := newTestCredentials(t)
	if _, err := login(context.Background(), src, "STU9999", "PW1111"); err != ErrUnknownUser {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	src := newTestCredentials(t)
	if _, err := login(context.Background(), src, "STU1001", "PW0000"); err != ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials for student, got %v", err)
	}
	if _, err := login(context.Background(), src, "GRD4821", "PW0000"); err != ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials for staff, got %v", err)
	}
}
