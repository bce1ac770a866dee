package identity

import (
	"context"
	"database/sql"
	"errors"
)

// Expected negative outcomes of a login attempt.
var (
	ErrUnknownUser    = errors.New("user not found")
	ErrBadCredentials = errors.New("wrong password")
)

// User is the identity returned from a successful login.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// credentialSource abstracts the two account tables for the login check.
type credentialSource interface {
	studentCredentials(ctx context.Context, id string) (User, string, bool, error)
	staffCredentials(ctx context.Context, id string) (User, string, bool, error)
}

// Repository looks up students and staff in Postgres. Accounts are
// provisioned out of band (see cmd/seed); this package never mutates them.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindStudent resolves a student id to its name and room snapshot.
// found is false when no such student exists.
func (r *Repository) FindStudent(ctx context.Context, studentID string) (name, room string, found bool, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, room FROM students WHERE student_id = $1
	`, studentID)
	if err := row.Scan(&name, &room); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	return name, room, true, nil
}

// Login is a single stateless credential check.
func (r *Repository) Login(ctx context.Context, id, password string) (User, error) {
	return login(ctx, r, id, password)
}

// login checks students first, then staff, matching the id namespaces issued
// at provisioning time.
func login(ctx context.Context, src credentialSource, id, password string) (User, error) {
	user, hash, found, err := src.studentCredentials(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !found {
		user, hash, found, err = src.staffCredentials(ctx, id)
		if err != nil {
			return User{}, err
		}
		if !found {
			return User{}, ErrUnknownUser
		}
	}
	if CheckPassword(hash, password) != nil {
		return User{}, ErrBadCredentials
	}
	return user, nil
}

func (r *Repository) studentCredentials(ctx context.Context, id string) (User, string, bool, error) {
	var (
		user User
		hash string
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT student_id, name, role, password_hash FROM students WHERE student_id = $1
	`, id)
	if err := row.Scan(&user.ID, &user.Name, &user.Role, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, "", false, nil
		}
		return User{}, "", false, err
	}
	return user, hash, true, nil
}

func (r *Repository) staffCredentials(ctx context.Context, id string) (User, string, bool, error) {
	var (
		user User
		hash string
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, role, password_hash FROM staff_users WHERE user_id = $1
	`, id)
	if err := row.Scan(&user.ID, &user.Name, &user.Role, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, "", false, nil
		}
		return User{}, "", false, err
	}
	return user, hash, true, nil
}
