package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"gatepass/internal/config"
	"gatepass/internal/identity"
	"gatepass/internal/store"
)

// Seed provisions student and staff accounts from a JSON file and prints the
// generated one-time credentials. Account management is deliberately not an
// API surface; this tool is how accounts get created.
//
// Input format:
//
//	{
//	  "students": [{"name": "...", "room": "A-101", "phone": "..."}],
//	  "staff":    [{"name": "...", "role": "guard", "shift": "night"}]
//	}
type seedFile struct {
	Students []struct {
		Name  string `json:"name"`
		Room  string `json:"room"`
		Phone string `json:"phone"`
	} `json:"students"`
	Staff []struct {
		Name        string `json:"name"`
		Mobile      string `json:"mobile"`
		Email       string `json:"email"`
		Role        string `json:"role"`
		Shift       string `json:"shift"`
		Address     string `json:"address"`
		JoiningDate string `json:"joiningDate"`
	} `json:"staff"`
}

func main() {
	filePath := flag.String("file", "seed.json", "path to the accounts JSON file")
	flag.Parse()

	cfg := config.Load()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read %s: %v", *filePath, err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		log.Fatalf("parse %s: %v", *filePath, err)
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	for _, s := range seed.Students {
		if s.Name == "" || s.Room == "" {
			log.Printf("skipping student with missing name/room: %+v", s)
			continue
		}
		id, password, err := insertStudent(ctx, db.Client, s.Name, s.Room, s.Phone)
		if err != nil {
			log.Printf("student %q: %v", s.Name, err)
			continue
		}
		fmt.Printf("student  %-20s id=%s password=%s\n", s.Name, id, password)
	}

	for _, s := range seed.Staff {
		if s.Name == "" || s.Role == "" {
			log.Printf("skipping staff with missing name/role: %+v", s)
			continue
		}
		id, password, err := insertStaff(ctx, db.Client, s.Name, s.Mobile, s.Email, s.Role, s.Shift, s.Address, s.JoiningDate)
		if err != nil {
			log.Printf("staff %q: %v", s.Name, err)
			continue
		}
		fmt.Printf("staff    %-20s id=%s password=%s\n", s.Name, id, password)
	}
}

func insertStudent(ctx context.Context, db *sql.DB, name, room, phone string) (string, string, error) {
	password := genPassword()
	hash, err := identity.HashPassword(password)
	if err != nil {
		return "", "", err
	}
	// A 4-digit suffix can collide; retry with a fresh id a few times.
	for attempt := 0; attempt < 5; attempt++ {
		id := genID("STU")
		_, err = db.ExecContext(ctx, `
			INSERT INTO students (student_id, name, room, phone, password_hash)
			VALUES ($1,$2,$3,$4,$5)
		`, id, name, room, phone, hash)
		if err == nil {
			return id, password, nil
		}
	}
	return "", "", err
}

func insertStaff(ctx context.Context, db *sql.DB, name, mobile, email, role, shift, address, joiningDate string) (string, string, error) {
	password := genPassword()
	hash, err := identity.HashPassword(password)
	if err != nil {
		return "", "", err
	}
	prefix := "WRD"
	if role == "guard" {
		prefix = "GRD"
	}
	for attempt := 0; attempt < 5; attempt++ {
		id := genID(prefix)
		_, err = db.ExecContext(ctx, `
			INSERT INTO staff_users (user_id, password_hash, name, mobile, email, role, shift, address, joining_date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, id, hash, name, mobile, email, role, shift, address, joiningDate)
		if err == nil {
			return id, password, nil
		}
	}
	return "", "", err
}

func genID(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, 1000+rand.Intn(9000))
}

func genPassword() string {
	return fmt.Sprintf("PW%d", 1000+rand.Intn(9000))
}
