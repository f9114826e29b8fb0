// Package testutil holds helpers shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/database"
	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// NewDB opens a migrated SQLite database under t.TempDir().
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketplace.db")
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Catalogue is a minimal set of rows most service tests start from.
type Catalogue struct {
	Admin       model.User
	Student     model.User
	Other       model.User
	Paid        model.Institution
	Free        model.Institution
	PaidProgram model.Program
	FreeProgram model.Program
}

// Seed inserts a Catalogue: one admin, two students, an institution with a
// 100.00 fee and one without a fee, each with one active program.
func Seed(t *testing.T, db *gorm.DB) Catalogue {
	t.Helper()
	c := Catalogue{
		Admin:   model.User{Email: "admin@example.com", PasswordHash: "x", FirstName: "Ada", LastName: "Admin", Role: model.RoleAdmin, IsActive: true},
		Student: model.User{Email: "student@example.com", PasswordHash: "x", FirstName: "Sam", LastName: "Student", Role: model.RoleStudent, IsActive: true},
		Other:   model.User{Email: "other@example.com", PasswordHash: "x", FirstName: "Olu", LastName: "Other", Role: model.RoleStudent, IsActive: true},
		Paid: model.Institution{
			Name: "University of Toronto", CountryCode: "CA", Country: "Canada", City: "Toronto",
			ApplicationFeeCents: 10000, IsActive: true,
		},
		Free: model.Institution{
			Name: "Technical University of Munich", CountryCode: "DE", Country: "Germany", City: "Munich",
			ApplicationFeeCents: 0, IsActive: true,
		},
	}
	for _, u := range []*model.User{&c.Admin, &c.Student, &c.Other} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	for _, i := range []*model.Institution{&c.Paid, &c.Free} {
		if err := db.Create(i).Error; err != nil {
			t.Fatalf("seed institution: %v", err)
		}
	}
	c.PaidProgram = model.Program{InstitutionID: c.Paid.ID, Name: "MSc Computer Science", DegreeType: "master", FieldOfStudy: "Computer Science", TuitionFeeCents: 4500000, Currency: "CAD", IsActive: true}
	c.FreeProgram = model.Program{InstitutionID: c.Free.ID, Name: "MSc Informatics", DegreeType: "master", FieldOfStudy: "Computer Science", Currency: "EUR", IsActive: true}
	for _, p := range []*model.Program{&c.PaidProgram, &c.FreeProgram} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed program: %v", err)
		}
	}
	return c
}
