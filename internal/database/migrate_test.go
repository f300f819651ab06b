package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMigrateRunsEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	for range schema {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("denied"))
	err = Migrate(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "step 1") {
		t.Fatalf("expected step 1 error, got %v", err)
	}
}

func TestAvailabilityTableGuardsRoomsLeft(t *testing.T) {
	for _, stmt := range schema {
		if strings.Contains(stmt, "accommodation_availability") {
			if !strings.Contains(stmt, "CHECK (rooms_left >= 0)") {
				t.Fatalf("rooms_left is not guarded")
			}
			return
		}
	}
	t.Fatalf("availability table missing")
}
