package database

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestDSN(t *testing.T) {
	got := DSN("app", "secret", "db", "3306", "venues")
	want := "app:secret@tcp(db:3306)/venues?charset=utf8mb4&parseTime=true&loc=UTC"
	if got != want {
		t.Fatalf("got %q", got)
	}
	if got := DSN("app", "", "db", "3306", "venues"); !strings.HasPrefix(got, "app@tcp(") {
		t.Fatalf("no password: %q", got)
	}
}

func TestStatements(t *testing.T) {
	stmts := Statements()
	if len(stmts) != 8 {
		t.Fatalf("statements = %d", len(stmts))
	}
	for _, s := range stmts {
		if !strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS") {
			t.Fatalf("unexpected statement %q", s)
		}
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for range Statements() {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
