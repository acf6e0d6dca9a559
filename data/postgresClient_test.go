package data

import (
	"testing"

	"github.com/KotFed0t/portfolio_tracker/config"
)

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(config.Postgres{Host: "db", Port: 5432, User: "finance", DbName: "ledger", Password: "secret"})

	want := "host=db port=5432 user=finance dbname=ledger sslmode=disable password=secret"
	if dsn != want {
		t.Errorf("expected %q, got %q", want, dsn)
	}
}
