package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewPostgres(sqlx.NewDb(db, "sqlmock")), mock
}

func q(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

func TestMapErr(t *testing.T) {
	if !errors.Is(mapErr(sql.ErrNoRows), repository.ErrNotFound) {
		t.Error("sql.ErrNoRows must map to ErrNotFound")
	}
	if !errors.Is(mapErr(&pgconn.PgError{Code: "23505"}), repository.ErrAlreadyExists) {
		t.Error("unique violation must map to ErrAlreadyExists")
	}
	other := errors.New("boom")
	if mapErr(other) != other {
		t.Error("unknown errors must pass through")
	}
}

func TestInsertUser_Duplicate(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectQuery(q("INSERT INTO users(username, hash, cash)")).
		WithArgs("alice", "hash", decimal.NewFromInt(10000)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := p.InsertUser(context.Background(), "alice", "hash", decimal.NewFromInt(10000))
	if !errors.Is(err, repository.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestFindUserByUsername(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectQuery(q("SELECT id, username, hash, cash FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "hash", "cash"}).AddRow(1, "alice", "h", "8500.000000"))

	user, err := p.FindUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if user.ID != 1 || !user.Cash.Equal(decimal.NewFromInt(8500)) {
		t.Errorf("unexpected user %+v", user)
	}

	mock.ExpectQuery(q("FROM users WHERE username = $1")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "hash", "cash"}))

	if _, err = p.FindUserByUsername(context.Background(), "bob"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateCash_Underfunded(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectQuery(q("SET cash = cash + $1")).
		WithArgs(decimal.NewFromInt(-100), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"cash"}))

	_, err := p.UpdateCash(context.Background(), 1, decimal.NewFromInt(-100))
	if !errors.Is(err, repository.ErrNotUpdated) {
		t.Errorf("expected ErrNotUpdated, got %v", err)
	}
}

func TestWithinTransaction_CommitsTradeSteps(t *testing.T) {
	p, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "hash", "cash"}).AddRow(1, "alice", "h", "10000"))
	mock.ExpectQuery(q("ON CONFLICT (symbol) DO UPDATE")).
		WithArgs("AAPL", "Apple").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(q("INSERT INTO transactions(userid, symbolid, price, shares)")).
		WithArgs(int64(1), int64(7), decimal.NewFromInt(150), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(99))
	mock.ExpectQuery(q("SET cash = cash + $1")).
		WithArgs(decimal.NewFromInt(-1500), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"cash"}).AddRow("8500"))
	mock.ExpectCommit()

	err := p.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := p.LockUser(ctx, 1); err != nil {
			return err
		}
		symbolID, err := p.FindOrCreateSymbol(ctx, "AAPL", "Apple")
		if err != nil {
			return err
		}
		if _, err = p.AppendTransaction(ctx, 1, symbolID, decimal.NewFromInt(150), 10); err != nil {
			return err
		}
		cash, err := p.UpdateCash(ctx, 1, decimal.NewFromInt(-1500))
		if err != nil {
			return err
		}
		if !cash.Equal(decimal.NewFromInt(8500)) {
			t.Errorf("cash = %s", cash)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTransaction: %v", err)
	}
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	p, mock := newMock(t)
	failure := errors.New("insufficient")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := p.WithinTransaction(context.Background(), func(ctx context.Context) error {
		// nested calls join the outer transaction
		return p.WithinTransaction(ctx, func(ctx context.Context) error {
			return failure
		})
	})
	if !errors.Is(err, failure) {
		t.Errorf("expected the callback error, got %v", err)
	}
}

func TestTransactionsForUser(t *testing.T) {
	p, mock := newMock(t)
	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	// history follows append order even when a later row carries an earlier timestamp
	mock.ExpectQuery(q("ORDER BY t.id ASC")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "userid", "symbolid", "symbol", "name", "price", "shares", "time"}).
			AddRow(1, 1, 7, "AAPL", "Apple", "150.000000", 10, first.Add(time.Hour)).
			AddRow(2, 1, 7, "AAPL", "Apple", "160.000000", -5, first))

	history, err := p.TransactionsForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("TransactionsForUser: %v", err)
	}
	if len(history) != 2 || history[0].ID != 1 || history[1].Shares != -5 || !history[1].Price.Equal(decimal.NewFromInt(160)) {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestOpenPositionsForUser(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectQuery(q("HAVING SUM(t.shares) > 0")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"symbolid", "symbol", "name", "shares"}).AddRow(7, "AAPL", "Apple", 5))

	holdings, err := p.OpenPositionsForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("OpenPositionsForUser: %v", err)
	}
	if len(holdings) != 1 || holdings[0].Symbol != "AAPL" || holdings[0].Shares != 5 {
		t.Errorf("unexpected holdings %+v", holdings)
	}
}

func TestHoldingForUser_NeverTraded(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectQuery(q("AND s.symbol = $2")).
		WithArgs(int64(1), "MSFT").
		WillReturnRows(sqlmock.NewRows([]string{"symbolid", "symbol", "name", "shares"}))

	if _, err := p.HoldingForUser(context.Background(), 1, "MSFT"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePasswordHash_UnknownUser(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectExec(q("UPDATE users SET hash = $1 WHERE id = $2")).
		WithArgs("new", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := p.UpdatePasswordHash(context.Background(), 9, "new"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
