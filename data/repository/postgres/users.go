package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/KotFed0t/portfolio_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/model/dbModel"
	"github.com/KotFed0t/portfolio_tracker/utils"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertUser(ctx context.Context, username, hash string, cash decimal.Decimal) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertUser"
	query := `INSERT INTO users(username, hash, cash) VALUES($1, $2, $3) RETURNING id`

	slog.Debug("InsertUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("username", username))
	defer func() {
		if err != nil {
			slog.Error("InsertUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertUser completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, username, hash, cash).Scan(&userID)
	if err != nil {
		return 0, mapErr(err)
	}

	return userID, nil
}

func (r *Postgres) findUser(ctx context.Context, op, query string, arg any) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error(op+" failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug(op+" completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).GetContext(ctx, &dbUser, query, arg)
	if err != nil {
		return model.User{}, mapErr(err)
	}

	return dbConverter.ConvertUser(dbUser), nil
}

func (r *Postgres) FindUserByUsername(ctx context.Context, username string) (model.User, error) {
	query := `SELECT id, username, hash, cash FROM users WHERE username = $1`
	return r.findUser(ctx, "Postgres.FindUserByUsername", query, username)
}

func (r *Postgres) FindUserByID(ctx context.Context, userID int64) (model.User, error) {
	query := `SELECT id, username, hash, cash FROM users WHERE id = $1`
	return r.findUser(ctx, "Postgres.FindUserByID", query, userID)
}

// LockUser reads the user row with FOR UPDATE. Concurrent buys and sells of the same user
// queue on this lock until the surrounding transaction ends.
func (r *Postgres) LockUser(ctx context.Context, userID int64) (model.User, error) {
	query := `SELECT id, username, hash, cash FROM users WHERE id = $1 FOR UPDATE`
	return r.findUser(ctx, "Postgres.LockUser", query, userID)
}

// LockUserShared reads the user row with FOR SHARE, so a concurrent trade can't commit between
// reading cash and reading positions.
func (r *Postgres) LockUserShared(ctx context.Context, userID int64) (model.User, error) {
	query := `SELECT id, username, hash, cash FROM users WHERE id = $1 FOR SHARE`
	return r.findUser(ctx, "Postgres.LockUserShared", query, userID)
}

// UpdateCash adds delta to the user's cash unless the result would be negative,
// in which case nothing is written and repository.ErrNotUpdated is returned.
func (r *Postgres) UpdateCash(ctx context.Context, userID int64, delta decimal.Decimal) (cash decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateCash"
	params := map[string]any{
		"userID": userID,
		"delta":  delta.String(),
	}
	query := `
		UPDATE users
		SET cash = cash + $1
		WHERE id = $2
			AND cash + $1 >= 0
		RETURNING cash
		`

	slog.Debug("UpdateCash start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("UpdateCash failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateCash completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("cash", cash.String()))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, delta, userID).Scan(&cash)
	if err != nil {
		err = mapErr(err)
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, repository.ErrNotUpdated
		}
		return decimal.Zero, err
	}

	return cash, nil
}

func (r *Postgres) UpdatePasswordHash(ctx context.Context, userID int64, hash string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdatePasswordHash"
	query := `UPDATE users SET hash = $1 WHERE id = $2`

	slog.Debug("UpdatePasswordHash start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("UpdatePasswordHash failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdatePasswordHash completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, hash, userID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
