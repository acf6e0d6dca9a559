package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			now := time.Now()

			rqID := uuid.NewString()
			c.Set("rqID", rqID)

			slog.Info("start request", slog.String("rqID", rqID), slog.String("command", command(c.Text())))

			defer func() {
				slog.Info(
					"request finished",
					slog.String("rqID", rqID),
					slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
				)
			}()

			return next(c)
		}
	}
}

// command drops the arguments: /login carries a password.
func command(text string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	return cmd
}

// SessionKey identifies the person behind an update, so a group chat never shares one login.
func SessionKey(c tele.Context) string {
	if c.Sender() == nil {
		return ""
	}
	return strconv.FormatInt(c.Sender().ID, 10)
}

type SessionResolver interface {
	RequireSession(ctx context.Context, key string) (model.Session, error)
}

// Auth lets the update through only when the sender is bound to a user; the session is put under "session".
func Auth(sessions SessionResolver) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx := utils.CreateCtxWithRqID(c)

			key := SessionKey(c)
			if key == "" {
				return c.Send("please /login <username> <password> first")
			}

			sess, err := sessions.RequireSession(ctx, key)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					return c.Send("please /login <username> <password> first")
				}
				slog.Error("got error from RequireSession", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
				return c.Send("⚠️ " + service.PublicMessage(err))
			}

			c.Set("session", sess)
			return next(c)
		}
	}
}
