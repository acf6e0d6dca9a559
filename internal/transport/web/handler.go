package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service/portfolioService"
	"github.com/KotFed0t/portfolio_tracker/internal/service/tradeService"
)

const (
	sessionCookie = "session"
	xlsxMimeType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type AuthService interface {
	Register(ctx context.Context, username, password, confirmation string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	RequireSession(ctx context.Context, token string) (model.Session, error)
	ChangePassword(ctx context.Context, userID int64, current, password, confirmation string) error
	AddFlash(ctx context.Context, token, message string) error
	PopFlash(ctx context.Context, token string, sess model.Session) string
}

type QuoteService interface {
	Quote(ctx context.Context, ticker string) (model.Quote, error)
}

type TradeService interface {
	Buy(ctx context.Context, userID int64, ticker string, shares int64) (model.Receipt, error)
	Sell(ctx context.Context, userID int64, ticker string, shares int64) (model.Receipt, error)
}

type PortfolioService interface {
	Currency() string
	GetPortfolio(ctx context.Context, userID int64) (model.Portfolio, error)
	GetHistory(ctx context.Context, userID int64) ([]model.Transaction, error)
	ExportReport(ctx context.Context, userID int64) (portfolioService.Export, error)
}

type Options struct {
	SecureCookie      bool
	NoCache           bool
	SessionExpiration time.Duration
}

type Handler struct {
	auth      AuthService
	quotes    QuoteService
	trade     TradeService
	portfolio PortfolioService
	templates map[string]*template.Template
	opts      Options
}

func NewHandler(auth AuthService, quotes QuoteService, trade TradeService, portfolio PortfolioService, opts Options) (*Handler, error) {
	templates, err := parseTemplates(portfolio.Currency())
	if err != nil {
		return nil, err
	}

	return &Handler{
		auth:      auth,
		quotes:    quotes,
		trade:     trade,
		portfolio: portfolio,
		templates: templates,
		opts:      opts,
	}, nil
}

// Routes returns the router with logging and panic recovery applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.requireSession(h.index))
	mux.HandleFunc("GET /buy", h.requireSession(h.buyForm))
	mux.HandleFunc("POST /buy", h.requireSession(h.buy))
	mux.HandleFunc("GET /sell", h.requireSession(h.sellForm))
	mux.HandleFunc("POST /sell", h.requireSession(h.sell))
	mux.HandleFunc("GET /quote", h.requireSession(h.quoteForm))
	mux.HandleFunc("POST /quote", h.requireSession(h.quote))
	mux.HandleFunc("GET /history", h.requireSession(h.history))
	mux.HandleFunc("GET /export", h.requireSession(h.export))
	mux.HandleFunc("GET /profile", h.requireSession(h.profileForm))
	mux.HandleFunc("POST /profile", h.requireSession(h.profile))
	mux.HandleFunc("GET /login", h.loginForm)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("GET /logout", h.logout)
	mux.HandleFunc("GET /register", h.registerForm)
	mux.HandleFunc("POST /register", h.register)

	var handler http.Handler = mux
	if h.opts.NoCache {
		handler = noCache(handler)
	}

	return logger(recoverer(handler))
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.opts.SessionExpiration.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// page renders an authenticated page, consuming the pending flash message.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, sess model.Session, token, name string, data any) {
	h.render(w, r, http.StatusOK, name, pageData{
		Username: sess.Username,
		Flash:    h.auth.PopFlash(r.Context(), token, sess),
		Data:     data,
	})
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, token, flash string) {
	if err := h.auth.AddFlash(r.Context(), token, flash); err != nil {
		h.apology(w, r, "", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	portfolio, err := h.portfolio.GetPortfolio(r.Context(), sess.UserID)
	if err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}
	h.page(w, r, sess, token, "index", portfolio)
}

func (h *Handler) buyForm(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	h.page(w, r, sess, token, "buy", nil)
}

func (h *Handler) buy(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	shares, err := tradeService.ParseShares(r.PostFormValue("shares"))
	if err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}

	if _, err = h.trade.Buy(r.Context(), sess.UserID, r.PostFormValue("symbol"), shares); err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}

	h.redirectWithFlash(w, r, token, "Bought!")
}

func (h *Handler) sellForm(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	portfolio, err := h.portfolio.GetPortfolio(r.Context(), sess.UserID)
	if err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}
	h.page(w, r, sess, token, "sell", portfolio.Positions)
}

func (h *Handler) sell(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	shares, err := tradeService.ParseShares(r.PostFormValue("shares"))
	if err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}

	if _, err = h.trade.Sell(r.Context(), sess.UserID, r.PostFormValue("symbol"), shares); err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}

	h.redirectWithFlash(w, r, token, "Sold!")
}

func (h *Handler) quoteForm(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	h.page(w, r, sess, token, "quote", nil)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	quote, err := h.quotes.Quote(r.Context(), r.PostFormValue("symbol"))
	if err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}
	h.page(w, r, sess, token, "quote", quote)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	history, err := h.portfolio.GetHistory(r.Context(), sess.UserID)
	if err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}
	h.page(w, r, sess, token, "history", history)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	export, err := h.portfolio.ExportReport(r.Context(), sess.UserID)
	if err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}

	if export.DownloadLink != "" {
		http.Redirect(w, r, export.DownloadLink, http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.FileBytes)))
	_, _ = w.Write(export.FileBytes)
}

func (h *Handler) profileForm(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	h.page(w, r, sess, token, "profile", nil)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, sess model.Session, token string) {
	err := h.auth.ChangePassword(r.Context(), sess.UserID, r.PostFormValue("current"), r.PostFormValue("password"), r.PostFormValue("confirmation"))
	if err != nil {
		h.apology(w, r, sess.Username, err)
		return
	}

	h.redirectWithFlash(w, r, token, "Password updated!")
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", pageData{})
}

// login forgets any previous session of the browser before establishing a new one.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	_ = h.auth.Logout(r.Context(), sessionToken(r))

	token, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		h.clearSessionCookie(w)
		h.apology(w, r, "", err)
		return
	}

	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		h.apology(w, r, "", err)
		return
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) registerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", pageData{})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	token, err := h.auth.Register(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"), r.PostFormValue("confirmation"))
	if err != nil {
		h.apology(w, r, "", err)
		return
	}

	h.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
