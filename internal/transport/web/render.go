package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/portfolio_tracker/internal/converter/moneyConverter"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = []string{"index", "buy", "sell", "quote", "history", "login", "register", "profile", "apology"}

type pageData struct {
	Username string
	Flash    string
	Data     any
}

type apologyData struct {
	Status  int
	Message string
}

// parseTemplates builds one template set per page, each with the shared layout.
func parseTemplates(currency string) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"money": func(amount decimal.Decimal) string {
			return moneyConverter.Format(amount, currency)
		},
	}

	res := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		res[page] = tmpl
	}

	return res, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	rqID := utils.GetRequestIDFromCtx(r.Context())

	var buf bytes.Buffer
	if err := h.templates[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("can't render template", slog.String("rqID", rqID), slog.String("page", page), slog.String("err", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// errStatus maps the service error taxonomy to HTTP statuses.
func errStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case service.IsBusiness(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) apology(w http.ResponseWriter, r *http.Request, username string, err error) {
	status := errStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("path", r.URL.Path), slog.String("err", err.Error()))
	}

	h.render(w, r, status, "apology", pageData{
		Username: username,
		Data:     apologyData{Status: status, Message: service.PublicMessage(err)},
	})
}
