package googleDriveApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/config"
	"google.golang.org/api/option"
)

func TestDeleteOldFiles(t *testing.T) {
	var (
		mu      sync.Mutex
		deleted []string
		emptied bool
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"files":[
				{"id":"old","createdTime":"2026-01-01T00:00:00Z"},
				{"id":"fresh","createdTime":"2026-01-02T23:00:00Z"},
				{"id":"broken","createdTime":"yesterday"}
			]}`))
		case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/files/trash"):
			emptied = true
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete:
			deleted = append(deleted, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api, err := New(
		context.Background(),
		config.GoogleDrive{FileTTL: 24 * time.Hour},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	api.now = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }

	if err := api.DeleteOldFiles(context.Background()); err != nil {
		t.Fatalf("DeleteOldFiles: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "old" {
		t.Errorf("deleted = %v, want [old]", deleted)
	}
	if !emptied {
		t.Error("trash was not emptied")
	}
}
