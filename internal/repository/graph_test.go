package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestShareID(t *testing.T) {
	shareURL := "https://1drv.ms/x/s!AmC3-example/workbook.xlsx"
	id := shareID(shareURL)

	if !strings.HasPrefix(id, "u!") {
		t.Fatalf("shareID = %q, want u! prefix", id)
	}
	if strings.ContainsAny(id, "+/=") {
		t.Errorf("shareID = %q, want base64url without padding", id)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(id, "u!"))
	if err != nil {
		t.Fatalf("shareID does not decode: %v", err)
	}
	if string(decoded) != shareURL {
		t.Errorf("decoded shareID = %q, want original URL", decoded)
	}
}

// fakeGraph serves the subset of the Graph workbook API the client uses
type fakeGraph struct {
	usedRange    map[string]interface{}
	missingSheet bool
	status       int

	patchedPath string
	patchedBody string
}

func (f *fakeGraph) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		switch {
		case strings.HasPrefix(r.URL.Path, "/shares/"):
			if !strings.HasPrefix(r.URL.Path, "/shares/u!") {
				t.Errorf("share path %q missing encoded token", r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":              "ITEM1",
				"parentReference": map[string]string{"driveId": "DRIVE1"},
			})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/usedRange"):
			if f.missingSheet {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(f.usedRange)
		case r.Method == http.MethodPatch:
			body, _ := io.ReadAll(r.Body)
			f.patchedPath = r.URL.Path
			f.patchedBody = string(body)
			w.Write([]byte("{}"))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	})
}

func newTestWorkbook(srv *httptest.Server) *GraphWorkbook {
	return &GraphWorkbook{
		shareURL:   "https://1drv.ms/x/s!test",
		baseURL:    srv.URL,
		httpClient: srv.Client(),
	}
}

func TestGraphReadRows(t *testing.T) {
	fake := &fakeGraph{usedRange: map[string]interface{}{
		"rowCount": 2,
		"values": [][]interface{}{
			{"timestamp", "name"},
			{"20.01.2026, 08:30:00", "Иванов Иван", 45678.0, 55.75},
		},
	}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	rows, err := newTestWorkbook(srv).ReadRows(context.Background(), "Events")
	if err != nil {
		t.Fatalf("ReadRows() failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// numeric cells keep their spreadsheet text form
	if rows[1][2] != "45678" || rows[1][3] != "55.75" {
		t.Errorf("numeric cells = %q, %q, want 45678, 55.75", rows[1][2], rows[1][3])
	}
}

func TestGraphReadRowsMissingSheet(t *testing.T) {
	fake := &fakeGraph{missingSheet: true}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	rows, err := newTestWorkbook(srv).ReadRows(context.Background(), "Нет такого листа")
	if err != nil {
		t.Fatalf("ReadRows() on missing sheet failed: %v", err)
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil for missing sheet", rows)
	}
}

func TestGraphAppendRow(t *testing.T) {
	fake := &fakeGraph{usedRange: map[string]interface{}{"rowCount": 4}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	cells := []string{"ts", "name", "status", "action", "site", "web", "", "", ""}
	row, err := newTestWorkbook(srv).AppendRow(context.Background(), "Events", cells)
	if err != nil {
		t.Fatalf("AppendRow() failed: %v", err)
	}
	if row != 5 {
		t.Errorf("row = %d, want 5 (after 4 used rows)", row)
	}
	if !strings.Contains(fake.patchedPath, "range(address='A5:I5')") {
		t.Errorf("patched path = %q, want range A5:I5", fake.patchedPath)
	}
	if !strings.Contains(fake.patchedBody, `"name"`) {
		t.Errorf("patched body = %q, want row values", fake.patchedBody)
	}
}

func TestGraphWriteCell(t *testing.T) {
	fake := &fakeGraph{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	if err := newTestWorkbook(srv).WriteCell(context.Background(), "Склад", "F5", "1"); err != nil {
		t.Fatalf("WriteCell() failed: %v", err)
	}
	if !strings.Contains(fake.patchedPath, "range(address='F5')") {
		t.Errorf("patched path = %q, want cell F5", fake.patchedPath)
	}
}

func TestGraphErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			srv := httptest.NewServer((&fakeGraph{status: tt.status}).handler(t))
			defer srv.Close()

			_, err := newTestWorkbook(srv).ReadRows(context.Background(), "Events")
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadRows() error = %v, want %v", err, tt.want)
			}
		})
	}
}
