package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"portfel/internal/core"
)

// fakeSheets is a minimal stand-in for the Sheets REST API.
type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	calls   []string
	written [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct{ Title string } `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.titles = append(f.titles, rq.AddSheet.Properties.Title)
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "bad valueInputOption", http.StatusBadRequest)
			return
		}
		var vr struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteLedger_CreatesSheet(t *testing.T) {
	f := &fakeSheets{titles: []string{"Sheet1"}}
	c := newTestClient(t, f)

	rows := []core.LedgerRow{
		{Date: core.NewDate(2024, 1, 5), SubBudget: "Wallet", Category: "Food", Kind: core.KindExpense, Name: "Bread", Amount: decimal.RequireFromString("3.5")},
		{Date: core.NewDate(2024, 1, 31), SubBudget: "Wallet", Category: "Salary", Kind: core.KindIncome, Name: "=HYPERLINK()", Amount: decimal.NewFromInt(1000)},
	}
	if err := c.WriteLedger(context.Background(), "1 Home", rows); err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}

	if len(f.titles) != 2 || f.titles[1] != "1 Home" {
		t.Errorf("sheet not created: %v", f.titles)
	}
	if len(f.written) != 3 {
		t.Fatalf("wrote %d rows, want header + 2", len(f.written))
	}
	if got := f.written[1][5]; got != "-3.50" {
		t.Errorf("expense amount = %v, want -3.50", got)
	}
	if got := f.written[2][5]; got != "1000.00" {
		t.Errorf("income amount = %v, want 1000.00", got)
	}
	if got := f.written[2][4]; got != "'=HYPERLINK()" {
		t.Errorf("formula not escaped: %v", got)
	}
}

func TestWriteLedger_ExistingSheet(t *testing.T) {
	f := &fakeSheets{titles: []string{"1 Home"}}
	c := newTestClient(t, f)

	if err := c.WriteLedger(context.Background(), "1 Home", nil); err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}
	for _, call := range f.calls {
		if strings.HasSuffix(call, ":batchUpdate") {
			t.Errorf("unexpected sheet creation: %v", f.calls)
		}
	}
	if len(f.written) != 1 {
		t.Errorf("expected only the header row, got %v", f.written)
	}
}

func TestWriteLedger_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if err := c.WriteLedger(context.Background(), "s", nil); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestText(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"Bread":    "Bread",
		"=SUM(A1)": "'=SUM(A1)",
		"+1":       "'+1",
		"-x":       "'-x",
		"@me":      "'@me",
	}
	for in, want := range tests {
		if got := text(in); got != want {
			t.Errorf("text(%q) = %q, want %q", in, got, want)
		}
	}
}
