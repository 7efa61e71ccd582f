package http

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"portfel/internal/auth"
	"portfel/internal/core"
	"portfel/internal/defaults"
	"portfel/internal/notify"
	"portfel/internal/services"
	"portfel/internal/storage"
)

type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (o *outbox) Send(_ context.Context, m notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

func (o *outbox) last() (notify.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return notify.Message{}, false
	}
	return o.sent[len(o.sent)-1], true
}

type testApp struct {
	srv  *Server
	ts   *httptest.Server
	repo *storage.SQLiteRepository
	svc  Services
	mail *outbox
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithConfig(t, ServerConfig{Addr: ":0", SessionTTL: time.Hour})
}

func newTestAppWithConfig(t *testing.T, cfg ServerConfig) *testApp {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "portfel.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	d, err := defaults.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	mail := &outbox{}
	reports := services.NewReportService(repo)
	svc := Services{
		Accounts:     services.NewAccountService(repo, auth.NewSigner("test-secret"), mail, d, "http://portfel.test"),
		Transactions: services.NewTransactionService(repo, nil),
		Cyclic:       services.NewCyclicService(repo),
		Categories:   services.NewCategoryService(repo),
		Budgets:      services.NewBudgetService(repo),
		Reports:      reports,
	}
	sessions := auth.NewSessions(repo, nil, time.Hour)

	srv, err := NewServer(cfg, svc, sessions, repo)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.clock = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { srv.authLimiter.Stop() })

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &testApp{srv: srv, ts: ts, repo: repo, svc: svc, mail: mail}
}

// client returns a browser-like client keeping cookies across redirects.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

// noRedirect returns a client that stops at the first response.
func noRedirect(c *http.Client) *http.Client {
	return &http.Client{
		Jar: c.Jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	return resp, readBody(t, resp)
}

func post(t *testing.T, c *http.Client, u string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(u, form)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func (a *testApp) register(t *testing.T, c *http.Client, email, household string) string {
	t.Helper()
	resp, body := post(t, c, a.ts.URL+"/register", url.Values{
		"name":           {"Ada"},
		"email":          {email},
		"password":       {"correct horse"},
		"household_name": {household},
	})
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/" {
		t.Fatalf("register ended at %s with %d: %s", resp.Request.URL.Path, resp.StatusCode, body)
	}
	return body
}

func (a *testApp) actor(t *testing.T, email string) services.Actor {
	t.Helper()
	ctx := context.Background()
	u, err := a.repo.Queries().GetUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	actor, err := a.svc.Accounts.ResolveActor(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("resolve actor: %v", err)
	}
	return actor
}

func (a *testApp) categoryID(t *testing.T, actor services.Actor, name string) int64 {
	t.Helper()
	cats, err := a.svc.Categories.List(context.Background(), actor)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cats.All() {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return 0
}

func (a *testApp) balance(t *testing.T, budgetID int64) string {
	t.Helper()
	b, err := a.repo.Queries().GetSubBudget(context.Background(), budgetID)
	if err != nil {
		t.Fatal(err)
	}
	return core.FormatAmount(b.Balance)
}

func TestHealthAndReady(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, body := get(t, c, app.ts.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, resp.StatusCode, body)
		}
	}

	resp, body := get(t, c, app.ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics status=%d body=%s", resp.StatusCode, body)
	}
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	app := newTestApp(t)
	c := noRedirect(app.client(t))

	for _, path := range []string{"/", "/history", "/transactions/new", "/cyclic"} {
		resp, _ := get(t, c, app.ts.URL+path)
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
			t.Errorf("%s: status=%d location=%q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	resp, body := get(t, app.client(t), app.ts.URL+"/login")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Log in") {
		t.Fatalf("login page status=%d", resp.StatusCode)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	body := app.register(t, c, "ada@example.com", "Home")
	for _, want := range []string{"Home", "Main budget", "Welcome to portfel, Ada!"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	resp, body := post(t, c, app.ts.URL+"/logout", nil)
	if resp.Request.URL.Path != "/login" || !strings.Contains(body, "Logged out.") {
		t.Fatalf("logout ended at %s", resp.Request.URL.Path)
	}
	resp, _ = get(t, noRedirect(c), app.ts.URL+"/")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("dashboard after logout status=%d", resp.StatusCode)
	}

	resp, body = post(t, c, app.ts.URL+"/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong password"}})
	if resp.Request.URL.Path != "/login" || !strings.Contains(body, "Wrong email or password.") {
		t.Fatalf("bad login ended at %s", resp.Request.URL.Path)
	}

	resp, body = post(t, c, app.ts.URL+"/login", url.Values{"email": {"ADA@example.com"}, "password": {"correct horse"}})
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Main budget") {
		t.Fatalf("login ended at %s", resp.Request.URL.Path)
	}
}

func TestRegisterErrorsAreFlashed(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "ada@example.com", "Home")

	other := app.client(t)
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"taken", url.Values{"name": {"Bob"}, "email": {"ada@example.com"}, "password": {"long enough"}, "household_name": {"X"}}, "already registered"},
		{"short password", url.Values{"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"short"}, "household_name": {"X"}}, "at least 8"},
		{"no household", url.Values{"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"long enough"}}, "household name or an invite code"},
		{"bad invite", url.Values{"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"long enough"}, "invite_code": {"nope"}}, "invite code is not valid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, other, app.ts.URL+"/register", tt.form)
			if resp.Request.URL.Path != "/register" {
				t.Fatalf("ended at %s", resp.Request.URL.Path)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}

func TestInviteJoinsHousehold(t *testing.T) {
	app := newTestApp(t)
	owner := app.client(t)
	app.register(t, owner, "ada@example.com", "Home")
	code := app.svc.Accounts.InviteCode(app.actor(t, "ada@example.com").HouseholdID)

	_, body := get(t, app.client(t), app.ts.URL+"/register?invite="+url.QueryEscape(code))
	if !strings.Contains(body, "joining an existing household") {
		t.Fatal("register page should show the invite")
	}

	guest := app.client(t)
	resp, body := post(t, guest, app.ts.URL+"/register", url.Values{
		"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"long enough"}, "invite_code": {code},
	})
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Home") {
		t.Fatalf("join ended at %s", resp.Request.URL.Path)
	}
	if app.actor(t, "bob@example.com").HouseholdID != app.actor(t, "ada@example.com").HouseholdID {
		t.Error("guest should share the household")
	}
}

func TestTransactionLifecycle(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "ada@example.com", "Home")
	actor := app.actor(t, "ada@example.com")
	food := app.categoryID(t, actor, "Food")

	_, body := get(t, c, app.ts.URL+"/transactions/new?kind=expense")
	if !strings.Contains(body, `value="2024-03-15"`) {
		t.Error("form should default the date to today")
	}

	resp, body := post(t, c, app.ts.URL+"/transactions/new", url.Values{
		"kind": {"expense"}, "name": {"Groceries"}, "amount": {"12.50"},
		"date": {"2024-03-14"}, "category_id": {strconv.FormatInt(food, 10)},
	})
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Groceries") || !strings.Contains(body, "-12.50") {
		t.Fatalf("create ended at %s: %s", resp.Request.URL.Path, body)
	}
	if got := app.balance(t, actor.ActiveBudgetID); got != "-12.50" {
		t.Fatalf("balance = %s, want -12.50", got)
	}

	rows, err := app.svc.Reports.History(context.Background(), actor)
	if err != nil || len(rows) != 1 {
		t.Fatalf("history: %v %d", err, len(rows))
	}
	id := strconv.FormatInt(rows[0].ID, 10)

	resp, body = post(t, c, app.ts.URL+"/transactions/new", url.Values{
		"kind": {"expense"}, "name": {"Broken"}, "amount": {"0"}, "category_id": {strconv.FormatInt(food, 10)},
	})
	if resp.Request.URL.Path != "/transactions/new" || !strings.Contains(body, "greater than zero") {
		t.Fatalf("invalid amount ended at %s", resp.Request.URL.Path)
	}

	_, body = get(t, c, app.ts.URL+"/transactions/"+id+"/edit")
	if !strings.Contains(body, `value="12.50"`) {
		t.Error("edit form should be prefilled")
	}
	resp, _ = post(t, c, app.ts.URL+"/transactions/"+id+"/edit", url.Values{
		"kind": {"income"}, "name": {"Refund"}, "amount": {"20"},
		"date": {"2024-03-14"}, "category_id": {strconv.FormatInt(food, 10)},
	})
	if resp.Request.URL.Path != "/history" {
		t.Fatalf("edit ended at %s", resp.Request.URL.Path)
	}
	if got := app.balance(t, actor.ActiveBudgetID); got != "20.00" {
		t.Fatalf("balance after edit = %s, want 20.00", got)
	}

	resp, body = post(t, c, app.ts.URL+"/transactions/"+id+"/delete", url.Values{"next": {"/"}})
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Transaction deleted.") {
		t.Fatalf("delete ended at %s", resp.Request.URL.Path)
	}
	if got := app.balance(t, actor.ActiveBudgetID); got != "0.00" {
		t.Fatalf("balance after delete = %s, want 0.00", got)
	}
}

func TestOtherHouseholdIsNotFound(t *testing.T) {
	app := newTestApp(t)
	ada := app.client(t)
	app.register(t, ada, "ada@example.com", "Home")
	actor := app.actor(t, "ada@example.com")

	id, err := app.svc.Transactions.Add(context.Background(), actor, core.Transaction{
		SubBudgetID: actor.ActiveBudgetID,
		CategoryID:  app.categoryID(t, actor, "Food"),
		Kind:        core.KindExpense,
		Name:        "Private",
		Amount:      mustAmount(t, "5"),
		Date:        core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	eve := app.client(t)
	app.register(t, eve, "eve@example.com", "Elsewhere")
	resp, _ := get(t, eve, app.ts.URL+"/transactions/"+strconv.FormatInt(id, 10)+"/edit")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	post(t, eve, app.ts.URL+"/transactions/"+strconv.FormatInt(id, 10)+"/delete", nil)
	if got := app.balance(t, actor.ActiveBudgetID); got != "-5.00" {
		t.Fatalf("foreign delete changed balance to %s", got)
	}
}

func TestBudgetsAndTransfer(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "ada@example.com", "Home")
	main := app.actor(t, "ada@example.com").ActiveBudgetID

	_, body := get(t, c, app.ts.URL+"/transfer")
	if !strings.Contains(body, "second sub-budget") {
		t.Error("transfer page should ask for a second sub-budget")
	}

	resp, body := post(t, c, app.ts.URL+"/budgets", url.Values{"name": {"Savings"}})
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Sub-budget Savings created.") {
		t.Fatalf("create budget ended at %s", resp.Request.URL.Path)
	}
	budgets, err := app.svc.Budgets.List(context.Background(), app.actor(t, "ada@example.com"))
	if err != nil || len(budgets) != 2 {
		t.Fatalf("budgets: %v %d", err, len(budgets))
	}
	var savings int64
	for _, b := range budgets {
		if b.Name == "Savings" {
			savings = b.ID
		}
	}

	resp, body = post(t, c, app.ts.URL+"/transfer", url.Values{
		"from_budget_id": {strconv.FormatInt(main, 10)},
		"to_budget_id":   {strconv.FormatInt(main, 10)},
		"amount":         {"5"},
	})
	if resp.Request.URL.Path != "/transfer" || !strings.Contains(body, "two different") {
		t.Fatalf("same-budget transfer ended at %s", resp.Request.URL.Path)
	}

	resp, body = post(t, c, app.ts.URL+"/transfer", url.Values{
		"from_budget_id": {strconv.FormatInt(main, 10)},
		"to_budget_id":   {strconv.FormatInt(savings, 10)},
		"amount":         {"40"},
	})
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Transferred 40.00.") {
		t.Fatalf("transfer ended at %s", resp.Request.URL.Path)
	}
	if app.balance(t, main) != "-40.00" || app.balance(t, savings) != "40.00" {
		t.Fatalf("balances = %s / %s", app.balance(t, main), app.balance(t, savings))
	}

	resp, body = post(t, c, app.ts.URL+"/budgets/"+strconv.FormatInt(savings, 10)+"/delete", nil)
	if !strings.Contains(body, "still has transactions") {
		t.Fatalf("deleting a used sub-budget should fail, ended at %s", resp.Request.URL.Path)
	}

	resp, _ = post(t, c, app.ts.URL+"/budgets/"+strconv.FormatInt(main, 10)+"/switch", nil)
	if resp.Request.URL.Path != "/" {
		t.Fatalf("switch ended at %s", resp.Request.URL.Path)
	}
	resp, body = post(t, c, app.ts.URL+"/budgets/"+strconv.FormatInt(main, 10)+"/rename", url.Values{"name": {"Wallet"}})
	if !strings.Contains(body, "Wallet") {
		t.Fatalf("rename not shown, ended at %s", resp.Request.URL.Path)
	}
}

func TestCyclicAndCategoryPages(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "ada@example.com", "Home")
	actor := app.actor(t, "ada@example.com")

	resp, body := post(t, c, app.ts.URL+"/categories", url.Values{"name": {"Rent"}, "kind": {"expense"}})
	if resp.Request.URL.Path != "/categories" || !strings.Contains(body, "Category Rent added.") {
		t.Fatalf("create category ended at %s", resp.Request.URL.Path)
	}
	_, body = post(t, c, app.ts.URL+"/categories", url.Values{"name": {"Rent"}})
	if !strings.Contains(body, "already exists") {
		t.Error("duplicate category should be flashed")
	}
	rent := strconv.FormatInt(app.categoryID(t, actor, "Rent"), 10)

	resp, body = post(t, c, app.ts.URL+"/cyclic", url.Values{
		"kind": {"expense"}, "name": {"Flat"}, "amount": {"800"}, "period": {"monthly"},
		"start_date": {"2024-04-01"}, "category_id": {rent},
	})
	if resp.Request.URL.Path != "/cyclic" || !strings.Contains(body, "Flat") || !strings.Contains(body, "2024-04-01") {
		t.Fatalf("create cyclic ended at %s: %s", resp.Request.URL.Path, body)
	}

	_, body = post(t, c, app.ts.URL+"/categories/"+rent+"/delete", nil)
	if !strings.Contains(body, "still used") {
		t.Error("deleting a category used by a template should fail")
	}

	views, err := app.svc.Cyclic.List(context.Background(), actor)
	if err != nil || len(views) != 1 {
		t.Fatalf("cyclic list: %v %d", err, len(views))
	}
	cid := strconv.FormatInt(views[0].ID, 10)
	_, body = get(t, c, app.ts.URL+"/cyclic/"+cid+"/edit")
	if !strings.Contains(body, "Next booking: 2024-04-01") {
		t.Error("edit page should show the next due date")
	}
	resp, _ = post(t, c, app.ts.URL+"/cyclic/"+cid+"/delete", nil)
	if resp.Request.URL.Path != "/cyclic" {
		t.Fatalf("delete cyclic ended at %s", resp.Request.URL.Path)
	}

	resp, body = post(t, c, app.ts.URL+"/categories/"+rent+"/edit", url.Values{"name": {"Housing"}, "description": {"rent and fees"}})
	if resp.Request.URL.Path != "/categories" || !strings.Contains(body, "Housing") {
		t.Fatalf("edit category ended at %s", resp.Request.URL.Path)
	}
}

func TestAnalysisPage(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "ada@example.com", "Home")
	actor := app.actor(t, "ada@example.com")

	savings, err := app.svc.Budgets.Create(context.Background(), actor, "Savings")
	if err != nil {
		t.Fatal(err)
	}
	add := func(budget int64, amt string, date core.Date) {
		t.Helper()
		_, err := app.svc.Transactions.Add(context.Background(), actor, core.Transaction{
			SubBudgetID: budget,
			CategoryID:  app.categoryID(t, actor, "Food"),
			Kind:        core.KindExpense,
			Name:        "Market",
			Amount:      mustAmount(t, amt),
			Date:        date,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add(actor.ActiveBudgetID, "10", core.NewDate(2023, 1, 5))
	add(savings, "15.25", core.NewDate(2024, 3, 2))

	// all sub-budgets, all time
	_, body := get(t, c, app.ts.URL+"/analysis")
	if !strings.Contains(body, "25.25") || !strings.Contains(body, `name="from" value=""`) {
		t.Fatalf("analysis body: %s", body)
	}
	_, body = get(t, c, app.ts.URL+"/analysis?from=2024-01-01")
	if !strings.Contains(body, "15.25") || strings.Contains(body, "25.25") {
		t.Fatalf("from filter body: %s", body)
	}
	_, body = get(t, c, app.ts.URL+"/analysis?from=2022-01-01&to=2022-12-31")
	if !strings.Contains(body, "No expenses from 2022-01-01 to 2022-12-31.") {
		t.Fatal("empty range should say so")
	}
}

func TestPasswordReset(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	app.register(t, c, "ada@example.com", "Home")

	anon := app.client(t)
	resp, body := post(t, anon, app.ts.URL+"/reset-password", url.Values{"email": {"nobody@example.com"}})
	if resp.Request.URL.Path != "/login" || !strings.Contains(body, resetRequestedMessage) {
		t.Fatalf("unknown address ended at %s", resp.Request.URL.Path)
	}
	if _, ok := app.mail.last(); ok {
		t.Fatal("no mail should be sent for unknown addresses")
	}

	post(t, anon, app.ts.URL+"/reset-password", url.Values{"email": {"ada@example.com"}})
	msg, ok := app.mail.last()
	if !ok {
		t.Fatal("reset mail not sent")
	}
	const marker = "http://portfel.test/reset-password/"
	i := strings.Index(msg.Body, marker)
	if i < 0 {
		t.Fatalf("no link in mail: %s", msg.Body)
	}
	token := strings.Fields(msg.Body[i+len(marker):])[0]

	resp, _ = get(t, anon, app.ts.URL+"/reset-password/garbage")
	if resp.Request.URL.Path != "/reset-password" {
		t.Fatalf("bad token ended at %s", resp.Request.URL.Path)
	}

	_, body = get(t, anon, app.ts.URL+"/reset-password/"+token)
	if !strings.Contains(body, "Choose a new password") {
		t.Fatal("reset form not shown")
	}
	resp, body = post(t, anon, app.ts.URL+"/reset-password/"+token, url.Values{"password": {"battery staple"}})
	if resp.Request.URL.Path != "/login" || !strings.Contains(body, "Password changed.") {
		t.Fatalf("reset ended at %s", resp.Request.URL.Path)
	}

	resp, _ = post(t, anon, app.ts.URL+"/login", url.Values{"email": {"ada@example.com"}, "password": {"battery staple"}})
	if resp.Request.URL.Path != "/" {
		t.Fatalf("login with new password ended at %s", resp.Request.URL.Path)
	}
}

func TestCrossSitePostRejected(t *testing.T) {
	app := newTestApp(t)
	req, err := http.NewRequest(http.MethodPost, app.ts.URL+"/logout", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "https://evil.test")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestSecurityHeadersAndSessionCookie(t *testing.T) {
	app := newTestApp(t)
	c := noRedirect(app.client(t))

	resp, _ := post(t, c, app.ts.URL+"/register", url.Values{
		"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"correct horse"}, "household_name": {"Home"},
	})
	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookie {
			session = ck
		}
	}
	if session == nil {
		t.Fatal("session cookie not set")
	}
	if !session.HttpOnly || session.SameSite != http.SameSiteLaxMode {
		t.Errorf("session cookie flags: %+v", session)
	}

	resp, _ = get(t, c, app.ts.URL+"/")
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Error("dashboard should not be cached")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
}

func TestAuthRateLimit(t *testing.T) {
	app := newTestApp(t)
	c := noRedirect(app.client(t))

	var last *http.Response
	for i := 0; i < 11; i++ {
		last, _ = post(t, c, app.ts.URL+"/login", url.Values{"email": {"x@example.com"}, "password": {"nope nope"}})
	}
	if last.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.StatusCode)
	}
	if last.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestAuthRateLimitFromConfig(t *testing.T) {
	app := newTestAppWithConfig(t, ServerConfig{Addr: ":0", SessionTTL: time.Hour, AuthRequestsPerMinute: 2})
	c := noRedirect(app.client(t))

	form := url.Values{"email": {"x@example.com"}, "password": {"nope nope"}}
	for i := 0; i < 2; i++ {
		resp, _ := post(t, c, app.ts.URL+"/login", form)
		if resp.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("attempt %d limited too early", i+1)
		}
	}
	resp, _ := post(t, c, app.ts.URL+"/login", form)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", resp.StatusCode)
	}
}

func TestStaticAssets(t *testing.T) {
	app := newTestApp(t)
	resp, body := get(t, app.client(t), app.ts.URL+"/static/style.css")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, ".flash") {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Cache-Control"), "max-age=3600") {
		t.Errorf("Cache-Control = %q", resp.Header.Get("Cache-Control"))
	}
}

func mustAmount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := core.ParseAmount(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
