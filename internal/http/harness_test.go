package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"techypad/internal/config"
	"techypad/internal/http/handlers"
	applog "techypad/internal/log"
	"techypad/internal/payment"
	"techypad/internal/pricing"
	"techypad/internal/realtime"
	"techypad/internal/repos"
)

const (
	customerEmail = "customer@techypad.test"
	opsEmail      = "ops@techypad.test"
	operatorEmail = "operator@techypad.test"
	seedPassword  = "Passw0rd!"
)

type testEnv struct {
	app  *fiber.App
	db   *sqlx.DB
	deps *handlers.Deps
}

// newTestEnv runs the app over an in-memory database holding the demo accounts.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return openTestEnv(t, true, nil)
}

func openTestEnv(t *testing.T, seed bool, tweak func(*config.Config)) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if seed {
		if err := repos.SeedDemoUsers(db); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("operator-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := config.Config{
		TemplatesDir:      "../../web/templates",
		JWTSecret:         "test-secret",
		SessionTTL:        time.Hour,
		AdminEmail:        operatorEmail,
		AdminPasswordHash: string(hash),
		SalePrice:         6499,
		SupportEmail:      "support@techypad.test",
	}
	if tweak != nil {
		tweak(&cfg)
	}
	deps := handlers.NewDeps(db, cfg, realtime.NewMemoryFeed(), payment.NewSandbox())
	t.Cleanup(deps.Auth.Close)
	return &testEnv{app: handlers.NewApp(deps), db: db, deps: deps}
}

// browser keeps cookies between requests the way a real one would.
type browser struct {
	t   *testing.T
	app *fiber.App
	jar map[string]string
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, app: e.app, jar: map[string]string{}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	for name, v := range b.jar {
		req.AddCookie(&http.Cookie{Name: name, Value: v})
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(b.jar, c.Name)
			continue
		}
		b.jar[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// post submits a form with the CSRF token fetched from a prior page view.
func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	if b.jar["csrf_"] == "" {
		b.get("/auth")
		if b.jar["csrf_"] == "" {
			b.t.Fatal("csrf token missing")
		}
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", b.jar["csrf_"])
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) signIn(email, password string) {
	b.t.Helper()
	resp := b.post("/auth/signin", url.Values{"email": {email}, "password": {password}})
	if resp.StatusCode != http.StatusFound {
		b.t.Fatalf("sign in %s: expected redirect, got %d", email, resp.StatusCode)
	}
	if b.jar["auth"] == "" {
		b.t.Fatalf("sign in %s: auth cookie missing", email)
	}
}

func shippingForm() url.Values {
	return url.Values{
		"firstName": {"Casey"},
		"lastName":  {"Rao"},
		"email":     {customerEmail},
		"phone":     {"9876543210"},
		"address":   {"12 MG Road, Indiranagar"},
		"city":      {"Bengaluru"},
		"state":     {"Karnataka"},
		"zip":       {"560038"},
		"country":   {"India"},
	}
}

var attemptPath = regexp.MustCompile(`/checkout/([0-9a-f-]{36})/payment`)

// openPayment fills the cart and submits shipping, returning the payment attempt id.
func (b *browser) openPayment() string {
	b.t.Helper()
	if resp := b.post("/cart", url.Values{"productId": {pricing.ProductID}}); resp.StatusCode != http.StatusFound {
		b.t.Fatalf("add to cart: got %d", resp.StatusCode)
	}
	resp := b.post("/checkout", shippingForm())
	body := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		b.t.Fatalf("checkout: expected 200, got %d body=%s", resp.StatusCode, body)
	}
	m := attemptPath.FindStringSubmatch(body)
	if m == nil {
		b.t.Fatalf("payment form missing; body=%s", body)
	}
	return m[1]
}

func (b *browser) placeOrder() string {
	b.t.Helper()
	id := b.openPayment()
	resp := b.post("/checkout/"+id+"/payment", url.Values{"outcome": {"success"}})
	body := readBody(resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "ORD-") {
		b.t.Fatalf("payment: got %d body=%s", resp.StatusCode, body)
	}
	return body
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

type logEntry struct {
	Level  string                 `json:"level"`
	Action string                 `json:"action"`
	Fields map[string]interface{} `json:"fields"`
}

type lockedBuf struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs redirects the application log while fn runs. Access log lines
// carry no action and are skipped.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	applog.SetOutput(buf)
	defer applog.SetOutput(os.Stdout)

	fn()

	buf.mu.Lock()
	raw := buf.b.String()
	buf.mu.Unlock()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil && e.Action != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
