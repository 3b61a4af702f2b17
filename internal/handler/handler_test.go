package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polischuks/checkbox/internal/auth"
	"github.com/polischuks/checkbox/internal/clock"
	"github.com/polischuks/checkbox/internal/metrics"
	"github.com/polischuks/checkbox/internal/models"
	"github.com/polischuks/checkbox/internal/printer"
	"github.com/polischuks/checkbox/internal/service"
	"github.com/polischuks/checkbox/internal/storage/sqlstore"
)

var testNow = time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC)

type testServer struct {
	*httptest.Server
	now *time.Time
}

// setupTestServer starts the full HTTP stack on a temporary SQLite database
// with a small seeded catalog. The returned clock can be moved forward.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "api.db"),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, p := range []*models.Product{
		{ID: 1, Name: "Milk", Price: decimal.RequireFromString("500000")},
		{ID: 2, Name: "Phone", Price: decimal.RequireFromString("620000")},
		{ID: 3, Name: "Laptop", Price: decimal.RequireFromString("516610")},
		{ID: 4, Name: "Notebook", Price: decimal.RequireFromString("2689830")},
	} {
		require.NoError(t, store.CreateProduct(ctx, p))
	}

	now := testNow
	clk := clock.Func(func() time.Time { return now })
	jwtManager := auth.NewJWTManager("test-secret", 15*time.Minute, clk)

	router := NewRouter(Config{
		Auth: service.NewAuthService(auth.NewPasswordAuthenticator(store, clk), jwtManager, logger),
		Receipts: service.NewReceiptService(service.ReceiptServiceConfig{
			Store:   store,
			Printer: printer.New(printer.Config{Vendor: "Checkbox Shop"}),
			Clock:   clk,
			Logger:  logger,
		}),
		Sessions:       auth.NewSessionGuard(jwtManager, store),
		Health:         store,
		Metrics:        metrics.New(),
		Logger:         logger,
		CORSOrigins:    []string{"*"},
		RequestTimeout: 5 * time.Second,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, now: &now}
}

func (s *testServer) do(t *testing.T, method, path, token, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) postJSON(t *testing.T, path, token string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, http.MethodPost, path, token, "application/json", strings.NewReader(string(body)))
}

func (s *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	return s.do(t, http.MethodGet, path, token, "", nil)
}

// login registers the user and returns a fresh access token.
func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	resp := s.postJSON(t, "/register", "", map[string]string{"name": strings.ToUpper(username), "username": username, "password": "password"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return s.token(t, username)
}

// token logs an existing user in at the current test time.
func (s *testServer) token(t *testing.T, username string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {"password"}}
	resp := s.do(t, http.MethodPost, "/token", "", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	assert.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireDecimal(t *testing.T, want string, got json.Number) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(string(got))), "want %s, got %s", want, got)
}

func TestRegisterAndToken(t *testing.T) {
	s := setupTestServer(t)

	resp := s.postJSON(t, "/register", "", map[string]string{"name": "Alice", "username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decode[map[string]any](t, resp)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "Alice", user["name"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "password_hash")

	t.Run("duplicate username", func(t *testing.T) {
		resp := s.postJSON(t, "/register", "", map[string]string{"name": "A", "username": "alice", "password": "x"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Username already registered", decode[errorResponse](t, resp).Detail)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := s.postJSON(t, "/register", "", map[string]string{"username": "bob"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		form := url.Values{"username": {"alice"}, "password": {"nope"}}
		resp := s.do(t, http.MethodPost, "/token", "", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	})

	t.Run("unknown user looks the same", func(t *testing.T) {
		form := url.Values{"username": {"mallory"}, "password": {"pw"}}
		resp := s.do(t, http.MethodPost, "/token", "", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Incorrect username or password", decode[errorResponse](t, resp).Detail)
	})

	t.Run("missing form fields", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/token", "", "application/x-www-form-urlencoded", strings.NewReader("username=alice"))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestCreateReceipt(t *testing.T) {
	s := setupTestServer(t)
	token := s.login(t, "alice")

	t.Run("exact cash payment", func(t *testing.T) {
		resp := s.postJSON(t, "/receipts/", token, map[string]any{
			"user_id":        1,
			"sale_items":     []map[string]any{{"product_id": 2, "quantity": 1}},
			"payment_type":   "cash",
			"payment_amount": 620000,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		r := decode[createdReceiptResponse](t, resp)
		requireDecimal(t, "620000", r.Total)
		requireDecimal(t, "0", r.ChangeGiven)
		require.Len(t, r.Items, 1)
		assert.Equal(t, "Phone", r.Items[0].ProductName)
		requireDecimal(t, "620000", r.Items[0].TotalPrice)
		assert.True(t, r.CreatedAt.Equal(testNow))
	})

	t.Run("card payment with string amounts", func(t *testing.T) {
		resp := s.postJSON(t, "/receipts", token, map[string]any{
			"sale_items":     []map[string]any{{"product_id": 4, "quantity": "1"}},
			"payment_type":   "card",
			"payment_amount": "2689830",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		r := decode[createdReceiptResponse](t, resp)
		requireDecimal(t, "2689830", r.Total)
		requireDecimal(t, "0", r.ChangeGiven)
		assert.Len(t, r.SaleItems, 1)
		assert.Equal(t, "card", r.PaymentType)
	})

	t.Run("two items with change", func(t *testing.T) {
		resp := s.postJSON(t, "/receipts/", token, map[string]any{
			"sale_items":     []map[string]any{{"product_id": 1, "quantity": 2}, {"product_id": 3, "quantity": 1}},
			"payment_type":   "cash",
			"payment_amount": 1600000,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		r := decode[createdReceiptResponse](t, resp)
		requireDecimal(t, "1516610", r.Total)
		requireDecimal(t, "83390", r.ChangeGiven)
	})

	t.Run("unknown product", func(t *testing.T) {
		resp := s.postJSON(t, "/receipts/", token, map[string]any{
			"sale_items":     []map[string]any{{"product_id": 99, "quantity": 1}},
			"payment_type":   "cash",
			"payment_amount": 1,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("malformed requests", func(t *testing.T) {
		for name, payload := range map[string]any{
			"no items":        map[string]any{"sale_items": []any{}, "payment_type": "cash", "payment_amount": 1},
			"missing amount":  map[string]any{"sale_items": []map[string]any{{"product_id": 1, "quantity": 1}}, "payment_type": "cash"},
			"missing qty":     map[string]any{"sale_items": []map[string]any{{"product_id": 1}}, "payment_type": "cash", "payment_amount": 1},
			"zero qty":        map[string]any{"sale_items": []map[string]any{{"product_id": 1, "quantity": 0}}, "payment_type": "cash", "payment_amount": 1},
			"not an object":   []int{1, 2},
			"bad quantity":    map[string]any{"sale_items": []map[string]any{{"product_id": 1, "quantity": "abc"}}, "payment_type": "cash", "payment_amount": 1},
			"no payment type": map[string]any{"sale_items": []map[string]any{{"product_id": 1, "quantity": 1}}, "payment_amount": 1},
		} {
			t.Run(name, func(t *testing.T) {
				resp := s.postJSON(t, "/receipts/", token, payload)
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})
		}
	})
}

func TestReceiptAccess(t *testing.T) {
	s := setupTestServer(t)
	alice := s.login(t, "alice")
	bob := s.login(t, "bob")

	resp := s.postJSON(t, "/receipts/", alice, map[string]any{
		"sale_items":     []map[string]any{{"product_id": 1, "quantity": 2}, {"product_id": 3, "quantity": 1}},
		"payment_type":   "cash",
		"payment_amount": 1600000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[createdReceiptResponse](t, resp)
	path := "/receipts/" + idString(created.ID)

	t.Run("owner reads own receipt", func(t *testing.T) {
		resp := s.get(t, path+"/", alice)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		r := decode[receiptResponse](t, resp)
		assert.Equal(t, created.ID, r.ID)
		require.Len(t, r.SaleItems, 2)
		assert.Equal(t, "Milk", r.SaleItems[0].ProductName)
		requireDecimal(t, "500000", r.SaleItems[0].UnitPrice)
	})

	t.Run("other user gets 404", func(t *testing.T) {
		resp := s.get(t, path+"/", bob)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Receipt not found", decode[errorResponse](t, resp).Detail)
	})

	t.Run("unauthenticated requests are rejected", func(t *testing.T) {
		for _, p := range []string{path + "/", "/receipts/"} {
			resp := s.get(t, p, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, p)
			assert.Equal(t, "Not authenticated", decode[errorResponse](t, resp).Detail)
		}
		resp := s.postJSON(t, "/receipts/", "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := s.get(t, "/receipts/", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Could not validate credentials", decode[errorResponse](t, resp).Detail)
	})

	t.Run("public endpoint needs no token", func(t *testing.T) {
		resp := s.get(t, "/receipts/public/"+idString(created.ID), "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		r := decode[receiptResponse](t, resp)
		requireDecimal(t, "83390", r.ChangeGiven)

		resp = s.get(t, "/receipts/public/9999", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("text endpoint needs no token", func(t *testing.T) {
		resp := s.get(t, path+"/text", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		text := string(body)
		assert.Contains(t, text, "Checkbox Shop")
		assert.True(t, strings.HasSuffix(text, strings.Repeat("=", 40)))
		assert.Contains(t, text, "Receipt №"+idString(created.ID))
	})

	t.Run("invalid id", func(t *testing.T) {
		resp := s.get(t, "/receipts/public/abc", "")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		*s.now = testNow.Add(16 * time.Minute)
		defer func() { *s.now = testNow }()
		resp := s.get(t, "/receipts/", alice)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Could not validate credentials", decode[errorResponse](t, resp).Detail)
	})
}

func TestListReceipts(t *testing.T) {
	s := setupTestServer(t)
	s.login(t, "alice")

	create := func(at time.Time, productID int, payment string) {
		t.Helper()
		*s.now = at
		resp := s.postJSON(t, "/receipts/", s.token(t, "alice"), map[string]any{
			"sale_items":     []map[string]any{{"product_id": productID, "quantity": 1}},
			"payment_type":   payment,
			"payment_amount": 5000000,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	day := func(d int) time.Time { return time.Date(2024, 3, d, 10, 0, 0, 0, time.UTC) }
	create(day(1), 1, "cash")
	create(day(2), 2, "card")
	create(day(3), 4, "cash")
	*s.now = day(3)
	token := s.token(t, "alice")

	tests := []struct {
		query      string
		wantStatus int
		wantTotals []string
	}{
		{"", http.StatusOK, []string{"500000", "620000", "2689830"}},
		{"?payment_type=cash", http.StatusOK, []string{"500000", "2689830"}},
		{"?min_total=600000", http.StatusOK, []string{"620000", "2689830"}},
		{"?date_from=2024-03-02&date_to=2024-03-02", http.StatusOK, []string{"620000"}},
		{"?date_from=2024-03-02T00:00:00Z", http.StatusOK, []string{"620000", "2689830"}},
		{"?skip=1&limit=1", http.StatusOK, []string{"620000"}},
		{"?limit=101", http.StatusUnprocessableEntity, nil},
		{"?limit=0", http.StatusUnprocessableEntity, nil},
		{"?skip=-1", http.StatusUnprocessableEntity, nil},
		{"?skip=x", http.StatusUnprocessableEntity, nil},
		{"?date_from=yesterday", http.StatusUnprocessableEntity, nil},
		{"?min_total=lots", http.StatusUnprocessableEntity, nil},
	}

	for _, tt := range tests {
		t.Run("query "+tt.query, func(t *testing.T) {
			resp := s.get(t, "/receipts/"+tt.query, token)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			receipts := decode[[]receiptResponse](t, resp)
			totals := make([]string, len(receipts))
			for i, r := range receipts {
				totals[i] = decimal.RequireFromString(string(r.Total)).String()
			}
			assert.Equal(t, tt.wantTotals, totals)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupTestServer(t)

	resp := s.get(t, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = s.get(t, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "checkbox_http_requests_total")

	resp = s.get(t, "/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func idString(id int64) string {
	return fmt.Sprint(id)
}
