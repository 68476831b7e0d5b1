package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ab-1402/Bank-Buddy/configs"
	"github.com/ab-1402/Bank-Buddy/internal/chatbot"
	"github.com/ab-1402/Bank-Buddy/internal/handlers"
	"github.com/ab-1402/Bank-Buddy/internal/logger"
	"github.com/ab-1402/Bank-Buddy/internal/models"
	"github.com/ab-1402/Bank-Buddy/internal/routes"
	"github.com/ab-1402/Bank-Buddy/internal/store"
	"github.com/ab-1402/Bank-Buddy/internal/transfer"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	logger.Init()
	configs.AppConfig.JWT.SECRET = "test-secret"
	os.Exit(m.Run())
}

type fixture struct {
	router   http.Handler
	store    *store.Memory
	customer *models.User
	manager  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	customer := &models.User{
		Username: "abhay0123",
		Password: string(hash),
		FullName: "Abhay Borase",
		Role:     models.RoleCustomer,
		Balance:  decimal.RequireFromString("10000.00"),
	}
	manager := &models.User{
		Username: "manager01",
		Password: string(hash),
		FullName: "Bank Manager",
		Role:     models.RoleManager,
		Balance:  decimal.Zero,
	}
	for _, u := range []*models.User{customer, manager} {
		if err := st.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	account := &models.Account{
		AccountNumber: "100200300102",
		UpiID:         "priya@upi",
		HolderName:    "Priya Sharma",
		Balance:       decimal.RequireFromString("50000.00"),
	}
	if err := st.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}

	transfers := transfer.NewService(st)
	h := handlers.New(st, transfers, chatbot.New(transfers))
	return &fixture{
		router:   routes.NewRoutes(h, nil),
		store:    st,
		customer: customer,
		manager:  manager,
	}
}

func token(t *testing.T, user *models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *fixture) do(t *testing.T, method, path string, body any, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, as))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/login",
		map[string]string{"username": "abhay0123", "password": "password123"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp handlers.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User.Username != "abhay0123" {
		t.Errorf("user = %q", resp.User.Username)
	}

	rec = f.do(t, http.MethodPost, "/api/login",
		map[string]string{"username": "abhay0123", "password": "wrong"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": "newuser", "password": "a", "confirmPassword": "b", "fullName": "New User",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("password mismatch: status = %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": "abhay0123", "password": "pw", "confirmPassword": "pw", "fullName": "Clone",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate username: status = %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": "newuser", "password": "pw", "confirmPassword": "pw", "fullName": "New User",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Errorf("valid registration: status = %d, want 201: %s", rec.Code, rec.Body)
	}
}

func TestTransferEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/transfer",
		map[string]any{"amount": "2500.00", "toUpiId": "priya@upi"}, f.customer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp handlers.TransferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if resp.Transaction.Type != models.TxTransfer {
		t.Errorf("transaction type = %q", resp.Transaction.Type)
	}

	sender, err := f.store.GetUser(context.Background(), f.customer.ID)
	if err != nil {
		t.Fatalf("get sender: %v", err)
	}
	if !sender.Balance.Equal(decimal.RequireFromString("7500.00")) {
		t.Errorf("sender balance = %s, want 7500.00", sender.Balance)
	}
}

func TestTransferEndpointFailures(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name     string
		body     map[string]any
		wantCode int
	}{
		{"zero amount", map[string]any{"amount": "0", "toUpiId": "priya@upi"}, http.StatusBadRequest},
		{"negative amount", map[string]any{"amount": "-5", "toUpiId": "priya@upi"}, http.StatusBadRequest},
		{"too many decimals", map[string]any{"amount": "1.999", "toUpiId": "priya@upi"}, http.StatusBadRequest},
		{"missing receiver", map[string]any{"amount": "10.00"}, http.StatusBadRequest},
		{"unknown receiver", map[string]any{"amount": "10.00", "toUpiId": "nobody@upi"}, http.StatusNotFound},
		{"insufficient balance", map[string]any{"amount": "999999.00", "toUpiId": "priya@upi"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/transfer", tc.body, f.customer)
			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.wantCode, rec.Body)
			}
		})
	}

	// None of the rejected attempts moved any money.
	sender, err := f.store.GetUser(context.Background(), f.customer.ID)
	if err != nil {
		t.Fatalf("get sender: %v", err)
	}
	if !sender.Balance.Equal(decimal.RequireFromString("10000.00")) {
		t.Errorf("sender balance = %s, want 10000.00 unchanged", sender.Balance)
	}
	txns, err := f.store.ListTransactions(context.Background(), f.customer.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("got %d transactions, want 0", len(txns))
	}
}

func TestTransferRequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/transfer",
		map[string]any{"amount": "10.00", "toUpiId": "priya@upi"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestInsufficientBalanceMessageNamesAmount(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/transfer",
		map[string]any{"amount": "999999.00", "toUpiId": "priya@upi"}, f.customer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("999999.00")) {
		t.Errorf("error body %s should include the attempted amount", rec.Body)
	}
}

func TestTransactionsReturnsEmptyList(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/transactions/999", nil, f.customer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var txns []models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &txns); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("got %d transactions, want 0", len(txns))
	}
}

func TestAccountByUpi(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/accounts/upi/priya@upi", nil, f.customer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var account models.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if account.HolderName != "Priya Sharma" {
		t.Errorf("holder = %q", account.HolderName)
	}

	rec = f.do(t, http.MethodGet, "/api/accounts/upi/nobody@upi", nil, f.customer)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown upi: status = %d, want 404", rec.Code)
	}
}

func TestCustomersRequiresManager(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/customers", nil, f.customer)
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer caller: status = %d, want 403", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/customers", nil, f.manager)
	if rec.Code != http.StatusOK {
		t.Fatalf("manager caller: status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var customers []models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &customers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(customers) != 1 || customers[0].Username != "abhay0123" {
		t.Errorf("customers = %+v, want only abhay0123", customers)
	}
}

func TestChatEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/chat",
		map[string]string{"message": "what's my balance?"}, f.customer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp handlers.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a session id")
	}
	if resp.Reply == "" {
		t.Error("expected a reply")
	}

	// A full conversational transfer through the HTTP surface.
	sessionID := resp.SessionID
	for _, msg := range []string{"transfer to priya@upi", "100.00", "yes"} {
		rec = f.do(t, http.MethodPost, "/api/chat",
			map[string]string{"sessionId": sessionID, "message": msg}, f.customer)
		if rec.Code != http.StatusOK {
			t.Fatalf("chat %q: status = %d: %s", msg, rec.Code, rec.Body)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		sessionID = resp.SessionID
	}

	sender, err := f.store.GetUser(context.Background(), f.customer.ID)
	if err != nil {
		t.Fatalf("get sender: %v", err)
	}
	if !sender.Balance.Equal(decimal.RequireFromString("9900.00")) {
		t.Errorf("sender balance = %s, want 9900.00 after chat transfer", sender.Balance)
	}
}
