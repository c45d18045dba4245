package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/tazhibayda/expense-service/internal/domain"
	"github.com/tazhibayda/expense-service/internal/security"
)

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return out
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, 0)
	w := env.do(http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w.Body.Bytes())
	if body["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", body["status"])
	}
}

func TestGoogleAuth(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(http.MethodPost, "/auth/google", `{"id_token":"good-token"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w.Body.Bytes())
	user, _ := body["user"].(map[string]any)
	if user["id"] != "sub-123" || user["email"] != "john@example.com" {
		t.Fatalf("unexpected user payload: %v", body["user"])
	}

	env.Store.mu.Lock()
	u := env.Store.users["sub-123"]
	env.Store.mu.Unlock()
	if u == nil {
		t.Fatal("user was not bootstrapped")
	}
	if len(u.Categories) != len(domain.DefaultCategories()) {
		t.Fatalf("categories = %v, want defaults", u.Categories)
	}

	// second sign-in is a no-op, not a second insert
	w = env.do(http.MethodPost, "/auth/google", `{"id_token":"good-token"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("repeat status = %d", w.Code)
	}
}

func TestGoogleAuthMissingToken(t *testing.T) {
	env := newTestEnv(t, 0)
	w := env.do(http.MethodPost, "/auth/google", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGoogleAuthInvalidToken(t *testing.T) {
	env := newTestEnv(t, 0)
	env.Ver.err = security.ErrInvalidToken

	w := env.do(http.MethodPost, "/auth/google", `{"id_token":"bad"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if env.Store.ensureCalls != 0 {
		t.Fatalf("store was touched on a failed verification: %d calls", env.Store.ensureCalls)
	}
}

func TestParseExpense(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(http.MethodPost, "/parse-expense", `{"text":"spent 50 on groceries yesterday"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w.Body.Bytes())
	if body["message"] != "Expense recorded to your personal account!" {
		t.Fatalf("message = %v", body["message"])
	}
	if s, _ := body["db_id"].(string); s == "" {
		t.Fatal("db_id missing from response")
	}

	data, _ := body["data"].(map[string]any)
	if data["item"] != "groceries" || data["amount"] != float64(50) {
		t.Fatalf("echoed record = %v", data)
	}
	for _, k := range []string{"id", "created_at", "user_id"} {
		if _, ok := data[k]; ok {
			t.Fatalf("echoed record leaks server field %q: %v", k, data)
		}
	}

	// no user_id falls back to the guest account with default categories
	if env.Ex.gotText != "spent 50 on groceries yesterday" {
		t.Fatalf("extractor got text %q", env.Ex.gotText)
	}
	if got, want := env.Ex.gotCats, domain.DefaultCategories(); len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("extractor categories = %v, want defaults", got)
	}
	env.Store.mu.Lock()
	stored := env.Store.expenses[domain.GuestUserID]
	_, guestExists := env.Store.users[domain.GuestUserID]
	env.Store.mu.Unlock()
	if len(stored) != 1 {
		t.Fatalf("stored %d records for guest, want 1", len(stored))
	}
	if stored[0].CreatedAt == nil {
		t.Fatal("stored record lacks created_at")
	}
	if !guestExists {
		t.Fatal("guest user document was not bootstrapped")
	}
}

func TestParseExpenseUsesStoredCategories(t *testing.T) {
	env := newTestEnv(t, 0)
	env.Store.users["sub-123"] = &domain.User{
		ID: "sub-123", Categories: []string{"Groceries", "Rent"},
	}

	w := env.do(http.MethodPost, "/parse-expense", `{"text":"rent 900","user_id":"sub-123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := env.Ex.gotCats; len(got) != 2 || got[0] != "Groceries" {
		t.Fatalf("extractor categories = %v, want the user's own list", got)
	}
}

func TestParseExpenseEmptyText(t *testing.T) {
	env := newTestEnv(t, 0)
	for _, body := range []string{`{}`, `{"text":"   "}`} {
		w := env.do(http.MethodPost, "/parse-expense", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestParseExpenseExtractorFailure(t *testing.T) {
	env := newTestEnv(t, 0)
	env.Ex.err = fakeError("model returned no candidates")

	w := env.do(http.MethodPost, "/parse-expense", `{"text":"lunch 12"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := decodeBody(t, w.Body.Bytes())
	msg, _ := body["error"].(string)
	if !strings.HasPrefix(msg, "AI Parsing Error: ") || !strings.Contains(msg, "no candidates") {
		t.Fatalf("error = %q", msg)
	}
	env.Store.mu.Lock()
	n := len(env.Store.expenses[domain.GuestUserID])
	env.Store.mu.Unlock()
	if n != 0 {
		t.Fatalf("record stored despite extraction failure: %d", n)
	}
}

func TestParseExpenseStoreFailure(t *testing.T) {
	env := newTestEnv(t, 0)
	env.Store.failCreate = true

	w := env.do(http.MethodPost, "/parse-expense", `{"text":"lunch 12"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := decodeBody(t, w.Body.Bytes())
	msg, _ := body["error"].(string)
	if !strings.HasPrefix(msg, "Database Error: ") || !strings.Contains(msg, "insert failed") {
		t.Fatalf("error = %q", msg)
	}
}

func TestListUserDataEmpty(t *testing.T) {
	env := newTestEnv(t, 0)
	w := env.do(http.MethodGet, "/user-data/nobody", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w.Body.Bytes())
	data, ok := body["data"].([]any)
	if !ok || len(data) != 0 {
		t.Fatalf("data = %v, want empty array", body["data"])
	}
}

func TestUpdateUserData(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(http.MethodPost, "/parse-expense", `{"text":"lunch 50","user_id":"u1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("seed status = %d", w.Code)
	}
	dbID, _ := decodeBody(t, w.Body.Bytes())["db_id"].(string)

	w = env.do(http.MethodPut, fmt.Sprintf("/user-data/u1/%s", dbID), `{"amount":75,"user_id":"evil"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	if msg := decodeBody(t, w.Body.Bytes())["message"]; msg != "Record updated successfully" {
		t.Fatalf("message = %v", msg)
	}

	w = env.do(http.MethodGet, "/user-data/u1", "")
	body := decodeBody(t, w.Body.Bytes())
	data, _ := body["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("records = %v", data)
	}
	rec, _ := data[0].(map[string]any)
	if rec["amount"] != float64(75) {
		t.Fatalf("amount = %v, want 75", rec["amount"])
	}
	if rec["item"] != "groceries" {
		t.Fatalf("item = %v, other fields must survive a partial update", rec["item"])
	}
}

func TestUpdateUserDataMissingRecord(t *testing.T) {
	env := newTestEnv(t, 0)

	// well-formed id that was never stored
	w := env.do(http.MethodPut, "/user-data/u1/64b000000000000000000000", `{"amount":1}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if body := decodeBody(t, w.Body.Bytes()); body["error"] != "record not found" {
		t.Fatalf("body = %v", body)
	}

	// another user's record is just as invisible
	w = env.do(http.MethodPost, "/parse-expense", `{"text":"lunch 50","user_id":"u1"}`)
	dbID, _ := decodeBody(t, w.Body.Bytes())["db_id"].(string)

	w = env.do(http.MethodPut, fmt.Sprintf("/user-data/u2/%s", dbID), `{"amount":1}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-user status = %d, want 404", w.Code)
	}

	w = env.do(http.MethodGet, "/user-data/u1", "")
	data, _ := decodeBody(t, w.Body.Bytes())["data"].([]any)
	rec, _ := data[0].(map[string]any)
	if rec["amount"] != float64(50) {
		t.Fatalf("record changed through another user's path: %v", rec)
	}
}

func TestUpdateUserDataBadInput(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(http.MethodPut, "/user-data/u1/not-a-hex-id", `{"amount":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}

	w = env.do(http.MethodPut, "/user-data/u1/64b000000000000000000000", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty map status = %d, want 400", w.Code)
	}
}

func TestDeleteUserData(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(http.MethodPost, "/parse-expense", `{"text":"lunch 50","user_id":"u1"}`)
	dbID, _ := decodeBody(t, w.Body.Bytes())["db_id"].(string)

	w = env.do(http.MethodDelete, fmt.Sprintf("/user-data/u1/%s", dbID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if msg := decodeBody(t, w.Body.Bytes())["message"]; msg != "Record deleted successfully" {
		t.Fatalf("message = %v", msg)
	}

	// deleting the same id again still succeeds
	w = env.do(http.MethodDelete, fmt.Sprintf("/user-data/u1/%s", dbID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("repeat delete status = %d", w.Code)
	}

	w = env.do(http.MethodGet, "/user-data/u1", "")
	data, _ := decodeBody(t, w.Body.Bytes())["data"].([]any)
	if len(data) != 0 {
		t.Fatalf("records left after delete: %v", data)
	}
}

func TestParseExpenseRateLimited(t *testing.T) {
	env := newTestEnv(t, 2)

	for i := 0; i < 2; i++ {
		if w := env.do(http.MethodPost, "/parse-expense", `{"text":"coffee 3"}`); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	w := env.do(http.MethodPost, "/parse-expense", `{"text":"coffee 3"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}
