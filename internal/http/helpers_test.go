package http_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/expense-service/internal/domain"
	api "github.com/tazhibayda/expense-service/internal/http"
	"github.com/tazhibayda/expense-service/internal/queue"
	"github.com/tazhibayda/expense-service/internal/repo"
	"github.com/tazhibayda/expense-service/internal/security"
)

// fakeStore is an in-memory stand-in for *repo.Store.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	expenses map[string][]*domain.Expense

	failCreate  bool
	ensureCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*domain.User{},
		expenses: map[string][]*domain.Expense{},
	}
}

func (f *fakeStore) EnsureUser(_ context.Context, id, email, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	if _, ok := f.users[id]; ok {
		return false, nil
	}
	f.users[id] = &domain.User{
		ID: id, Email: email, Name: name,
		Categories: domain.DefaultCategories(),
		CreatedAt:  time.Now().UTC(),
	}
	return true, nil
}

func (f *fakeStore) Categories(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u.Categories, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateExpense(_ context.Context, userID string, e *domain.Expense) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return "", errFakeInsert
	}
	now := time.Now().UTC()
	e.UserID = userID
	e.CreatedAt = &now
	e.ID = primitive.NewObjectID()
	cp := *e
	f.expenses[userID] = append(f.expenses[userID], &cp)
	return e.ID.Hex(), nil
}

func (f *fakeStore) ListExpenses(_ context.Context, userID string) ([]domain.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Expense{}
	for _, e := range f.expenses[userID] {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeStore) UpdateExpense(_ context.Context, userID, recordID string, fields map[string]any) error {
	if _, err := primitive.ObjectIDFromHex(recordID); err != nil {
		return repo.ErrBadRecordID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := false
	for _, e := range f.expenses[userID] {
		if e.ID.Hex() != recordID {
			continue
		}
		matched = true
		for k, v := range fields {
			switch k {
			case "item":
				e.Item, _ = v.(string)
			case "amount":
				if n, ok := v.(float64); ok {
					e.Amount = n
				}
			case "category":
				e.Category, _ = v.(string)
			case "currency":
				e.Currency, _ = v.(string)
			case "date":
				e.Date, _ = v.(string)
			case "note":
				e.Note, _ = v.(string)
			}
		}
	}
	if !matched {
		return repo.ErrRecordNotFound
	}
	return nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, userID, recordID string) error {
	if _, err := primitive.ObjectIDFromHex(recordID); err != nil {
		return repo.ErrBadRecordID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.expenses[userID][:0]
	for _, e := range f.expenses[userID] {
		if e.ID.Hex() != recordID {
			kept = append(kept, e)
		}
	}
	f.expenses[userID] = kept
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeError string

func (e fakeError) Error() string { return string(e) }

const errFakeInsert = fakeError("insert failed")

// stubExtractor returns a canned record and remembers what it was asked.
type stubExtractor struct {
	rec *domain.Expense
	err error

	gotText string
	gotCats []string
}

func (s *stubExtractor) Parse(_ context.Context, text string, cats []string) (*domain.Expense, error) {
	s.gotText = text
	s.gotCats = cats
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.rec
	return &cp, nil
}

type fakeVerifier struct {
	user *security.GoogleUser
	err  error
}

func (f *fakeVerifier) VerifyIDToken(context.Context, string) (*security.GoogleUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type testEnv struct {
	Store  *fakeStore
	Ex     *stubExtractor
	Ver    *fakeVerifier
	Router *gin.Engine
}

func newTestEnv(t *testing.T, perMin int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	ex := &stubExtractor{rec: &domain.Expense{
		Item: "groceries", Amount: 50, Category: "Food",
		Currency: "USD", Date: "2024-06-09",
	}}
	ver := &fakeVerifier{user: &security.GoogleUser{
		Sub: "sub-123", Email: "john@example.com", Name: "John",
	}}

	h := api.NewHandler(store, ex, ver, queue.NewNoop())
	r := api.NewRouter(h, api.RouterConfig{
		FrontendOrigin:  "http://localhost:5173",
		RateLimitPerMin: perMin,
	})
	return &testEnv{Store: store, Ex: ex, Ver: ver, Router: r}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	e.Router.ServeHTTP(w, req)
	return w
}
