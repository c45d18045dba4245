package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/expense-service/internal/domain"
	"github.com/tazhibayda/expense-service/internal/helper"
	"github.com/tazhibayda/expense-service/internal/log"
	"github.com/tazhibayda/expense-service/internal/metrics"
	"github.com/tazhibayda/expense-service/internal/parser"
	"github.com/tazhibayda/expense-service/internal/queue"
	"github.com/tazhibayda/expense-service/internal/repo"
	"github.com/tazhibayda/expense-service/internal/security"
)

// Store is the slice of the record store the handlers compose. The concrete
// implementation is *repo.Store; tests use an in-memory fake.
type Store interface {
	EnsureUser(ctx context.Context, id, email, name string) (bool, error)
	Categories(ctx context.Context, id string) ([]string, error)
	CreateExpense(ctx context.Context, userID string, e *domain.Expense) (string, error)
	ListExpenses(ctx context.Context, userID string) ([]domain.Expense, error)
	UpdateExpense(ctx context.Context, userID, recordID string, fields map[string]any) error
	DeleteExpense(ctx context.Context, userID, recordID string) error
	Ping(ctx context.Context) error
}

// Verifier validates third-party identity tokens.
type Verifier interface {
	VerifyIDToken(ctx context.Context, raw string) (*security.GoogleUser, error)
}

type Handler struct {
	Store     Store
	Extractor parser.Extractor
	Verifier  Verifier
	Events    queue.Publisher
}

func NewHandler(store Store, ex parser.Extractor, ver Verifier, pub queue.Publisher) *Handler {
	if pub == nil {
		pub = queue.NewNoop()
	}
	return &Handler{Store: store, Extractor: ex, Verifier: ver, Events: pub}
}

// Root godoc
// @Summary Service status
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "expense service is running"})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type tokenReq struct {
	IDToken string `json:"id_token"`
}

// GoogleAuth godoc
// @Summary Verify a Google ID token and bootstrap the user
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body tokenReq true "id_token"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /auth/google [post]
func (h *Handler) GoogleAuth(c *gin.Context) {
	var in tokenReq
	if err := c.ShouldBindJSON(&in); err != nil || in.IDToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_token required"})
		return
	}

	gu, err := h.Verifier.VerifyIDToken(c.Request.Context(), in.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google token verification failed"})
		return
	}

	created, err := h.Store.EnsureUser(c.Request.Context(), gu.Sub, gu.Email, gu.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database Error: " + err.Error()})
		return
	}
	if created {
		log.WithDD(c.Request.Context(), log.L()).Info("new user initialized",
			zap.String("user", helper.Hash8(gu.Sub)))
	}

	go h.Events.Publish(context.WithoutCancel(c.Request.Context()), queue.Exchange, "user.signedin",
		queue.UserSignedIn{UserID: gu.Sub, Email: gu.Email, Name: gu.Name},
		c.GetString(RequestIDKey))

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"user":   gin.H{"id": gu.Sub, "name": gu.Name, "email": gu.Email},
	})
}

type parseExpenseReq struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

// expensePayload is the echoed record: same fields the extractor produced,
// no store-assigned id or timestamp.
type expensePayload struct {
	Item     string  `json:"item"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Currency string  `json:"currency"`
	Date     string  `json:"date"`
	Note     string  `json:"note"`
}

// ParseExpense godoc
// @Summary Parse free text into an expense record and persist it
// @Tags expenses
// @Accept json
// @Produce json
// @Param payload body parseExpenseReq true "text, optional user_id"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /parse-expense [post]
func (h *Handler) ParseExpense(c *gin.Context) {
	var in parseExpenseReq
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}
	uid := in.UserID
	if uid == "" {
		uid = domain.GuestUserID
	}
	ctx := c.Request.Context()

	// categories are snapshotted once; no re-read after extraction
	cats, err := h.Store.Categories(ctx, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database Error: " + err.Error()})
		return
	}
	if len(cats) == 0 {
		cats = domain.DefaultCategories()
	}

	var rec *domain.Expense
	err = traceStep(ctx, "parser.extract", func(ctx context.Context) error {
		var perr error
		rec, perr = h.Extractor.Parse(ctx, in.Text, cats)
		return perr
	})
	if err != nil {
		metrics.ExtractorCalls.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI Parsing Error: " + err.Error()})
		return
	}
	metrics.ExtractorCalls.WithLabelValues("ok").Inc()

	echo := expensePayload{
		Item:     rec.Item,
		Amount:   rec.Amount,
		Category: rec.Category,
		Currency: rec.Currency,
		Date:     rec.Date,
		Note:     rec.Note,
	}

	// first write under an unseen id bootstraps the user document
	if _, err := h.Store.EnsureUser(ctx, uid, "", ""); err != nil {
		log.WithDD(ctx, log.L()).Warn("user bootstrap failed", zap.Error(err))
	}

	var dbID string
	err = traceStep(ctx, "store.create_expense", func(ctx context.Context) error {
		var serr error
		dbID, serr = h.Store.CreateExpense(ctx, uid, rec)
		return serr
	})
	if err != nil {
		// parsed data is discarded; the client resubmits the text
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database Error: " + err.Error()})
		return
	}

	go h.Events.Publish(context.WithoutCancel(ctx), queue.Exchange, "expense.created",
		queue.ExpenseCreated{
			UserID: uid, ExpenseID: dbID,
			Item: rec.Item, Amount: rec.Amount, Currency: rec.Currency,
			Category: rec.Category, Date: rec.Date,
		},
		c.GetString(RequestIDKey))

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Expense recorded to your personal account!",
		"data":    echo,
		"db_id":   dbID,
	})
}

// ListUserData godoc
// @Summary List a user's expense records
// @Tags expenses
// @Produce json
// @Param user_id path string true "user id"
// @Success 200 {object} map[string]any
// @Failure 500 {object} map[string]string
// @Router /user-data/{user_id} [get]
func (h *Handler) ListUserData(c *gin.Context) {
	records, err := h.Store.ListExpenses(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database Error: " + err.Error()})
		return
	}
	if records == nil {
		records = []domain.Expense{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": records})
}

// UpdateUserData merges an arbitrary partial field map into the record.
func (h *Handler) UpdateUserData(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "non-empty field map required"})
		return
	}
	err := h.Store.UpdateExpense(c.Request.Context(), c.Param("user_id"), c.Param("record_id"), fields)
	if errors.Is(err, repo.ErrBadRecordID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}
	if errors.Is(err, repo.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database Error: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Record updated successfully"})
}

// DeleteUserData removes a record; deleting an unknown id is still a success.
func (h *Handler) DeleteUserData(c *gin.Context) {
	err := h.Store.DeleteExpense(c.Request.Context(), c.Param("user_id"), c.Param("record_id"))
	if errors.Is(err, repo.ErrBadRecordID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database Error: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Record deleted successfully"})
}
