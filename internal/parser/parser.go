// Package parser turns free-text expense descriptions into structured
// records by calling a hosted generative model.
package parser

import (
	"context"

	"github.com/tazhibayda/expense-service/internal/domain"
)

// Extractor is the capability the HTTP layer composes. The concrete
// implementation is Gemini; tests substitute a deterministic stub.
type Extractor interface {
	Parse(ctx context.Context, text string, categories []string) (*domain.Expense, error)
}
