package queue

// Exchange is the topic exchange all service events go to.
const Exchange = "expense.events"

type UserSignedIn struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type ExpenseCreated struct {
	UserID    string  `json:"user_id"`
	ExpenseID string  `json:"expense_id"`
	Item      string  `json:"item"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Category  string  `json:"category"`
	Date      string  `json:"date"`
}
