package models

// Expense represents one transaction in a group's history.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Payer is the member who recorded and paid the expense.
	Payer string

	// Amount is negative for money spent and positive for money received.
	// It is never zero.
	Amount float64

	// Category is a free-form tag. "settlement" is reserved for expenses
	// written alongside a Settlement.
	Category string

	// Description is an optional human-readable note.
	Description string

	// SplitWith lists the members, excluding the payer, who share the expense.
	// Empty for personal expenses.
	SplitWith []string

	// SettlementID links a settlement expense to its Settlement.
	SettlementID string

	// CreatedAt is the Unix millisecond timestamp when the expense was recorded.
	CreatedAt int64
}

// IsSettlement reports whether the expense records a settlement payment.
func (e *Expense) IsSettlement() bool {
	return e.SettlementID != "" || e.Category == "settlement"
}
