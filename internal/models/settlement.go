package models

// Settlement represents a payment between group members to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// From is the member who paid (debtor settling up).
	From string

	// To is the member who received payment (creditor being paid).
	To string

	// Amount is the payment amount, always positive.
	Amount float64

	// SettledAt is the Unix millisecond timestamp when the payment was recorded.
	SettledAt int64

	// SettledBy is the member who recorded this settlement.
	SettledBy string
}
