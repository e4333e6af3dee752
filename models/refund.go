package models

import "time"

// RefundResult is the outcome of a refund request against the payments provider.
type RefundResult struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"` // Minor currency units
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Created   time.Time `json:"created"`
	Duplicate bool      `json:"duplicate,omitempty"` // Intent was already refunded before this request
}
