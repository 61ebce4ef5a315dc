package entity

import "time"

// Submission outcome statuses
const (
	SubmissionSucceeded = "SUCCEEDED"
	SubmissionFailed    = "FAILED"
)

// SubmissionRecord is the persisted audit trail of one refund submission
// attempt. The wizard itself is in-memory only; records survive restarts so
// submitted batches can be reviewed later.
type SubmissionRecord struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"sessionId"`
	OwnerEmail    string    `json:"ownerEmail"`
	RefundID      string    `json:"refundId,omitempty"`
	Title         string    `json:"title"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Concept       string    `json:"concept"`
	SubmittedDate string    `json:"submittedDate"`
	ExchangeRate  string    `json:"exchangeRate"`
	FileName      string    `json:"fileName"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
