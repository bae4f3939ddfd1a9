// Package notify publishes notification events to the message broker.
// A downstream mailer consumes them; publishing is strictly best effort.
package notify

// ClaimFiledEvent is published when a claim is created. It carries enough
// for the mailer to notify the user without querying the primary database.
type ClaimFiledEvent struct {
	ClaimID   string `json:"claim_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ClaimType string `json:"claim_type"`
	FiledAt   string `json:"filed_at"`
}

// PaymentRecordedEvent is published when a payment is created.
type PaymentRecordedEvent struct {
	PaymentID   string `json:"payment_id"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	RecordedAt  string `json:"recorded_at"`
}
