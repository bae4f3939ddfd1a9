package models

import (
	"time"

	"github.com/google/uuid"
)

/* =============================== Enums ================================== */

// ClaimStatus defines lifecycle states for a claim.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

// PaymentStatus defines lifecycle states for a payment.
// Payments are created pending; a staff settlement step moves them to
// completed or failed.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentMethod defines how a payment was made.
type PaymentMethod string

const (
	MethodCard        PaymentMethod = "card"
	MethodCash        PaymentMethod = "cash"
	MethodCheque      PaymentMethod = "cheque"
	MethodMobileMoney PaymentMethod = "mobile_money"
)

// PolicyStatus defines lifecycle states for a policy. Transitions are
// monotonic: active -> expired (time-driven) and active -> cancelled.
type PolicyStatus string

const (
	PolicyActive    PolicyStatus = "active"
	PolicyExpired   PolicyStatus = "expired"
	PolicyCancelled PolicyStatus = "cancelled"
)

/* =============================== Entities =============================== */

// User represents an account holder. Staff accounts can administer claims,
// payments and policies across all users.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	PhoneNumber  string
	PolicyNumber string // convenience field shown on the profile
	IsStaff      bool    `gorm:"not null;default:false"`
	CreatedAt    time.Time
}

// Policy represents an insurance contract owned by one user.
type Policy struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID    `gorm:"type:uuid;not null;index"`
	PolicyNumber string       `gorm:"uniqueIndex;not null"`
	PolicyType   string       `gorm:"not null"` // free-text category tag
	StartDate    time.Time    `gorm:"type:date;not null"`
	EndDate      time.Time    `gorm:"type:date;not null"` // invariant: start_date <= end_date
	PremiumCents int64        `gorm:"not null"`           // stored in cents to avoid float issues
	Status       PolicyStatus `gorm:"type:varchar(20);default:'active'"`
	CreatedAt    time.Time

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// Claim represents a user-filed request for a payout tied to an incident.
// PolicyNumber is an optional plain string, not a foreign key.
type Claim struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`
	ClaimType      string    `gorm:"not null"`
	Description    string    `gorm:"not null"`
	PolicyNumber   string
	DateOfIncident *time.Time `gorm:"type:date"`
	AmountCents    *int64
	DocumentKey    string      // opaque object-storage key, empty until uploaded
	Status         ClaimStatus `gorm:"type:varchar(20);default:'pending'"`
	CreatedAt      time.Time   `gorm:"not null;default:now()"`

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// Payment represents a monetary transaction owned by one user, optionally
// tied to a policy. Reference is server-generated, unique and immutable.
type Payment struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null;index"`
	PolicyID    *uuid.UUID    `gorm:"type:uuid;index"`
	AmountCents int64         `gorm:"not null"`
	Method      PaymentMethod `gorm:"type:varchar(20);not null"`
	Status      PaymentStatus `gorm:"type:varchar(20);default:'pending'"`
	Reference   string        `gorm:"uniqueIndex;not null"`
	CreatedAt   time.Time     `gorm:"not null;default:now()"`

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// AuditLog records administrative actions on claims, payments and policies.
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Entity    string    `gorm:"type:varchar(20);not null"` // claim | payment | policy
	EntityID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Action    string    `gorm:"type:varchar(50);not null"` // e.g. status_changed, settled, cancelled
	OldStatus string    `gorm:"type:varchar(20)"`
	NewStatus string    `gorm:"type:varchar(20)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
