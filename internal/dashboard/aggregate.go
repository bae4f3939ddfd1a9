// Package dashboard builds the per-user and global account summaries.
package dashboard

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jelanihq/insurance-backend/pkg/models"
	"github.com/jelanihq/insurance-backend/pkg/sanitize"
)

// Renewal window: active policies ending within the next 30 days count as
// upcoming; active policies already past their end_date are overdue (a
// data-integrity signal — the expiry sweep has not caught them yet).
const renewalWindowDays = 30

const recentLimit = 5

type RecentClaim struct {
	ID        uuid.UUID          `json:"id"`
	ClaimType string             `json:"claim_type"`
	Preview   string             `json:"preview"`
	Status    models.ClaimStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

type RecentPayment struct {
	ID        uuid.UUID            `json:"id"`
	Reference string               `json:"reference"`
	Amount    float64              `json:"amount"`
	Method    models.PaymentMethod `json:"method"`
	Status    models.PaymentStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

type PolicyCounts struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Expired   int64 `json:"expired"`
	Cancelled int64 `json:"cancelled"`
}

// AdminSummary is the global, unscoped reporting view for staff.
type AdminSummary struct {
	TotalPolicies    int64            `json:"total_policies"`
	TotalPayments    int64            `json:"total_payments"`
	TotalClaims      int64            `json:"total_claims"`
	UpcomingRenewals int64            `json:"upcoming_renewals"`
	OverdueRenewals  int64            `json:"overdue_renewals"`
	RecentClaims     []RecentClaim    `json:"recent_claims"`
	RecentPayments   []RecentPayment  `json:"recent_payments"`
	StatusBreakdown  map[string]int64 `json:"status_breakdown"`
}

// UserSummary is the caller-scoped reporting view.
type UserSummary struct {
	ClaimsCount            int64           `json:"claims_count"`
	ApprovedClaims         int64           `json:"approved_claims"`
	RejectedClaims         int64           `json:"rejected_claims"`
	TotalCompletedPayments float64         `json:"total_completed_payments"`
	Policies               PolicyCounts    `json:"policies"`
	UpcomingRenewals       int64           `json:"upcoming_renewals"`
	OverdueRenewals        int64           `json:"overdue_renewals"`
	RecentClaims           []RecentClaim   `json:"recent_claims"`
	RecentPayments         []RecentPayment `json:"recent_payments"`
}

// dateWindow returns today and today+renewalWindowDays as DATE strings;
// comparisons happen at day granularity.
func dateWindow(now time.Time) (today, horizon string) {
	return now.Format("2006-01-02"), now.AddDate(0, 0, renewalWindowDays).Format("2006-01-02")
}

// scoped narrows a query to one user, or leaves it global for uuid.Nil.
func scoped(q *gorm.DB, userID uuid.UUID) *gorm.DB {
	if userID != uuid.Nil {
		return q.Where("user_id = ?", userID)
	}
	return q
}

func recentClaims(db *gorm.DB, userID uuid.UUID, redact bool) ([]RecentClaim, error) {
	var rows []models.Claim
	if err := scoped(db.Model(&models.Claim{}), userID).
		Order("created_at DESC, id ASC").
		Limit(recentLimit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]RecentClaim, 0, len(rows))
	for _, cl := range rows {
		preview := sanitize.Summary(cl.Description, 240)
		if redact {
			// Global view crosses user boundaries; never leak contact details.
			preview = sanitize.RedactPII(preview)
		}
		out = append(out, RecentClaim{
			ID:        cl.ID,
			ClaimType: cl.ClaimType,
			Preview:   preview,
			Status:    cl.Status,
			CreatedAt: cl.CreatedAt,
		})
	}
	return out, nil
}

func recentPayments(db *gorm.DB, userID uuid.UUID) ([]RecentPayment, error) {
	var rows []models.Payment
	if err := scoped(db.Model(&models.Payment{}), userID).
		Order("created_at DESC, id ASC").
		Limit(recentLimit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]RecentPayment, 0, len(rows))
	for _, p := range rows {
		out = append(out, RecentPayment{
			ID:        p.ID,
			Reference: p.Reference,
			Amount:    float64(p.AmountCents) / 100,
			Method:    p.Method,
			Status:    p.Status,
			CreatedAt: p.CreatedAt,
		})
	}
	return out, nil
}

func renewalCounts(db *gorm.DB, userID uuid.UUID, now time.Time) (upcoming, overdue int64, err error) {
	today, horizon := dateWindow(now)

	if err = scoped(db.Model(&models.Policy{}), userID).
		Where("status = ? AND end_date >= ? AND end_date <= ?", models.PolicyActive, today, horizon).
		Count(&upcoming).Error; err != nil {
		return
	}
	err = scoped(db.Model(&models.Policy{}), userID).
		Where("status = ? AND end_date < ?", models.PolicyActive, today).
		Count(&overdue).Error
	return
}

// BuildAdminSummary runs the global aggregation queries. Read-only.
func BuildAdminSummary(db *gorm.DB, now time.Time) (*AdminSummary, error) {
	out := &AdminSummary{StatusBreakdown: map[string]int64{}}

	if err := db.Model(&models.Policy{}).Count(&out.TotalPolicies).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Payment{}).Count(&out.TotalPayments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Claim{}).Count(&out.TotalClaims).Error; err != nil {
		return nil, err
	}

	var err error
	if out.UpcomingRenewals, out.OverdueRenewals, err = renewalCounts(db, uuid.Nil, now); err != nil {
		return nil, err
	}

	var breakdown []struct {
		Status string
		N      int64
	}
	if err := db.Model(&models.Policy{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&breakdown).Error; err != nil {
		return nil, err
	}
	for _, b := range breakdown {
		out.StatusBreakdown[b.Status] = b.N
	}

	if out.RecentClaims, err = recentClaims(db, uuid.Nil, true); err != nil {
		return nil, err
	}
	if out.RecentPayments, err = recentPayments(db, uuid.Nil); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildUserSummary runs the aggregation queries scoped to one user's
// records only. Read-only.
func BuildUserSummary(db *gorm.DB, userID uuid.UUID, now time.Time) (*UserSummary, error) {
	out := &UserSummary{}

	if err := db.Model(&models.Claim{}).
		Where("user_id = ?", userID).
		Count(&out.ClaimsCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Claim{}).
		Where("user_id = ? AND status = ?", userID, models.ClaimApproved).
		Count(&out.ApprovedClaims).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Claim{}).
		Where("user_id = ? AND status = ?", userID, models.ClaimRejected).
		Count(&out.RejectedClaims).Error; err != nil {
		return nil, err
	}

	var completedCents int64
	if err := db.Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", userID, models.PaymentCompleted).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&completedCents).Error; err != nil {
		return nil, err
	}
	out.TotalCompletedPayments = float64(completedCents) / 100

	if err := db.Model(&models.Policy{}).
		Where("user_id = ?", userID).
		Count(&out.Policies.Total).Error; err != nil {
		return nil, err
	}
	for status, dst := range map[models.PolicyStatus]*int64{
		models.PolicyActive:    &out.Policies.Active,
		models.PolicyExpired:   &out.Policies.Expired,
		models.PolicyCancelled: &out.Policies.Cancelled,
	} {
		if err := db.Model(&models.Policy{}).
			Where("user_id = ? AND status = ?", userID, status).
			Count(dst).Error; err != nil {
			return nil, err
		}
	}

	var err error
	if out.UpcomingRenewals, out.OverdueRenewals, err = renewalCounts(db, userID, now); err != nil {
		return nil, err
	}
	if out.RecentClaims, err = recentClaims(db, userID, false); err != nil {
		return nil, err
	}
	if out.RecentPayments, err = recentPayments(db, userID); err != nil {
		return nil, err
	}
	return out, nil
}
