package policies

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jelanihq/insurance-backend/internal/auth"
	"github.com/jelanihq/insurance-backend/pkg/models"
)

/* ===== helpers ===== */

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Fatal("TEST_DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Policy{}, &models.Claim{}, &models.Payment{}, &models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	audit_logs,
	payments,
	claims,
	policies,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

func injectAuth(userID uuid.UUID, staff bool) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("staff", staff)
		return c.Next()
	}
}

func newTestApp(h *Handler, userID uuid.UUID, staff bool) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Use(injectAuth(userID, staff))
	app.Get("/api/policies", h.ListMine)
	app.Post("/api/policies", h.Create)
	app.Post("/api/policies/expire-due", h.ExpireDue)
	app.Get("/api/policies/:id", h.Get)
	app.Post("/api/policies/:id/cancel", h.Cancel)
	return app
}

func seedUser(t *testing.T, db *gorm.DB, staff bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	u := models.User{
		ID:       id,
		Username: "u_" + id.String()[:8],
		Email:    fmt.Sprintf("u+%s@test.local", id.String()[:8]),
		IsStaff:  staff,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatal(err)
	}
	return id
}

func seedPolicy(t *testing.T, db *gorm.DB, userID uuid.UUID, status models.PolicyStatus, endDate time.Time) models.Policy {
	t.Helper()
	p := models.Policy{
		UserID:       userID,
		PolicyNumber: "POL-" + uuid.NewString()[:8],
		PolicyType:   "auto",
		StartDate:    endDate.AddDate(-1, 0, 0),
		EndDate:      endDate,
		PremiumCents: 50000,
		Status:       status,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return p
}

/* ================== TESTS ================== */

func Test_CreatePolicy_DateOrderEnforced(t *testing.T) {
	db := openTestDB(t)
	staff := seedUser(t, db, true)
	owner := seedUser(t, db, false)
	app := newTestApp(NewHandler(db), staff, true)

	body := `{"user_id":"` + owner.String() + `","policy_number":"POL-20260001","policy_type":"auto","start_date":"2026-09-01","end_date":"2026-01-01","premium":120}`
	req := httptest.NewRequest("POST", "/api/policies", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 400 {
		t.Fatalf("end before start want 400, got %d", resp.StatusCode)
	}

	body = `{"user_id":"` + owner.String() + `","policy_number":"POL-20260001","policy_type":"auto","start_date":"2026-01-01","end_date":"2026-12-31","premium":120}`
	req = httptest.NewRequest("POST", "/api/policies", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != 201 {
		t.Fatalf("valid policy want 201, got %d", resp.StatusCode)
	}

	// Duplicate policy number conflicts.
	req = httptest.NewRequest("POST", "/api/policies", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != 409 {
		t.Fatalf("duplicate policy number want 409, got %d", resp.StatusCode)
	}
}

func Test_CreatePolicy_BlankPolicyNumberRejected(t *testing.T) {
	db := openTestDB(t)
	staff := seedUser(t, db, true)
	owner := seedUser(t, db, false)
	app := newTestApp(NewHandler(db), staff, true)

	body := `{"user_id":"` + owner.String() + `","policy_number":"    ","policy_type":"auto","start_date":"2026-01-01","end_date":"2026-12-31","premium":120}`
	req := httptest.NewRequest("POST", "/api/policies", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != 400 {
		t.Fatalf("whitespace policy number want 400, got %d", resp.StatusCode)
	}

	var cnt int64
	if err := db.Model(&models.Policy{}).Count(&cnt).Error; err != nil {
		t.Fatal(err)
	}
	if cnt != 0 {
		t.Fatalf("blank policy must not persist, got %d rows", cnt)
	}
}

func Test_Cancel_MonotonicTransition(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, false)
	p := seedPolicy(t, db, owner, models.PolicyActive, time.Now().AddDate(1, 0, 0))

	app := newTestApp(NewHandler(db), owner, false)

	resp, _ := app.Test(httptest.NewRequest("POST", "/api/policies/"+p.ID.String()+"/cancel", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("cancel want 200, got %d", resp.StatusCode)
	}

	// Cancelled is terminal.
	resp, _ = app.Test(httptest.NewRequest("POST", "/api/policies/"+p.ID.String()+"/cancel", nil))
	if resp.StatusCode != 409 {
		t.Fatalf("second cancel want 409, got %d", resp.StatusCode)
	}

	var got models.Policy
	if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PolicyCancelled {
		t.Fatalf("want cancelled, got %q", got.Status)
	}
}

func Test_Cancel_NonOwner_NotFound(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, false)
	other := seedUser(t, db, false)
	p := seedPolicy(t, db, owner, models.PolicyActive, time.Now().AddDate(1, 0, 0))

	app := newTestApp(NewHandler(db), other, false)
	resp, _ := app.Test(httptest.NewRequest("POST", "/api/policies/"+p.ID.String()+"/cancel", nil))
	if resp.StatusCode != 404 {
		t.Fatalf("non-owner cancel want 404, got %d", resp.StatusCode)
	}
}

func Test_ExpireDue_SweepsOnlyOverdueActive(t *testing.T) {
	db := openTestDB(t)
	staff := seedUser(t, db, true)
	owner := seedUser(t, db, false)
	now := time.Now()

	overdue := seedPolicy(t, db, owner, models.PolicyActive, now.AddDate(0, 0, -2))
	current := seedPolicy(t, db, owner, models.PolicyActive, now.AddDate(0, 0, 20))
	cancelled := seedPolicy(t, db, owner, models.PolicyCancelled, now.AddDate(0, 0, -2))

	app := newTestApp(NewHandler(db), staff, true)
	resp, _ := app.Test(httptest.NewRequest("POST", "/api/policies/expire-due", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("sweep want 200, got %d", resp.StatusCode)
	}
	var out struct {
		Expired int64 `json:"expired"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out.Expired != 1 {
		t.Fatalf("want 1 expired, got %d", out.Expired)
	}

	check := func(id uuid.UUID, want models.PolicyStatus) {
		var p models.Policy
		if err := db.First(&p, "id = ?", id).Error; err != nil {
			t.Fatal(err)
		}
		if p.Status != want {
			t.Fatalf("policy %s: want %q, got %q", id, want, p.Status)
		}
	}
	check(overdue.ID, models.PolicyExpired)
	check(current.ID, models.PolicyActive)
	check(cancelled.ID, models.PolicyCancelled)

	// Each swept policy leaves an audit row; untouched ones leave none.
	var audits int64
	if err := db.Model(&models.AuditLog{}).
		Where("entity = ? AND action = ?", "policy", "expired").
		Count(&audits).Error; err != nil {
		t.Fatal(err)
	}
	if audits != 1 {
		t.Fatalf("want 1 expiry audit row, got %d", audits)
	}
	var row models.AuditLog
	if err := db.First(&row, "entity_id = ?", overdue.ID).Error; err != nil {
		t.Fatalf("audit row for swept policy missing: %v", err)
	}
	if row.ActorID != staff || row.OldStatus != "active" || row.NewStatus != "expired" {
		t.Fatalf("unexpected audit row: %+v", row)
	}
}

func Test_ListPolicies_OnlyMine(t *testing.T) {
	db := openTestDB(t)
	alice := seedUser(t, db, false)
	bob := seedUser(t, db, false)
	seedPolicy(t, db, alice, models.PolicyActive, time.Now().AddDate(1, 0, 0))
	seedPolicy(t, db, bob, models.PolicyActive, time.Now().AddDate(1, 0, 0))

	app := newTestApp(NewHandler(db), alice, false)
	resp, _ := app.Test(httptest.NewRequest("GET", "/api/policies", nil))
	if resp.StatusCode != 200 {
		t.Fatalf("got %d", resp.StatusCode)
	}
	var out struct {
		Total int64 `json:"total"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out.Total != 1 {
		t.Fatalf("want only my policy, got total=%d", out.Total)
	}
}
