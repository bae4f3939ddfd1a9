package auth

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

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

func newAuthApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/signup", h.Signup)
	app.Post("/api/login", h.Login)
	app.Get("/api/me", RequireAuth(), h.Me)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

/* ================== TESTS ================== */

func Test_Signup_Then_Login_UsernameOrEmail(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	app := newAuthApp(NewHandler(db))

	code, out := postJSON(t, app, "/api/signup",
		`{"username":"amara","email":"Amara@Example.com","password":"hunter22","phone_number":"+254 700 123456"}`)
	if code != 201 {
		t.Fatalf("signup want 201, got %d (%v)", code, out)
	}
	if tok, _ := out["token"].(string); tok == "" {
		t.Fatal("signup must issue a token")
	}

	// Login by username
	code, out = postJSON(t, app, "/api/login", `{"login":"amara","password":"hunter22"}`)
	if code != 200 {
		t.Fatalf("login by username want 200, got %d (%v)", code, out)
	}

	// Login by email (normalized to lowercase at signup)
	code, out = postJSON(t, app, "/api/login", `{"login":"amara@example.com","password":"hunter22"}`)
	if code != 200 {
		t.Fatalf("login by email want 200, got %d (%v)", code, out)
	}
	token, _ := out["token"].(string)

	// Wrong password
	code, _ = postJSON(t, app, "/api/login", `{"login":"amara","password":"nope"}`)
	if code != 401 {
		t.Fatalf("wrong password want 401, got %d", code)
	}

	// Unknown login
	code, _ = postJSON(t, app, "/api/login", `{"login":"ghost","password":"hunter22"}`)
	if code != 401 {
		t.Fatalf("unknown login want 401, got %d", code)
	}

	// /me with the issued token goes through the real middleware
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("/me want 200, got %d", resp.StatusCode)
	}
	var me UserProfileResponse
	_ = json.NewDecoder(resp.Body).Decode(&me)
	if me.Username != "amara" || me.Email != "amara@example.com" || me.IsStaff {
		t.Fatalf("unexpected profile: %+v", me)
	}
}

func Test_Signup_DuplicateConflict(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	app := newAuthApp(NewHandler(db))

	code, _ := postJSON(t, app, "/api/signup",
		`{"username":"dup","email":"dup@test.local","password":"secret1"}`)
	if code != 201 {
		t.Fatalf("first signup want 201, got %d", code)
	}
	code, _ = postJSON(t, app, "/api/signup",
		`{"username":"dup","email":"other@test.local","password":"secret1"}`)
	if code != 409 {
		t.Fatalf("duplicate username want 409, got %d", code)
	}
	code, _ = postJSON(t, app, "/api/signup",
		`{"username":"dup2","email":"dup@test.local","password":"secret1"}`)
	if code != 409 {
		t.Fatalf("duplicate email want 409, got %d", code)
	}
}

func Test_Me_RequiresToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	app := newAuthApp(NewHandler(db))

	resp, _ := app.Test(httptest.NewRequest("GET", "/api/me", nil))
	if resp.StatusCode != 401 {
		t.Fatalf("no token want 401, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, _ = app.Test(req)
	if resp.StatusCode != 401 {
		t.Fatalf("garbage token want 401, got %d", resp.StatusCode)
	}
}
