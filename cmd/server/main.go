// @title           Jelani Insurance API
// @version         1.0
// @description     Insurance backend: accounts, policies, claims, payments, quotes and dashboards.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/jelanihq/insurance-backend/internal/auth"
	"github.com/jelanihq/insurance-backend/internal/cache"
	"github.com/jelanihq/insurance-backend/internal/claims"
	"github.com/jelanihq/insurance-backend/internal/dashboard"
	"github.com/jelanihq/insurance-backend/internal/payments"
	"github.com/jelanihq/insurance-backend/internal/policies"
	"github.com/jelanihq/insurance-backend/internal/quotes"
	"github.com/jelanihq/insurance-backend/internal/storage"
	"github.com/jelanihq/insurance-backend/pkg/database"
	"github.com/jelanihq/insurance-backend/pkg/models"
)

func main() {
	_ = godotenv.Load()

	db := database.Init()
	if err := db.AutoMigrate(
		&models.User{}, &models.Policy{}, &models.Claim{}, &models.Payment{}, &models.AuditLog{},
	); err != nil {
		log.Fatal("migration failed:", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
	})

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")

	// Auth
	authH := auth.NewHandler(db)
	api.Post("/signup", authH.Signup)
	api.Post("/login", authH.Login)
	api.Get("/me", auth.RequireAuth(), authH.Me)

	// Quote calculator (stateless, open)
	quoteH := quotes.NewHandler()
	api.Get("/quote", quoteH.Get)

	// Storage helper for claim documents
	sb := storage.NewSupabase() // uses SUPABASE_URL / SUPABASE_SERVICE_KEY / SUPABASE_BUCKET

	// Claims — owner operations, plus the staff decision step
	claimH := claims.NewHandler(db, sb)
	api.Post("/claims", auth.RequireAuth(), claimH.Create)
	api.Get("/claims", auth.RequireAuth(), claimH.ListMine)
	api.Get("/claims/:id", auth.RequireAuth(), claimH.Get)
	api.Post("/claims/:id/document", auth.RequireAuth(), claimH.UploadDocument)
	api.Get("/claims/:id/document/signed-url", auth.RequireAuth(), claimH.SignedDocumentURL)
	api.Patch("/claims/:id/status", auth.RequireAuth(), auth.RequireStaff(), claimH.UpdateStatus)

	// Payments — owner operations, plus the staff settlement step
	payH := payments.NewHandler(db)
	api.Post("/payments", auth.RequireAuth(), payH.Create)
	api.Get("/payments", auth.RequireAuth(), payH.ListMine)
	api.Get("/payments/:id", auth.RequireAuth(), payH.Get)
	api.Post("/payments/:id/settle", auth.RequireAuth(), auth.RequireStaff(), payH.Settle)

	// Policies — owner reads and cancel; staff underwriting feed and sweep
	polH := policies.NewHandler(db)
	api.Get("/policies", auth.RequireAuth(), polH.ListMine)
	api.Post("/policies", auth.RequireAuth(), auth.RequireStaff(), polH.Create)
	api.Post("/policies/expire-due", auth.RequireAuth(), auth.RequireStaff(), polH.ExpireDue)
	api.Get("/policies/:id", auth.RequireAuth(), polH.Get)
	api.Post("/policies/:id/cancel", auth.RequireAuth(), polH.Cancel)

	// Dashboard — shape depends on the caller's staff flag
	dashH := dashboard.NewHandler(db, cache.NewFromEnv())
	api.Get("/dashboard", auth.RequireAuth(), dashH.Get)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Println("Server running on :" + port)
	log.Fatal(app.Listen(":" + port))
}
