package quotes

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/jelanihq/insurance-backend/internal/auth"
)

func newQuoteApp() *fiber.App {
	// Production error handler so error bodies keep the JSON envelope.
	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler})
	app.Get("/api/quote", NewHandler().Get)
	return app
}

func Test_QuoteEndpoint_OK(t *testing.T) {
	app := newQuoteApp()

	req := httptest.NewRequest("GET", "/api/quote?age=24&car_type=suv&coverage=full", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != 200 {
		t.Fatalf("got %d", resp.StatusCode)
	}

	var out struct {
		Quote      float64 `json:"quote"`
		Parameters struct {
			Age      int    `json:"age"`
			CarType  string `json:"car_type"`
			Coverage string `json:"coverage"`
		} `json:"parameters"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out.Quote != 1260.00 {
		t.Fatalf("want 1260.00, got %v", out.Quote)
	}
	if out.Parameters.Age != 24 || out.Parameters.CarType != "suv" || out.Parameters.Coverage != "full" {
		t.Fatalf("parameters not echoed: %+v", out.Parameters)
	}
}

func Test_QuoteEndpoint_MalformedAge(t *testing.T) {
	app := newQuoteApp()

	for _, q := range []string{"age=abc", "age=", "age=-3"} {
		req := httptest.NewRequest("GET", "/api/quote?"+q+"&car_type=sedan&coverage=basic", nil)
		resp, _ := app.Test(req)
		if resp.StatusCode != 400 {
			t.Fatalf("%s: want 400, got %d", q, resp.StatusCode)
		}
		var out struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if !strings.Contains(out.Message, "age") {
			t.Fatalf("%s: error should name the offending parameter, got %q", q, out.Message)
		}
	}
}

func Test_QuoteEndpoint_MissingParams(t *testing.T) {
	app := newQuoteApp()

	for _, q := range []string{
		"age=30&coverage=basic",  // car_type absent
		"age=30&car_type=sedan",  // coverage absent
		"age=30&car_type=%20%20", // whitespace car_type
	} {
		req := httptest.NewRequest("GET", "/api/quote?"+q, nil)
		resp, _ := app.Test(req)
		if resp.StatusCode != 400 {
			t.Fatalf("%s: want 400, got %d", q, resp.StatusCode)
		}
	}
}

func Test_QuoteEndpoint_Underage(t *testing.T) {
	app := newQuoteApp()

	req := httptest.NewRequest("GET", "/api/quote?age=17&car_type=sports&coverage=full", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != 400 {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}

func Test_QuoteEndpoint_BadCoverage(t *testing.T) {
	app := newQuoteApp()

	req := httptest.NewRequest("GET", "/api/quote?age=30&car_type=sedan&coverage=platinum", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != 400 {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
}
