package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func platformApp(token string) *fiber.App {
	app := fiber.New()
	app.Post("/mint", PlatformOnly(token), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestPlatformOnlyAcceptsMatchingToken(t *testing.T) {
	app := platformApp("s3cret")

	req := httptest.NewRequest(fiber.MethodPost, "/mint", nil)
	req.Header.Set(platformTokenHeader, "s3cret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestPlatformOnlyRejectsMissingOrWrongToken(t *testing.T) {
	app := platformApp("s3cret")

	for _, token := range []string{"", "wrong"} {
		req := httptest.NewRequest(fiber.MethodPost, "/mint", nil)
		if token != "" {
			req.Header.Set(platformTokenHeader, token)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusForbidden {
			t.Fatalf("token %q: expected 403, got %d", token, resp.StatusCode)
		}
	}
}

func TestPlatformOnlyFailsClosedWithoutConfiguredToken(t *testing.T) {
	app := platformApp("")

	req := httptest.NewRequest(fiber.MethodPost, "/mint", nil)
	req.Header.Set(platformTokenHeader, "anything")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 with unset token, got %d", resp.StatusCode)
	}
}
