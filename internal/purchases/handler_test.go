package purchases

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tamvai/wallet-service/internal/ledger"
	"github.com/tamvai/wallet-service/internal/middleware"
)

const testPlatformToken = "platform-secret"

func setupPurchasesApp(t *testing.T, led ledger.Ledger, userID string) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	})
	h := NewHandler(NewService(led, nil))
	app.Post("/deposits", middleware.PlatformOnly(testPlatformToken), h.Deposit)
	app.Post("/purchases", h.Purchase)
	return app
}

func post(t *testing.T, app *fiber.App, path, body, platformToken string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if platformToken != "" {
		req.Header.Set("X-Platform-Token", platformToken)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(payload, &decoded)
	return resp.StatusCode, decoded
}

func TestHandlerDepositRejectsPlainUser(t *testing.T) {
	led := ledger.NewInMemory()
	app := setupPurchasesApp(t, led, "mallory")

	status, _ := post(t, app, "/deposits", `{"amount":1000000}`, "")
	if status != fiber.StatusForbidden {
		t.Fatalf("expected 403 without platform token, got %d", status)
	}

	if _, err := led.BalanceFor(context.Background(), "mallory"); !errors.Is(err, ledger.ErrWalletNotFound) {
		t.Fatal("rejected deposit still created a wallet")
	}
}

func TestHandlerDepositRejectsWrongToken(t *testing.T) {
	led := ledger.NewInMemory()
	app := setupPurchasesApp(t, led, "mallory")

	status, _ := post(t, app, "/deposits", `{"amount":500}`, "guess")
	if status != fiber.StatusForbidden {
		t.Fatalf("expected 403 with wrong token, got %d", status)
	}
}

func TestHandlerDepositWithPlatformToken(t *testing.T) {
	led := ledger.NewInMemory()
	app := setupPurchasesApp(t, led, "amara")

	status, body := post(t, app, "/deposits", `{"amount":500,"client_ref":"d-1"}`, testPlatformToken)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if body["balance"].(float64) != 500 {
		t.Fatalf("unexpected balance: %v", body["balance"])
	}
}

func TestHandlerPurchaseInsufficientFunds(t *testing.T) {
	led := ledger.NewInMemory()
	ledger.SeedBalance(led, "amara", 50)
	app := setupPurchasesApp(t, led, "amara")

	status, _ := post(t, app, "/purchases", `{"item_ref":"course:go-101","amount":200}`, "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if bal, _ := led.BalanceFor(context.Background(), "amara"); bal != 50 {
		t.Fatalf("failed purchase mutated balance: %d", bal)
	}
}
