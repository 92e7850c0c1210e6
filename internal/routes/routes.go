package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tamvai/wallet-service/internal/auth"
	"github.com/tamvai/wallet-service/internal/config"
	"github.com/tamvai/wallet-service/internal/identity"
	"github.com/tamvai/wallet-service/internal/ledger"
	"github.com/tamvai/wallet-service/internal/middleware"
	"github.com/tamvai/wallet-service/internal/notification"
	"github.com/tamvai/wallet-service/internal/purchases"
	"github.com/tamvai/wallet-service/internal/transfer"
	"github.com/tamvai/wallet-service/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	authHandler := auth.NewHandler(identitySvc, authSvc)

	notifier := notification.NewLoggerNotifier(d.Logger)
	walletSvc := wallet.NewService(ledgerBackend)
	walletHandler := wallet.NewHandler(walletSvc)
	transferSvc := transfer.NewService(ledgerBackend, notifier)
	transferHandler := transfer.NewHandler(transferSvc)
	purchasesSvc := purchases.NewService(ledgerBackend, notifier)
	purchasesHandler := purchases.NewHandler(purchasesSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	RegisterAuthRoutes(api, authHandler, jwtmw)

	// Protected routes
	protected := api.Group("", jwtmw)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"handle":     user.Handle,
			"created_at": user.CreatedAt,
		})
	})
	RegisterWalletRoutes(protected, walletHandler)

	rateLimiter := middleware.TransferRateLimit(d.Cache, d.Cfg.TransfersPerMin)
	platformGuard := middleware.PlatformOnly(d.Cfg.PlatformToken)
	RegisterTransferRoutes(protected, transferHandler, rateLimiter)
	RegisterPurchaseRoutes(protected, purchasesHandler, rateLimiter, platformGuard)

	return nil
}
