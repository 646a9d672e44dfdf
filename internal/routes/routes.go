package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cashpoint/cashpoint/internal/account"
	"github.com/cashpoint/cashpoint/internal/codes"
	"github.com/cashpoint/cashpoint/internal/config"
	"github.com/cashpoint/cashpoint/internal/dispense"
	"github.com/cashpoint/cashpoint/internal/ledger"
	"github.com/cashpoint/cashpoint/internal/lock"
	"github.com/cashpoint/cashpoint/internal/middleware"
	"github.com/cashpoint/cashpoint/internal/notification"
	"github.com/cashpoint/cashpoint/internal/payments"
	"github.com/cashpoint/cashpoint/internal/withdrawal"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Notifier overrides the default logging (and Redis, when configured) notifier.
	Notifier notification.Notifier
	// AccessLog enables the plain text access log.
	AccessLog bool
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.AccessLog {
		// [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var accountRepo account.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
	}

	var locker lock.Locker
	if d.Cache != nil {
		locker = lock.NewRedis(d.Cache, 0)
	} else {
		locker = lock.NewKeyed()
	}

	allocator, err := dispense.New(d.Cfg.Denominations)
	if err != nil {
		return fmt.Errorf("denominations: %w", err)
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(d.Logger)
		if d.Cache != nil {
			notifier = notification.Fanout{notifier, notification.NewRedisNotifier(d.Cache)}
		}
	}

	led := ledger.New()
	accountSvc := account.NewService(accountRepo, d.Cfg.PINHashCost)
	withdrawalSvc, err := withdrawal.NewService(withdrawal.Deps{
		Accounts:  accountRepo,
		Locker:    locker,
		Ledger:    led,
		Registry:  codes.NewRegistry(d.Cfg.CodeTTL),
		Allocator: allocator,
		Notifier:  notifier,
		Logger:    d.Logger,
	}, withdrawal.Options{
		MinAmount:                   d.Cfg.MinWithdrawal,
		LockTimeout:                 d.Cfg.LockTimeout,
		BurnCodeOnInsufficientFunds: d.Cfg.LegacyCodeBurn,
	})
	if err != nil {
		return err
	}
	paymentSvc := payments.NewService(accountRepo, locker, led, notifier, d.Logger, d.Cfg.LockTimeout)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	throttle := middleware.PINRateLimit(d.Cache, d.Cfg.PINAttemptsPerMin)
	RegisterAccountRoutes(api, account.NewHandler(accountSvc), ledger.NewHandler(led, accountSvc), throttle)
	RegisterPaymentRoutes(api, payments.NewHandler(paymentSvc), throttle)
	RegisterWithdrawalRoutes(api, withdrawal.NewHandler(withdrawalSvc), throttle,
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)

	return nil
}
