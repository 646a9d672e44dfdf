package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const pinFailurePrefix = "rl:pin:"

// PINRateLimit throttles credential guessing per account. Only responses
// rejected with 401 count as failures; once maxPerMin failures are recorded
// within a minute further attempts get 429 until the window expires.
// It is a no-op without Redis and fails open on cache errors.
func PINRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		number := targetAccount(c)
		if number == "" {
			return c.Next()
		}
		key := pinFailurePrefix + number

		cnt, err := cache.Get(c.UserContext(), key).Int64()
		if err == nil && cnt >= int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many failed credential attempts, try again later")
		}

		err = c.Next()
		if !isUnauthorized(c, err) {
			return err
		}

		n, incrErr := cache.Incr(c.UserContext(), key).Result()
		if incrErr == nil && n == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		return err
	}
}

func targetAccount(c *fiber.Ctx) string {
	if n := c.Params("number"); n != "" {
		return n
	}
	var req struct {
		AccountNumber string `json:"account_number"`
		FromAccount   string `json:"from_account"`
	}
	_ = c.BodyParser(&req)
	if n := strings.TrimSpace(req.AccountNumber); n != "" {
		return n
	}
	return strings.TrimSpace(req.FromAccount)
}

func isUnauthorized(c *fiber.Ctx, err error) bool {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code == http.StatusUnauthorized
	}
	return err == nil && c.Response().StatusCode() == http.StatusUnauthorized
}
