package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit allows maxPerMin requests per client IP and scope in a fixed
// one-minute window. It is a no-op without Redis and fails open on cache errors.
func RateLimit(cache redis.Cmdable, scope string, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		window := time.Now().UTC().Truncate(time.Minute).Unix()
		key := "walletpay:rl:" + scope + ":" + c.IP() + ":" + strconv.FormatInt(window, 10)

		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "too many "+scope+" requests, try again later")
		}
		return c.Next()
	}
}
