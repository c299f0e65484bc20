package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const submitRatePrefix = "rl:submit:"

// SubmitRateLimit caps submissions per credential per minute using Redis.
// Without Redis, or when Redis fails, requests pass through.
func SubmitRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 20
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := tokenFingerprint(c)
		if subject == "" {
			subject = c.IP()
		}
		key := submitRatePrefix + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many submissions, try again later")
		}
		return c.Next()
	}
}
