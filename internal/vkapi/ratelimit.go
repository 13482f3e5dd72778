package vkapi

import (
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

// newLimiter creates a rate limiter from config values with env overrides.
// The platform throttles user tokens at 3 rps.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 3
	}
	if burst <= 0 {
		burst = 10
	}
	if v := os.Getenv("VK_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	if v := os.Getenv("VK_API_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
