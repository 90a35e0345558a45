// Package ratelimit implements a fixed-window per-client request limiter.
package ratelimit
