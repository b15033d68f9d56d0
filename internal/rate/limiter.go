// Package rate implementa un rate limiter de ventana fija sobre el cache,
// usado en /auth/login y /auth/callback por IP.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/janus/internal/cache"
)

type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter: fixed window sencillo (INCR + EXPIRE) sobre cache.Client.
type Limiter struct {
	cache  cache.Client
	prefix string
}

func NewLimiter(c cache.Client, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &Limiter{cache: c, prefix: prefix}
}

// Allow cuenta un hit para la key en la ventana actual.
// Ante un error del backend deja pasar: el limiter nunca voltea requests por
// estar caído el cache.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{Allowed: true, Remaining: int64(limit)}, nil
	}
	now := time.Now().UTC()
	winStart := now.Truncate(window)
	resetAt := winStart.Add(window)
	bucket := fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	hits, err := l.cache.Incr(ctx, bucket, window)
	if err != nil {
		return Result{Allowed: true, Remaining: int64(limit), ResetAt: resetAt}, err
	}

	remaining := int64(limit) - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:   hits <= int64(limit),
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = time.Until(resetAt)
		if res.RetryAfter < 0 {
			res.RetryAfter = window
		}
	}
	return res, nil
}
