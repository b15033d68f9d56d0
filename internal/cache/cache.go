// Package cache provee un cache chico multi-backend (memoria o Redis) usado
// por el replay guard de states y el rate limiter.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound lo devuelve Get cuando la key no existe.
var ErrNotFound = errors.New("cache: not found")

// Client define las operaciones de cache que usa el gateway.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Add guarda solo si la key no existía. Devuelve false si ya estaba.
	Add(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr incrementa un contador; en el primer hit fija el TTL de la ventana.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Close cierra la conexión (no-op en memoria).
	Close() error
}
