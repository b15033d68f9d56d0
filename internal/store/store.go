// Package store es el directorio de usuarios locales del portal: resuelve la
// identidad federada (el valor del user-name claim del provider) a un usuario
// local. Drivers: memoria (dev/test) y Postgres.
package store

import (
	"context"
	"errors"
)

// ErrUserNotFound indica que ninguna cuenta local matchea la identidad
// federada. El flujo lo traduce a UserResolutionError (distinto de un fallo
// del provider).
var ErrUserNotFound = errors.New("store: user not found")

// User is a local portal account.
type User struct {
	ID          string
	Username    string // valor del user-name claim (normalmente el email)
	Email       string
	DisplayName string
}

// Directory resolves federated identities to local users.
type Directory interface {
	// FindByUsername busca por el valor del user-name claim.
	FindByUsername(ctx context.Context, username string) (*User, error)
	Close() error
}

// Provisioner lo implementan los drivers que saben crear la cuenta local
// cuando no existe (deploys con auto-provisioning habilitado).
type Provisioner interface {
	Provision(ctx context.Context, username, email, displayName string) (*User, error)
}
