package store

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/dropDatabas3/janus/migrations/postgres"
)

// PG es el directorio sobre Postgres (tabla portal_user).
type PG struct {
	pool *pgxpool.Pool
}

func OpenPG(ctx context.Context, dsn string) (*PG, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PG{pool: pool}, nil
}

// Migrate aplica las migraciones embebidas en orden lexical. Los statements
// son idempotentes (IF NOT EXISTS), así que correrlo de nuevo es seguro.
func (p *PG) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return err
		}
		if _, err := p.pool.Exec(ctx, string(sql)); err != nil {
			return errors.Join(errors.New("migration "+name), err)
		}
	}
	return nil
}

// Ping chequea la conexión del pool (readyz).
func (p *PG) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PG) FindByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var u User
	err := p.pool.QueryRow(ctx, `
SELECT id, username, email, COALESCE(display_name, '')
FROM portal_user
WHERE lower(username) = $1
LIMIT 1`, username).Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Provision crea la cuenta si no existe (select-then-insert; la unique
// constraint resuelve la carrera rara de dos callbacks simultáneos).
func (p *PG) Provision(ctx context.Context, username, email, displayName string) (*User, error) {
	if u, err := p.FindByUsername(ctx, username); err == nil {
		return u, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	var u User
	err := p.pool.QueryRow(ctx, `
INSERT INTO portal_user (username, email, display_name)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO UPDATE SET email = EXCLUDED.email
RETURNING id, username, email, COALESCE(display_name, '')`,
		strings.ToLower(strings.TrimSpace(username)), email, displayName,
	).Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *PG) Close() error {
	p.pool.Close()
	return nil
}
