package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantScope is a pooled connection pinned to one project. The connection
// has app.current_project_id set, which the row-level security policies on
// the credential and webhook tables evaluate.
type TenantScope struct {
	Conn *pgxpool.Conn
}

// Close resets the project setting and returns the connection to the pool.
// Must always be called; a connection released with the setting still in
// place would leak one project's scope into another request.
func (s *TenantScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_project_id")
	s.Conn.Release()
}

// WithTenant acquires a connection scoped to the given project.
// Callers must defer scope.Close().
func (db *DB) WithTenant(ctx context.Context, projectID uuid.UUID) (*TenantScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(ctx,
		"SELECT set_config('app.current_project_id', $1, false)",
		projectID.String()); err != nil {
		conn.Release()
		return nil, err
	}

	return &TenantScope{Conn: conn}, nil
}

// WithoutTenant acquires an unscoped connection, for operations that run
// before a project exists (provisioning) or span projects (tests).
// Callers must defer scope.Close().
func (db *DB) WithoutTenant(ctx context.Context) (*TenantScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &TenantScope{Conn: conn}, nil
}
