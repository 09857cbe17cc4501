package db

import (
	"context"
	"database/sql"
)

// Uniqueness is enforced here, not in application code: one user per
// sub, one active user per email. Concurrent first logins with the
// same identity race on INSERT and the loser gets a constraint error
// instead of a duplicate account.
const usersMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    sub text NOT NULL,
    email text,
    full_name text,
    short_name text,
    password text NOT NULL DEFAULT '!',
    is_active boolean NOT NULL DEFAULT true,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT users_sub_unique UNIQUE (sub)
);

CREATE UNIQUE INDEX IF NOT EXISTS users_active_email_lower_unique
ON users (LOWER(email))
WHERE is_active AND email IS NOT NULL;
`

func RunMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, usersMigration)
	return err
}
