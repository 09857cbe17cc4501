package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/RussPalms/docs-dev-0a/internal/db"
)

// Columns a partial update may touch. The sub is only written when an
// externally provisioned account is claimed on its first login; once
// set it never changes.
var updatableColumns = map[string]bool{
	"sub":        true,
	"email":      true,
	"full_name":  true,
	"short_name": true,
}

// PGStore is the canonical postgres-backed user store.
type PGStore struct {
	db *db.DB
}

func NewPGStore(db *db.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `
	id,
	sub,
	COALESCE(email, ''),
	COALESCE(full_name, ''),
	COALESCE(short_name, ''),
	is_active
`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Sub, &u.Email, &u.FullName, &u.ShortName, &u.IsActive)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetBySubOrEmail looks an account up by subject first, falling back
// to the email of active accounts. The subject match always wins; an
// email-only match pointing at an account already claimed by a
// different subject is a duplicate and fails rather than guessing.
func (s *PGStore) GetBySubOrEmail(ctx context.Context, sub, email string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE sub = $1
	`, sub))

	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if email == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
		  AND is_active
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*User
	for rows.Next() {
		m, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(matches) == 0:
		return nil, nil
	case len(matches) > 1:
		return nil, fmt.Errorf("%w: several active users share the email %s", ErrDuplicateIdentity, email)
	}

	match := matches[0]
	if match.Sub != "" && match.Sub != sub {
		return nil, fmt.Errorf("%w: the email %s already belongs to another subject", ErrDuplicateIdentity, email)
	}

	return match, nil
}

// Create inserts a new OIDC-provisioned account. The password column
// receives the unusable marker; these accounts never log in locally.
func (s *PGStore) Create(ctx context.Context, u User) (*User, error) {
	created, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (sub, email, full_name, short_name, password, is_active)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, true)
		RETURNING `+userColumns+`
	`,
		u.Sub,
		u.Email,
		u.FullName,
		u.ShortName,
		UnusablePassword,
	))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return created, nil
}

// Update applies a partial update to the given columns only; other
// columns keep their current value.
func (s *PGStore) Update(ctx context.Context, id uuid.UUID, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}

	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableColumns[col] {
			return fmt.Errorf("update user: column %q is not updatable", col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := []any{id}
	for i, col := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+2))
		args = append(args, fields[col])
	}
	assignments = append(assignments, "updated_at = NOW()")

	query := "UPDATE users SET " + strings.Join(assignments, ", ") + " WHERE id = $1"

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("update user: no user with id %s", id)
	}

	return nil
}
