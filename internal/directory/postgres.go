package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresDirectory reads user profiles from the users table.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgres creates a directory backed by the given database handle.
func NewPostgres(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// FindByID returns the user with the given ID, or nil if none exists.
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `
		SELECT id, name, skills_teach, skills_learn, badges, points
		FROM users
		WHERE id = $1`

	var u User
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		pq.Array(&u.SkillsTeach),
		pq.Array(&u.SkillsLearn),
		pq.Array(&u.Badges),
		&u.Points,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("directory: find user %s: %w", id, err)
	}
	return &u, nil
}

// Find returns all users except excludeID, ordered by ID so callers get a
// stable candidate sequence.
func (d *PostgresDirectory) Find(ctx context.Context, excludeID string) ([]User, error) {
	const query = `
		SELECT id, name, skills_teach, skills_learn, badges, points
		FROM users
		WHERE id <> $1
		ORDER BY id`

	rows, err := d.db.QueryContext(ctx, query, excludeID)
	if err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID,
			&u.Name,
			pq.Array(&u.SkillsTeach),
			pq.Array(&u.SkillsLearn),
			pq.Array(&u.Badges),
			&u.Points,
		); err != nil {
			return nil, fmt.Errorf("directory: scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	return users, nil
}
