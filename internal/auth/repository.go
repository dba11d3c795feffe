package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, name, display_name, username, email, password_hash, role, zone, branch, registered_modules, created_at, updated_at`

// Insert stores a new user.
func (r *PGRepository) Insert(ctx context.Context, user User) (User, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (name, display_name, username, email, password_hash, role, zone, branch, registered_modules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		user.Name, user.DisplayName, user.Username, user.Email, user.PasswordHash, user.Role, user.Zone, user.Branch,
		user.RegisteredModules, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("auth: insert user: %w", err)
	}
	return user, nil
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Get fetches a user by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// List returns users ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update overwrites the mutable columns of a user.
func (r *PGRepository) Update(ctx context.Context, user User) (User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET name = $2, display_name = $3, username = $4, email = $5,
		password_hash = $6, role = $7, zone = $8, branch = $9, registered_modules = $10, updated_at = $11
		WHERE id = $1`,
		user.ID, user.Name, user.DisplayName, user.Username, user.Email, user.PasswordHash, user.Role, user.Zone,
		user.Branch, user.RegisteredModules, user.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("auth: update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrNotFound
	}
	return user, nil
}

// Delete removes a user.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) scanOne(ctx context.Context, query string, arg any) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.DisplayName, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.Zone, &user.Branch, &user.RegisteredModules, &user.CreatedAt, &user.UpdatedAt)
	if user.RegisteredModules == nil {
		user.RegisteredModules = []string{}
	}
	return user, err
}
