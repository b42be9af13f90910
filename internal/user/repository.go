package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, u *User) (*User, error) {
	userID, genErr := uuid.NewV4()
	if genErr != nil {
		return nil, fmt.Errorf("repository: failed to generate user ID: %w", genErr)
	}

	u.ID = userID
	u.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO users (id, username, email, password, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == "users_username_key" {
				return nil, ErrUsernameExists
			}
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("repository: failed to insert user: %w", err)
	}

	return u, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getBy(ctx, `WHERE id = $1`, id)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, `WHERE email = $1`, email)
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getBy(ctx, `WHERE username = $1`, username)
}

func (r *postgresRepository) getBy(ctx context.Context, where string, arg interface{}) (*User, error) {
	query := `SELECT id, username, email, password, role, created_at FROM users ` + where

	var u User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user: %w", err)
	}

	return &u, nil
}
