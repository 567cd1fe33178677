package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const uniqueViolation = "23505"

// DBTX is the subset of pgxpool.Pool the service needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Service struct {
	db DBTX
}

func NewService(db DBTX) *Service {
	return &Service{db: db}
}

const createUser = `INSERT INTO users (username, password_hash)
VALUES ($1, $2)
RETURNING id::text, username, password_hash, created_at`

func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	var u User
	err = s.db.QueryRow(ctx, createUser, username, hash).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUsernameExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

const getUserByUsername = `SELECT id::text, username, password_hash, created_at
FROM users
WHERE username = $1`

func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, getUserByUsername, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown user or a wrong
// password so callers cannot tell the two apart.
func (s *Service) Authenticate(ctx context.Context, username, password string) error {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !CheckPassword(password, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

const deleteUser = `DELETE FROM users WHERE username = $1`

func (s *Service) Delete(ctx context.Context, username string) error {
	tag, err := s.db.Exec(ctx, deleteUser, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
