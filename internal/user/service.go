package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/digital-diner/backend/internal/auth"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	Register(ctx context.Context, username, email, password, role string) (*User, string, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*User, string, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type service struct {
	repo   Repository
	tokens *auth.Manager
}

func NewService(repo Repository, tokens *auth.Manager) Service {
	return &service{repo: repo, tokens: tokens}
}

// Register создаёт пользователя с bcrypt-хешем пароля и сразу выдаёт токен.
func (s *service) Register(ctx context.Context, username, email, password, role string) (*User, string, error) {
	if role == "" {
		role = auth.RoleCustomer
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, "", fmt.Errorf("service: failed to hash password: %w", err)
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashBytes),
		Role:         role,
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			log.Warn().Str("email", email).Msg("service: registration with existing email")
			return nil, "", ErrEmailExists
		}
		if errors.Is(err, ErrUsernameExists) {
			log.Warn().Str("username", username).Msg("service: registration with existing username")
			return nil, "", ErrUsernameExists
		}

		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, "", fmt.Errorf("service: failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(created.ID, created.Email, created.Role)
	if err != nil {
		return nil, "", fmt.Errorf("service: failed to issue token: %w", err)
	}

	log.Info().Stringer("user_id", created.ID).Str("role", created.Role).Msg("service: user registered")

	return created, token, nil
}

// Login принимает имя пользователя или email; по какой колонке искать,
// решаем по наличию «@».
func (s *service) Login(ctx context.Context, usernameOrEmail, password string) (*User, string, error) {
	var (
		u   *User
		err error
	)

	if isEmail(usernameOrEmail) {
		u, err = s.repo.GetByEmail(ctx, usernameOrEmail)
	} else {
		u, err = s.repo.GetByUsername(ctx, usernameOrEmail)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("login", usernameOrEmail).Msg("service: login attempt for unknown user")
			return nil, "", ErrInvalidCredentials
		}

		log.Error().Err(err).Msg("service: failed to fetch user for login")
		return nil, "", fmt.Errorf("service: failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Warn().Stringer("user_id", u.ID).Msg("service: password mismatch")
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, "", fmt.Errorf("service: failed to issue token: %w", err)
	}

	return u, token, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to fetch user by id")
		return nil, fmt.Errorf("service: failed to fetch user by id: %w", err)
	}

	return u, nil
}

func isEmail(s string) bool {
	for _, r := range s {
		if r == '@' {
			return true
		}
	}
	return false
}
