package user_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/digital-diner/backend/internal/auth"
	"github.com/digital-diner/backend/internal/user"
)

type mockRepository struct {
	createFunc        func(ctx context.Context, u *user.User) (*user.User, error)
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*user.User, error)
	getByEmailFunc    func(ctx context.Context, email string) (*user.User, error)
	getByUsernameFunc func(ctx context.Context, username string) (*user.User, error)
}

func (m *mockRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	return m.createFunc(ctx, u)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return m.getByUsernameFunc(ctx, username)
}

func TestService_Register(t *testing.T) {
	tokens := auth.NewManager("test-secret")

	t.Run("hashes password and defaults role", func(t *testing.T) {
		var stored *user.User
		svc := user.NewService(&mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (*user.User, error) {
				stored = u
				created := *u
				created.ID = uuid.Must(uuid.NewV4())
				return &created, nil
			},
		}, tokens)

		created, token, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret-pass", "")
		require.NoError(t, err)

		assert.NotEmpty(t, token)
		assert.Equal(t, auth.RoleCustomer, created.Role)

		require.NotNil(t, stored)
		assert.NotEqual(t, "s3cret-pass", stored.PasswordHash, "password must not be stored in plain text")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")))

		claims, err := tokens.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, created.ID, claims.UserID)
		assert.Equal(t, auth.RoleCustomer, claims.Role)
	})

	t.Run("keeps explicit role", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (*user.User, error) {
				created := *u
				created.ID = uuid.Must(uuid.NewV4())
				return &created, nil
			},
		}, tokens)

		created, _, err := svc.Register(context.Background(), "boss", "boss@example.com", "s3cret-pass", auth.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, created.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (*user.User, error) {
				return nil, user.ErrEmailExists
			},
		}, tokens)

		_, _, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret-pass", "")
		assert.ErrorIs(t, err, user.ErrEmailExists)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			createFunc: func(ctx context.Context, u *user.User) (*user.User, error) {
				return nil, user.ErrUsernameExists
			},
		}, tokens)

		_, _, err := svc.Register(context.Background(), "alice", "alice2@example.com", "s3cret-pass", "")
		assert.ErrorIs(t, err, user.ErrUsernameExists)
	})
}

func TestService_Login(t *testing.T) {
	tokens := auth.NewManager("test-secret")

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	existing := &user.User{
		ID:           uuid.Must(uuid.NewV4()),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         auth.RoleCustomer,
	}

	t.Run("by email", func(t *testing.T) {
		usernameLookups := 0
		svc := user.NewService(&mockRepository{
			getByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				assert.Equal(t, "alice@example.com", email)
				return existing, nil
			},
			getByUsernameFunc: func(ctx context.Context, username string) (*user.User, error) {
				usernameLookups++
				return nil, user.ErrNotFound
			},
		}, tokens)

		u, token, err := svc.Login(context.Background(), "alice@example.com", "s3cret-pass")
		require.NoError(t, err)

		assert.Equal(t, existing.ID, u.ID)
		assert.NotEmpty(t, token)
		assert.Zero(t, usernameLookups, "a login with @ must go to the email column")
	})

	t.Run("by username", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			getByUsernameFunc: func(ctx context.Context, username string) (*user.User, error) {
				assert.Equal(t, "alice", username)
				return existing, nil
			},
		}, tokens)

		_, token, err := svc.Login(context.Background(), "alice", "s3cret-pass")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			getByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				return nil, user.ErrNotFound
			},
		}, tokens)

		_, _, err := svc.Login(context.Background(), "ghost@example.com", "s3cret-pass")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			getByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				return existing, nil
			},
		}, tokens)

		_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong-pass")
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})
}

func TestService_GetByID(t *testing.T) {
	tokens := auth.NewManager("test-secret")

	t.Run("not found", func(t *testing.T) {
		svc := user.NewService(&mockRepository{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
				return nil, user.ErrNotFound
			},
		}, tokens)

		_, err := svc.GetByID(context.Background(), uuid.Must(uuid.NewV4()))
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("success", func(t *testing.T) {
		id := uuid.Must(uuid.NewV4())
		svc := user.NewService(&mockRepository{
			getByIDFunc: func(ctx context.Context, gotID uuid.UUID) (*user.User, error) {
				assert.Equal(t, id, gotID)
				return &user.User{ID: id, Username: "alice"}, nil
			},
		}, tokens)

		u, err := svc.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
	})
}
