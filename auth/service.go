package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/config"
	"github.com/user/cropadvisor-go/logging"
	"github.com/user/cropadvisor-go/metrics"
)

// Messages returned to clients. Login failures share one message so the response never
// reveals whether the username exists.
const (
	msgUsernameTaken      = "Username already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgPasswordTooLong    = "password must be at most 72 bytes"
)

// AuthService holds the registration and login rules.
type AuthService struct {
	users      UserRepository
	bcryptCost int
	dummyHash  []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserRepository, cfg *config.AuthConfig) *AuthService {
	return &AuthService{
		users:      users,
		bcryptCost: cfg.BcryptCost,
		dummyHash:  newDummyHash(cfg.BcryptCost),
	}
}

// Register creates a user with a bcrypt hash of password. A taken username, including
// one taken by a concurrent registration, is a DuplicateError.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	hash, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		// The validate tag counts characters; bcrypt's limit is in bytes.
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			metrics.RecordRegistration("invalid")
			return nil, apperror.NewValidationError(msgPasswordTooLong, err)
		}
		metrics.RecordRegistration("error")
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	user, err := s.users.Create(ctx, req.Username, hash)
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			metrics.RecordRegistration("duplicate")
			return nil, apperror.NewDuplicateError(msgUsernameTaken, err)
		}
		metrics.RecordRegistration("error")
		return nil, apperror.NewDatabaseError("failed to create user", err)
	}

	metrics.RecordRegistration("success")
	logging.Ctx(ctx).Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login verifies the credentials and returns the user. Unknown usernames and wrong
// passwords both return InvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*User, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Compare against a hash at the configured cost, like a known user would.
			_, _ = checkPassword(string(s.dummyHash), req.Password)
			metrics.RecordLogin("invalid_credentials")
			return nil, apperror.NewInvalidCredentialsError(msgInvalidCredentials, nil)
		}
		metrics.RecordLogin("error")
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}

	ok, err := checkPassword(user.PasswordHash, req.Password)
	if err != nil {
		metrics.RecordLogin("error")
		return nil, apperror.NewInternalError("failed to verify password", err)
	}
	if !ok {
		metrics.RecordLogin("invalid_credentials")
		return nil, apperror.NewInvalidCredentialsError(msgInvalidCredentials, nil)
	}

	metrics.RecordLogin("success")
	return user, nil
}
