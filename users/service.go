package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/auth"
)

// UserService reads user profiles from the same repository the auth package writes.
type UserService struct {
	users auth.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(users auth.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetUserProfile retrieves a user's profile by their ID.
func (s *UserService) GetUserProfile(ctx context.Context, userID int64) (*UserProfileResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", userID), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user profile", err)
	}

	return &UserProfileResponse{
		Success:   true,
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}, nil
}
