// Package users serves the profile of the logged-in user.
package users

import "time"

// UserProfileResponse represents the data returned for a user profile.
// @Description User profile information
type UserProfileResponse struct {
	Success bool `json:"success" example:"true"`
	// The ID of the user
	ID int64 `json:"id" example:"1"`
	// The username of the user
	Username string `json:"username" example:"farmer01"`
	// The time the user was created
	CreatedAt time.Time `json:"created_at" example:"2024-06-01T10:30:00Z"`
}
