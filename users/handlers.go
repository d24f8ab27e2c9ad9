package users

import (
	"net/http"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/auth"
)

// UserHandlers provides HTTP handlers for user profiles.
type UserHandlers struct {
	service *UserService
}

// NewUserHandlers creates new UserHandlers.
func NewUserHandlers(service *UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

// HandleGetUserProfile godoc
// @Summary Get current user's profile
// @Description Retrieves the profile of the user owning the session cookie.
// @Tags users
// @Produce json
// @Security SessionCookie
// @Success 200 {object} UserProfileResponse "Successfully retrieved user profile"
// @Failure 401 {object} apperror.ErrorResponse "Authentication required"
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /api/me [get]
func (h *UserHandlers) HandleGetUserProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := auth.IdentityFromContext(r.Context())
		if identity == nil {
			// RequireAuth normally answers first; this covers a router without it.
			auth.WriteError(w, r, apperror.NewAuthError("Authentication required", nil))
			return
		}

		profile, err := h.service.GetUserProfile(r.Context(), identity.UserID)
		if err != nil {
			auth.WriteError(w, r, err) // service layer returns apperror types
			return
		}

		auth.WriteJSON(w, http.StatusOK, profile)
	}
}
