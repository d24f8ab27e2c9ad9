package auth

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/logging"
	"github.com/user/cropadvisor-go/validation"
)

// maxAuthBody bounds register and login bodies.
const maxAuthBody = 16 << 10

// Handlers wraps the AuthService and SessionManager to provide HTTP handlers
type Handlers struct {
	service  *AuthService
	sessions *SessionManager
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service *AuthService, sessions *SessionManager) *Handlers {
	return &Handlers{service: service, sessions: sessions}
}

// HandleRegister godoc
// @Summary User Registration
// @Description Registers a new user. Does not log the user in.
// @Tags Auth
// @Accept json
// @Produce json
// @Param registerBody body auth.RegisterRequest true "User registration details"
// @Success 200 {object} auth.MessageResponse "Registration successful"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input or username already exists"
// @Failure 429 {object} apperror.ErrorResponse "Too many requests"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /register [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		if _, err := h.service.Register(r.Context(), req); err != nil {
			WriteError(w, r, err)
			return
		}

		WriteJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Registration successful"})
	}
}

// HandleLogin godoc
// @Summary User Login
// @Description Verifies credentials and starts a session carried by an HttpOnly cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "User login credentials"
// @Success 200 {object} auth.MessageResponse "Login successful, session cookie set"
// @Failure 400 {object} apperror.ErrorResponse "Invalid input"
// @Failure 401 {object} apperror.ErrorResponse "Invalid credentials"
// @Failure 429 {object} apperror.ErrorResponse "Too many requests"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		user, err := h.service.Login(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		// A previous session on this client is replaced, not kept alongside.
		if err := h.sessions.Revoke(r); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to delete previous session")
		}
		if _, err := h.sessions.Start(r.Context(), w, user); err != nil {
			WriteError(w, r, apperror.NewInternalError("failed to start session", err))
			return
		}

		WriteJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Login successful"})
	}
}

// HandleLogout godoc
// @Summary User Logout
// @Description Ends the current session, if any, and clears the cookie. Always succeeds.
// @Tags Auth
// @Produce json
// @Success 200 {object} auth.MessageResponse "Logged out"
// @Router /logout [post]
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.sessions.End(w, r); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to delete session on logout")
		}
		WriteJSON(w, http.StatusOK, MessageResponse{Success: true})
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags. On failure
// it writes the 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(dst); err != nil {
		WriteError(w, r, apperror.NewBadRequestError("Invalid JSON body", err))
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		WriteError(w, r, verr.ToAppError())
		return false
	}
	return true
}

// Helper functions for writing responses

// WriteJSON serializes data to JSON and writes it with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil { // Avoid writing nil, which can result in "null" response body
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logging.Error().Err(err).Msg("failed to encode response")
		}
	}
}

// WriteError uses the apperror system to write standardized error responses.
// Errors that are not AppErrors become a generic 500. Server errors are logged with the
// request's logger; their details never reach the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("unexpected error", err)
	}

	if appErr.IsServerError() {
		logging.Ctx(r.Context()).Error().
			Err(appErr).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	WriteJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
