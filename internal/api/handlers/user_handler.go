package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/postboard-be/internal/auth"
	"github.com/isdelr/postboard-be/internal/services"
	"github.com/rs/zerolog/log"
)

const (
	signupSucceeded = "회원 가입이 완료되었습니다."
	signinSucceeded = "로그인 성공"
	databaseCleared = "Database cleared."
)

// UserHandler handles account registration, sign-in and the reset route.
type UserHandler struct {
	service       services.UserServiceProvider
	maintenance   services.MaintenanceServiceProvider
	issuer        *auth.TokenIssuer
	secureCookies bool
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, maintenance services.MaintenanceServiceProvider, issuer *auth.TokenIssuer, secureCookies bool) *UserHandler {
	return &UserHandler{
		service:       service,
		maintenance:   maintenance,
		issuer:        issuer,
		secureCookies: secureCookies,
	}
}

// CredentialsPayload is the body of /signup and /signin.
type CredentialsPayload struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult reports the outcome of /signup and /signin. Rejections are
// success=false with a 200 status.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// Signup handles new user registration.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	_, err := h.service.Signup(r.Context(), payload.Username, payload.Password)
	if errors.Is(err, services.ErrUserExists) {
		writeJSON(w, http.StatusOK, AuthResult{Success: false, Message: services.ErrUserExists.Message})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Info().Str("username", payload.Username).Msg("User registered")
	writeJSON(w, http.StatusOK, AuthResult{Success: true, Message: signupSucceeded})
}

// Signin checks credentials and, on success, issues a bearer token in the
// body and as an HttpOnly cookie.
func (h *UserHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.Signin(r.Context(), payload.Username, payload.Password)
	switch {
	case errors.Is(err, services.ErrUserNotRegistered):
		writeJSON(w, http.StatusOK, AuthResult{Success: false, Message: services.ErrUserNotRegistered.Message})
		return
	case errors.Is(err, services.ErrWrongPassword):
		log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		writeJSON(w, http.StatusOK, AuthResult{Success: false, Message: services.ErrWrongPassword.Message})
		return
	case err != nil:
		writeError(w, r, err)
		return
	}

	token, expiresAt, err := h.issuer.Generate(user)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to generate JWT")
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, AuthResult{Success: true, Message: signinSucceeded, Token: token})
}

// Clear drops and recreates the users and posts tables.
func (h *UserHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.maintenance.ResetDatabase(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	log.Warn().Msg("Database cleared")
	writeJSON(w, http.StatusOK, MessageResponse{Message: databaseCleared})
}
