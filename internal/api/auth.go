package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lms/internal/accounts"
	"lms/internal/recovery"
)

type AuthHandler struct {
	accounts *accounts.Service
	recovery *recovery.Flow
	cookies  sessionCookies
	uploads  *uploadStager
}

func NewAuthHandler(accountService *accounts.Service, recoveryFlow *recovery.Flow, cookies sessionCookies, uploads *uploadStager) *AuthHandler {
	return &AuthHandler{
		accounts: accountService,
		recovery: recoveryFlow,
		cookies:  cookies,
		uploads:  uploads,
	}
}

type RegisterRequest struct {
	FullName string `validate:"required,min=3,max=50"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// POST /api/v1/user/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	scope, cleanup, ok := h.uploads.begin(w, r)
	if !ok {
		return
	}
	defer cleanup()

	req := RegisterRequest{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	if err := validateRequest(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	avatar, err := h.uploads.stage(r, scope, "avatar")
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	user, session, err := h.accounts.Register(r.Context(), accounts.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   avatar,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.cookies.set(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusCreated, UserResponse{
		Success: true,
		Message: "User registered successfully",
		User:    user,
		Token:   session.Token,
	})
}

// POST /api/v1/user/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.cookies.set(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, UserResponse{
		Success: true,
		Message: "User logged in successfully",
		User:    user,
		Token:   session.Token,
	})
}

// POST /api/v1/user/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w)
	writeMessage(w, http.StatusOK, "User logged out successfully")
}

// POST /api/v1/user/reset
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.recovery.ForgotPassword(r.Context(), req.Email); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Reset password token has been sent to "+req.Email+" successfully")
}

// POST /api/v1/user/reset/{resetToken}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "resetToken")

	var req ResetPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.recovery.ResetPassword(r.Context(), token, req.Password); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully")
}
