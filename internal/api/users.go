package api

import (
	"net/http"

	"lms/internal/accounts"
	"lms/internal/recovery"
)

type UserHandler struct {
	accounts *accounts.Service
	recovery *recovery.Flow
	uploads  *uploadStager
}

func NewUserHandler(accountService *accounts.Service, recoveryFlow *recovery.Flow, uploads *uploadStager) *UserHandler {
	return &UserHandler{
		accounts: accountService,
		recovery: recoveryFlow,
		uploads:  uploads,
	}
}

type UpdateProfileRequest struct {
	FullName *string `validate:"omitempty,min=3,max=50"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required,max=72"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// GET /api/v1/user/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), GetUserID(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		Success: true,
		Message: "User details",
		User:    user,
	})
}

// PUT /api/v1/user/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	scope, cleanup, ok := h.uploads.begin(w, r)
	if !ok {
		return
	}
	defer cleanup()

	req := UpdateProfileRequest{FullName: formValue(r, "fullName")}
	if err := validateRequest(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	avatar, err := h.uploads.stage(r, scope, "avatar")
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), GetUserID(r), accounts.UpdateProfileInput{
		FullName: req.FullName,
		Avatar:   avatar,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		Success: true,
		Message: "User details updated successfully",
		User:    user,
	})
}

// POST /api/v1/user/change-password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.recovery.ChangePassword(r.Context(), GetUserID(r), req.OldPassword, req.NewPassword); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully")
}
