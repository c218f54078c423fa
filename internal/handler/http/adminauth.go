package http

import (
	"log/slog"
	"net/http"

	"github.com/electroshop/backend/internal/service"
	"github.com/electroshop/backend/pkg/httputil"
)

// AdminAuthHandler handles HTTP requests for the admin auth surface,
// including the optional TOTP second factor.
type AdminAuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAdminAuthHandler creates a new admin auth HTTP handler.
func NewAdminAuthHandler(svc *service.AuthService, logger *slog.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// VerifyTwoFactorRequest is the JSON request body for completing a
// two-factor login.
type VerifyTwoFactorRequest struct {
	PendingToken string `json:"pending_token" validate:"required"`
	Code         string `json:"code" validate:"required,len=6"`
}

// TwoFactorCodeRequest is the JSON request body for enabling the second
// factor.
type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// DisableTwoFactorRequest is the JSON request body for disabling the second
// factor. Turning it off demands both factors again.
type DisableTwoFactorRequest struct {
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required,len=6"`
}

// --- Response types ---

// AdminLoginResponse is the login payload. When a second factor is required
// no tokens are issued; the client must call verify-2fa with the pending
// token and a TOTP code.
type AdminLoginResponse struct {
	SessionResponse
	TwoFactorRequired bool   `json:"two_factor_required"`
	PendingToken      string `json:"pending_token,omitempty"`
}

// TwoFactorSetupResponse carries the provisioning secret for an
// authenticator app.
type TwoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

// --- Handlers ---

// Register handles POST /api/admin/auth/register
func (h *AdminAuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterAdminInput
	if !decode(w, r, &req) {
		return
	}
	req.IPAddress = clientIP(r)

	admin, tokens, err := h.service.RegisterAdmin(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "registered", SessionResponse{Admin: admin, Tokens: tokens})
}

// Login handles POST /api/admin/auth/login
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.service.LoginAdmin(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if result.TwoFactorRequired {
		httputil.WriteSuccess(w, http.StatusOK, "two-factor code required", AdminLoginResponse{
			TwoFactorRequired: true,
			PendingToken:      result.PendingToken,
		})
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "logged in", AdminLoginResponse{
		SessionResponse: SessionResponse{Admin: result.Admin, Tokens: result.Pair},
	})
}

// VerifyTwoFactor handles POST /api/admin/auth/verify-2fa
func (h *AdminAuthHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req VerifyTwoFactorRequest
	if !decode(w, r, &req) {
		return
	}

	admin, tokens, err := h.service.VerifySecondFactor(r.Context(), req.PendingToken, req.Code, clientIP(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "logged in", SessionResponse{Admin: admin, Tokens: tokens})
}

// ChangePassword handles POST /api/admin/auth/change-password
func (h *AdminAuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.ChangeAdminPassword(r.Context(), admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "password changed", nil)
}

// SetupTwoFactor handles POST /api/admin/auth/2fa/setup. It generates a
// secret but does not enable the second factor until the admin confirms a
// code via the enable endpoint.
func (h *AdminAuthHandler) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	secret, url, err := h.service.SetupTwoFactor(r.Context(), admin.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "two-factor setup started", TwoFactorSetupResponse{
		Secret:     secret,
		OTPAuthURL: url,
	})
}

// EnableTwoFactor handles POST /api/admin/auth/2fa/enable
func (h *AdminAuthHandler) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	var req TwoFactorCodeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.EnableTwoFactor(r.Context(), admin.ID, req.Code, clientIP(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "two-factor enabled", nil)
}

// DisableTwoFactor handles POST /api/admin/auth/2fa/disable
func (h *AdminAuthHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	admin := AdminFromContext(r.Context())

	var req DisableTwoFactorRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.service.DisableTwoFactor(r.Context(), admin.ID, req.Password, req.Code, clientIP(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "two-factor disabled", nil)
}
