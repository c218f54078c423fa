package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/electroshop/backend/internal/auth"
	"github.com/electroshop/backend/internal/domain"
	apperrors "github.com/electroshop/backend/pkg/errors"
)

// RegisterAdminInput holds the parameters for back-office registration.
type RegisterAdminInput struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	FullName       string `json:"full_name" validate:"required,max=200"`
	Role           string `json:"role" validate:"required"`
	InvitationCode string `json:"invitation_code" validate:"required"`
	IPAddress      string `json:"-"`
}

// AdminLoginResult is what an admin login produces. When the account has a
// second factor enabled no token pair is issued; the caller must present a
// TOTP code together with the short-lived pending token first.
type AdminLoginResult struct {
	Admin             *domain.Admin
	Pair              *domain.TokenPair
	PendingToken      string
	TwoFactorRequired bool
}

// RegisterAdmin creates a back-office account. Registration is gated by a
// shared invitation code, and the super role can be claimed only once.
func (s *AuthService) RegisterAdmin(ctx context.Context, input RegisterAdminInput) (*domain.Admin, *domain.TokenPair, error) {
	if s.invitationCode == "" ||
		subtle.ConstantTimeCompare([]byte(input.InvitationCode), []byte(s.invitationCode)) != 1 {
		return nil, nil, apperrors.Forbidden("invalid invitation code")
	}

	if !domain.IsValidAdminRole(input.Role) {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", input.Role))
	}

	if input.Role == domain.AdminRoleSuper {
		count, err := s.admins.CountByRole(ctx, domain.AdminRoleSuper)
		if err != nil {
			return nil, nil, fmt.Errorf("count super admins: %w", err)
		}
		if count > 0 {
			return nil, nil, apperrors.Forbidden("a super admin already exists")
		}
	}

	if _, err := s.admins.GetByEmail(ctx, input.Email); err == nil {
		return nil, nil, apperrors.AlreadyExists("admin", "email", input.Email)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	permissions := domain.DefaultPermissions()
	if input.Role == domain.AdminRoleSuper {
		permissions = domain.AllPermissions()
	}

	now := time.Now().UTC()
	admin := &domain.Admin{
		Email:        input.Email,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Role:         input.Role,
		Permissions:  permissions,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, nil, fmt.Errorf("create admin: %w", err)
	}

	pair, err := s.issuePair(ctx, admin.ID, domain.KindAdmin)
	if err != nil {
		return nil, nil, err
	}

	s.recordAudit(ctx, &admin.ID, domain.AuditActionRegister, "admin", &admin.ID, input.IPAddress, map[string]any{
		"email": admin.Email,
		"role":  admin.Role,
	})

	s.logger.InfoContext(ctx, "admin registered",
		slog.Int64("admin_id", admin.ID),
		slog.String("role", admin.Role),
	)

	return admin, pair, nil
}

// LoginAdmin authenticates a back-office account by email and password.
// Accounts with a second factor enabled receive a pending token instead of a
// full session.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password, ipAddress string) (*AdminLoginResult, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.recordAudit(ctx, nil, domain.AuditActionLoginFailed, "admin", nil, ipAddress, map[string]any{"email": email})
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.recordAudit(ctx, &admin.ID, domain.AuditActionLoginFailed, "admin", &admin.ID, ipAddress, map[string]any{"email": email})
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	if !admin.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	if admin.TwoFactorEnabled {
		pending, err := s.tokenManager.GenerateTwoFactorPendingToken(admin.ID)
		if err != nil {
			return nil, fmt.Errorf("generate pending token: %w", err)
		}
		return &AdminLoginResult{
			Admin:             admin,
			PendingToken:      pending,
			TwoFactorRequired: true,
		}, nil
	}

	pair, err := s.issuePair(ctx, admin.ID, domain.KindAdmin)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &admin.ID, domain.AuditActionLogin, "admin", &admin.ID, ipAddress, nil)

	s.logger.InfoContext(ctx, "admin logged in", slog.Int64("admin_id", admin.ID))

	return &AdminLoginResult{Admin: admin, Pair: pair}, nil
}

// VerifySecondFactor exchanges a pending token and a valid TOTP code for a
// full session.
func (s *AuthService) VerifySecondFactor(ctx context.Context, pendingToken, code, ipAddress string) (*domain.Admin, *domain.TokenPair, error) {
	claims, err := s.tokenManager.VerifyTwoFactorPendingToken(pendingToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, nil, apperrors.TokenExpired()
		}
		return nil, nil, apperrors.Unauthorized("invalid verification token")
	}

	admin, err := s.admins.GetByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("account no longer exists")
		}
		return nil, nil, fmt.Errorf("get admin: %w", err)
	}

	if !admin.IsActive {
		return nil, nil, apperrors.Forbidden("account is deactivated")
	}

	if !admin.TwoFactorEnabled || admin.TwoFactorSecret == "" {
		return nil, nil, apperrors.Unauthorized("two-factor authentication is not enabled")
	}

	if !auth.VerifyTwoFactorCode(code, admin.TwoFactorSecret) {
		s.recordAudit(ctx, &admin.ID, domain.AuditActionLoginFailed, "admin", &admin.ID, ipAddress, map[string]any{"reason": "invalid 2fa code"})
		return nil, nil, apperrors.Unauthorized("invalid verification code")
	}

	pair, err := s.issuePair(ctx, admin.ID, domain.KindAdmin)
	if err != nil {
		return nil, nil, err
	}

	s.recordAudit(ctx, &admin.ID, domain.AuditActionLogin, "admin", &admin.ID, ipAddress, nil)

	s.logger.InfoContext(ctx, "admin completed second factor", slog.Int64("admin_id", admin.ID))

	return admin, pair, nil
}

// ChangeAdminPassword verifies the current password, stores the new hash and
// revokes every session the admin holds.
func (s *AuthService) ChangeAdminPassword(ctx context.Context, adminID int64, currentPassword, newPassword string) error {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return fmt.Errorf("get admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.admins.UpdatePassword(ctx, adminID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.tokens.DeleteByPrincipal(ctx, adminID, domain.KindAdmin); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.logger.InfoContext(ctx, "admin password changed", slog.Int64("admin_id", adminID))

	return nil
}

// SetupTwoFactor generates and stores a TOTP secret for the admin without
// enabling it. The admin confirms possession of the secret via
// EnableTwoFactor before it takes effect.
func (s *AuthService) SetupTwoFactor(ctx context.Context, adminID int64) (secret, otpauthURL string, err error) {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return "", "", fmt.Errorf("get admin: %w", err)
	}

	if admin.TwoFactorEnabled {
		return "", "", apperrors.Conflict("two-factor authentication is already enabled")
	}

	secret, otpauthURL, err = auth.GenerateTwoFactorSecret(admin.Email)
	if err != nil {
		return "", "", fmt.Errorf("generate two-factor secret: %w", err)
	}

	if err := s.admins.UpdateTwoFactor(ctx, adminID, secret, false); err != nil {
		return "", "", fmt.Errorf("store two-factor secret: %w", err)
	}

	return secret, otpauthURL, nil
}

// EnableTwoFactor turns on the second factor after the admin proves they can
// generate a valid code from the stored secret.
func (s *AuthService) EnableTwoFactor(ctx context.Context, adminID int64, code, ipAddress string) error {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return fmt.Errorf("get admin: %w", err)
	}

	if admin.TwoFactorEnabled {
		return apperrors.Conflict("two-factor authentication is already enabled")
	}

	if admin.TwoFactorSecret == "" {
		return apperrors.InvalidInput("two-factor setup has not been started")
	}

	if !auth.VerifyTwoFactorCode(code, admin.TwoFactorSecret) {
		return apperrors.Unauthorized("invalid verification code")
	}

	if err := s.admins.UpdateTwoFactor(ctx, adminID, admin.TwoFactorSecret, true); err != nil {
		return fmt.Errorf("enable two-factor: %w", err)
	}

	s.recordAudit(ctx, &adminID, domain.AuditActionEnableTwoFactor, "admin", &adminID, ipAddress, nil)

	s.logger.InfoContext(ctx, "admin enabled two-factor", slog.Int64("admin_id", adminID))

	return nil
}

// DisableTwoFactor turns off the second factor and discards the stored
// secret. Both factors are re-proven: the current password and a valid code.
func (s *AuthService) DisableTwoFactor(ctx context.Context, adminID int64, password, code, ipAddress string) error {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return fmt.Errorf("get admin: %w", err)
	}

	if !admin.TwoFactorEnabled {
		return apperrors.Conflict("two-factor authentication is not enabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	if !auth.VerifyTwoFactorCode(code, admin.TwoFactorSecret) {
		return apperrors.Unauthorized("invalid verification code")
	}

	if err := s.admins.UpdateTwoFactor(ctx, adminID, "", false); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}

	s.recordAudit(ctx, &adminID, domain.AuditActionDisableTwoFactor, "admin", &adminID, ipAddress, nil)

	s.logger.InfoContext(ctx, "admin disabled two-factor", slog.Int64("admin_id", adminID))

	return nil
}

// recordAudit appends a best-effort audit entry. A failed write is logged
// and never fails the operation it describes.
func (s *AuthService) recordAudit(ctx context.Context, adminID *int64, action, entity string, entityID *int64, ipAddress string, details map[string]any) {
	entry := &domain.AuditEntry{
		AdminID:   adminID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		IPAddress: ipAddress,
		CreatedAt: time.Now().UTC(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = raw
		}
	}

	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to write audit entry",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
