package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/electroshop/backend/internal/auth"
	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/event"
	"github.com/electroshop/backend/internal/repository"
	apperrors "github.com/electroshop/backend/pkg/errors"
)

// AuthService implements registration, login, token rotation and password
// management for both customers and back-office admins. Admin-specific flows
// live in adminauth.go.
type AuthService struct {
	users        repository.UserRepository
	admins       repository.AdminRepository
	tokens       repository.RefreshTokenRepository
	audit        repository.AuditRepository
	tokenManager *auth.TokenManager
	producer     *event.Producer
	logger       *slog.Logger

	invitationCode string
	bcryptCost     int
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	admins repository.AdminRepository,
	tokens repository.RefreshTokenRepository,
	audit repository.AuditRepository,
	tokenManager *auth.TokenManager,
	producer *event.Producer,
	logger *slog.Logger,
	invitationCode string,
	bcryptCost int,
) *AuthService {
	return &AuthService{
		users:          users,
		admins:         admins,
		tokens:         tokens,
		audit:          audit,
		tokenManager:   tokenManager,
		producer:       producer,
		logger:         logger,
		invitationCode: invitationCode,
		bcryptCost:     bcryptCost,
	}
}

// hashToken returns the hex-encoded SHA-256 digest of a raw refresh token.
// Only the digest is persisted.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// issuePair generates an access and refresh token for the principal and
// stores the refresh token's hash.
func (s *AuthService) issuePair(ctx context.Context, principalID int64, kind string) (*domain.TokenPair, error) {
	accessToken, err := s.tokenManager.GenerateAccessToken(principalID, kind)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.tokenManager.GenerateRefreshToken(principalID, kind)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	record := &domain.RefreshToken{
		PrincipalID: principalID,
		Kind:        kind,
		TokenHash:   hashToken(refreshToken),
		ExpiresAt:   now.Add(s.tokenManager.RefreshExpiry()),
		CreatedAt:   now,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RegisterUserInput holds the parameters for customer registration.
type RegisterUserInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
}

// RegisterUser creates a customer account and signs the customer in.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, *domain.TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, nil, apperrors.AlreadyExists("user", "email", input.Email)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issuePair(ctx, user.ID, domain.KindUser)
	if err != nil {
		return nil, nil, err
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, pair, nil
}

// LoginUser authenticates a customer by email and password.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.IsActive {
		return nil, nil, apperrors.Forbidden("account is deactivated")
	}

	pair, err := s.issuePair(ctx, user.ID, domain.KindUser)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))

	return user, pair, nil
}

// Refresh rotates a refresh token and returns a fresh token pair. The
// presented token is single use: a second presentation finds no stored row
// and is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokenManager.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	oldHash := hashToken(refreshToken)

	record, err := s.tokens.GetByHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Signature was valid but the row is gone: the token has already
			// been rotated or revoked.
			return nil, apperrors.Unauthorized("refresh token has been revoked")
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if record.IsExpired(time.Now().UTC()) {
		if err := s.tokens.Delete(ctx, oldHash); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired refresh token", slog.String("error", err.Error()))
		}
		return nil, apperrors.TokenExpired()
	}

	if err := s.checkPrincipalActive(ctx, claims.PrincipalID, claims.Kind); err != nil {
		return nil, err
	}

	accessToken, err := s.tokenManager.GenerateAccessToken(claims.PrincipalID, claims.Kind)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	newRefresh, err := s.tokenManager.GenerateRefreshToken(claims.PrincipalID, claims.Kind)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	next := &domain.RefreshToken{
		PrincipalID: claims.PrincipalID,
		Kind:        claims.Kind,
		TokenHash:   hashToken(newRefresh),
		ExpiresAt:   now.Add(s.tokenManager.RefreshExpiry()),
		CreatedAt:   now,
	}

	if err := s.tokens.Rotate(ctx, oldHash, next); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Lost the race against a concurrent rotation of the same token.
			return nil, apperrors.Unauthorized("refresh token has been revoked")
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &domain.TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout revokes a refresh token. Logging out with an unknown or already
// revoked token succeeds, which makes the operation idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Delete(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// ChangeUserPassword verifies the current password, stores the new hash and
// revokes every session the user holds.
func (s *AuthService) ChangeUserPassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.tokens.DeleteByPrincipal(ctx, userID, domain.KindUser); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.logger.InfoContext(ctx, "user password changed", slog.Int64("user_id", userID))

	return nil
}

// checkPrincipalActive re-reads the principal and rejects tokens held by
// accounts that were deactivated or deleted after the token was issued.
func (s *AuthService) checkPrincipalActive(ctx context.Context, principalID int64, kind string) error {
	switch kind {
	case domain.KindAdmin:
		admin, err := s.admins.GetByID(ctx, principalID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Unauthorized("account no longer exists")
			}
			return fmt.Errorf("get admin: %w", err)
		}
		if !admin.IsActive {
			return apperrors.Forbidden("account is deactivated")
		}
	default:
		user, err := s.users.GetByID(ctx, principalID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Unauthorized("account no longer exists")
			}
			return fmt.Errorf("get user: %w", err)
		}
		if !user.IsActive {
			return apperrors.Forbidden("account is deactivated")
		}
	}
	return nil
}
