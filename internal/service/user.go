package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/electroshop/backend/internal/domain"
	"github.com/electroshop/backend/internal/repository"
)

// UserService implements customer profile access and the back-office user
// directory.
type UserService struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	audit  repository.AuditRepository
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	audit repository.AuditRepository,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		audit:  audit,
		logger: logger,
	}
}

// GetUser retrieves a customer account.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfileInput holds the editable profile fields.
type UpdateProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
}

// UpdateProfile edits the customer's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// ListUsers returns the back-office user directory with order aggregates.
func (s *UserService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]domain.UserWithStats, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	users, total, err := s.users.ListWithStats(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

// SetUserActive toggles a customer account on or off. Deactivation also
// revokes every session the user holds, so outstanding refresh tokens die
// with the account.
func (s *UserService) SetUserActive(ctx context.Context, adminID, userID int64, active bool, ipAddress string) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return fmt.Errorf("set user active: %w", err)
	}

	if !active {
		if err := s.tokens.DeleteByPrincipal(ctx, userID, domain.KindUser); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}

	writeAudit(ctx, s.audit, s.logger, adminID, domain.AuditActionToggleUserStatus, "user", userID, ipAddress, map[string]any{
		"active": active,
	})

	s.logger.InfoContext(ctx, "user active flag changed",
		slog.Int64("user_id", userID),
		slog.Bool("active", active),
	)

	return nil
}

// DeleteUser soft deletes a customer account and revokes its sessions. The
// account's orders remain for bookkeeping.
func (s *UserService) DeleteUser(ctx context.Context, adminID, userID int64, ipAddress string) error {
	if err := s.users.SoftDelete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.tokens.DeleteByPrincipal(ctx, userID, domain.KindUser); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	writeAudit(ctx, s.audit, s.logger, adminID, domain.AuditActionDeleteUser, "user", userID, ipAddress, nil)

	s.logger.InfoContext(ctx, "user deleted", slog.Int64("user_id", userID))

	return nil
}
