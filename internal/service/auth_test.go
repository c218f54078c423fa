package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/electroshop/backend/internal/auth"
	"github.com/electroshop/backend/internal/domain"
	apperrors "github.com/electroshop/backend/pkg/errors"
)

const testInvitationCode = "team-invite-2024"

type authFixture struct {
	users  *mockUserRepository
	admins *mockAdminRepository
	tokens *mockTokenRepository
	audit  *mockAuditRepository
	tm     *auth.TokenManager
	svc    *AuthService
}

func newAuthFixture() *authFixture {
	users := new(mockUserRepository)
	admins := new(mockAdminRepository)
	tokens := new(mockTokenRepository)
	audit := new(mockAuditRepository)
	tm := auth.NewTokenManager("test-access-secret", "test-refresh-secret", time.Hour, 24*time.Hour, 5*time.Minute)
	svc := NewAuthService(users, admins, tokens, audit, tm, newTestProducer(), newTestLogger(), testInvitationCode, bcrypt.MinCost)
	return &authFixture{users: users, admins: admins, tokens: tokens, audit: audit, tm: tm, svc: svc}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func activeUser(t *testing.T) *domain.User {
	return &domain.User{
		ID:           7,
		Email:        "jane@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		FirstName:    "Jane",
		LastName:     "Doe",
		IsActive:     true,
	}
}

// --- RegisterUser ---

func TestRegisterUser_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "jane@example.com").Return(nil, apperrors.ErrNotFound)
	f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 7
		}).
		Return(nil)
	f.tokens.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	user, pair, err := f.svc.RegisterUser(ctx, RegisterUserInput{
		Email:     "jane@example.com",
		Password:  "correct horse",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.True(t, user.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// The stored record carries the hash, not the raw token.
	stored := f.tokens.Calls[0].Arguments.Get(1).(*domain.RefreshToken)
	assert.Equal(t, hashToken(pair.RefreshToken), stored.TokenHash)
	assert.NotEqual(t, pair.RefreshToken, stored.TokenHash)

	f.users.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "jane@example.com").Return(activeUser(t), nil)

	_, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{
		Email:     "jane@example.com",
		Password:  "correct horse",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	f.users.AssertExpectations(t)
}

// --- LoginUser ---

func TestLoginUser_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "jane@example.com").Return(activeUser(t), nil)
	f.tokens.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	user, pair, err := f.svc.LoginUser(ctx, "jane@example.com", "correct horse")

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.NotEmpty(t, pair.AccessToken)

	claims, err := f.tm.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.PrincipalID)
	assert.Equal(t, domain.KindUser, claims.Kind)

	f.users.AssertExpectations(t)
}

func TestLoginUser_WrongPassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "jane@example.com").Return(activeUser(t), nil)

	_, _, err := f.svc.LoginUser(ctx, "jane@example.com", "wrong")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLoginUser_UnknownEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, apperrors.ErrNotFound)

	_, _, err := f.svc.LoginUser(ctx, "nobody@example.com", "whatever")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLoginUser_Deactivated(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user := activeUser(t)
	user.IsActive = false
	f.users.On("GetByEmail", ctx, "jane@example.com").Return(user, nil)

	_, _, err := f.svc.LoginUser(ctx, "jane@example.com", "correct horse")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

// --- Refresh ---

func validRecord(hash string) *domain.RefreshToken {
	now := time.Now().UTC()
	return &domain.RefreshToken{
		ID:          5,
		PrincipalID: 7,
		Kind:        domain.KindUser,
		TokenHash:   hash,
		ExpiresAt:   now.Add(24 * time.Hour),
		CreatedAt:   now,
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	refreshToken, err := f.tm.GenerateRefreshToken(7, domain.KindUser)
	require.NoError(t, err)
	oldHash := hashToken(refreshToken)

	f.tokens.On("GetByHash", ctx, oldHash).Return(validRecord(oldHash), nil)
	f.users.On("GetByID", ctx, int64(7)).Return(activeUser(t), nil)
	f.tokens.On("Rotate", ctx, oldHash, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	pair, err := f.svc.Refresh(ctx, refreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, refreshToken, pair.RefreshToken)

	f.tokens.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestRefresh_ReplayedTokenRejected(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	refreshToken, err := f.tm.GenerateRefreshToken(7, domain.KindUser)
	require.NoError(t, err)

	// The hash is gone from the store: this token was already rotated.
	f.tokens.On("GetByHash", ctx, hashToken(refreshToken)).Return(nil, apperrors.ErrNotFound)

	_, err = f.svc.Refresh(ctx, refreshToken)

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	f.tokens.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_RotationRaceRejected(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	refreshToken, err := f.tm.GenerateRefreshToken(7, domain.KindUser)
	require.NoError(t, err)
	oldHash := hashToken(refreshToken)

	f.tokens.On("GetByHash", ctx, oldHash).Return(validRecord(oldHash), nil)
	f.users.On("GetByID", ctx, int64(7)).Return(activeUser(t), nil)
	// A concurrent request rotated the same token between our read and write.
	f.tokens.On("Rotate", ctx, oldHash, mock.AnythingOfType("*domain.RefreshToken")).Return(apperrors.ErrNotFound)

	_, err = f.svc.Refresh(ctx, refreshToken)

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_StoredRecordExpired(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	refreshToken, err := f.tm.GenerateRefreshToken(7, domain.KindUser)
	require.NoError(t, err)
	oldHash := hashToken(refreshToken)

	record := validRecord(oldHash)
	record.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	f.tokens.On("GetByHash", ctx, oldHash).Return(record, nil)
	f.tokens.On("Delete", ctx, oldHash).Return(nil)

	_, err = f.svc.Refresh(ctx, refreshToken)

	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	f.tokens.AssertCalled(t, "Delete", ctx, oldHash)
}

func TestRefresh_DeactivatedPrincipalRejected(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	refreshToken, err := f.tm.GenerateRefreshToken(7, domain.KindUser)
	require.NoError(t, err)
	oldHash := hashToken(refreshToken)

	user := activeUser(t)
	user.IsActive = false

	f.tokens.On("GetByHash", ctx, oldHash).Return(validRecord(oldHash), nil)
	f.users.On("GetByID", ctx, int64(7)).Return(user, nil)

	_, err = f.svc.Refresh(ctx, refreshToken)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	f.tokens.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	accessToken, err := f.tm.GenerateAccessToken(7, domain.KindUser)
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, accessToken)

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_GarbageRejected(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.Refresh(context.Background(), "not-a-jwt")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// --- Logout ---

func TestLogout_Idempotent(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.tokens.On("Delete", ctx, mock.AnythingOfType("string")).Return(nil)

	assert.NoError(t, f.svc.Logout(ctx, "some-refresh-token"))
	assert.NoError(t, f.svc.Logout(ctx, "some-refresh-token"))

	f.tokens.AssertNumberOfCalls(t, "Delete", 2)
}

func TestLogout_EmptyTokenNoop(t *testing.T) {
	f := newAuthFixture()

	assert.NoError(t, f.svc.Logout(context.Background(), ""))
	f.tokens.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// --- ChangeUserPassword ---

func TestChangeUserPassword_RevokesAllSessions(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, int64(7)).Return(activeUser(t), nil)
	f.users.On("UpdatePassword", ctx, int64(7), mock.AnythingOfType("string")).Return(nil)
	f.tokens.On("DeleteByPrincipal", ctx, int64(7), domain.KindUser).Return(nil)

	err := f.svc.ChangeUserPassword(ctx, 7, "correct horse", "battery staple")

	require.NoError(t, err)
	f.tokens.AssertCalled(t, "DeleteByPrincipal", ctx, int64(7), domain.KindUser)
	f.users.AssertExpectations(t)
}

func TestChangeUserPassword_WrongCurrent(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, int64(7)).Return(activeUser(t), nil)

	err := f.svc.ChangeUserPassword(ctx, 7, "wrong", "battery staple")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	f.tokens.AssertNotCalled(t, "DeleteByPrincipal", mock.Anything, mock.Anything, mock.Anything)
}
