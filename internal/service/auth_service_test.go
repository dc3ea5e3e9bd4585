package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pollsight/datahub/internal/model"
	"pollsight/datahub/internal/repository"
	"pollsight/datahub/pkg/crypto"
	jwtpkg "pollsight/datahub/pkg/jwt"
)

type fakeUserRepo struct {
	byPhone map[string]*model.User
	byID    map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byPhone: make(map[string]*model.User),
		byID:    make(map[uuid.UUID]*model.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.byPhone[user.Phone] = user
	r.byID[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByPhone(_ context.Context, phone string) (*model.User, error) {
	user, ok := r.byPhone[phone]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.byPhone[user.Phone] = user
	r.byID[user.ID] = user
	return nil
}

type fakeInviteService struct {
	redeemErr error
	redeemed  []string
}

func (s *fakeInviteService) CreateInviteCode(context.Context, uuid.UUID, int, *time.Time) (*model.InviteCode, error) {
	panic("not used")
}

func (s *fakeInviteService) ListInviteCodes(context.Context) ([]model.InviteCode, error) {
	panic("not used")
}

func (s *fakeInviteService) Redeem(_ context.Context, code string) error {
	if s.redeemErr != nil {
		return s.redeemErr
	}
	s.redeemed = append(s.redeemed, code)
	return nil
}

func newTestAuthService(t *testing.T, inviteEnabled bool, invites *fakeInviteService) (AuthService, *fakeUserRepo, repository.StateStore) {
	t.Helper()
	userRepo := newFakeUserRepo()
	stateStore := repository.NewMemoryStateStore()
	jwtManager := jwtpkg.NewManager("test-key", "datahub-test", 15*time.Minute, 24*time.Hour)
	if invites == nil {
		invites = &fakeInviteService{}
	}
	return NewAuthService(userRepo, invites, stateStore, jwtManager, inviteEnabled), userRepo, stateStore
}

func registerUser(t *testing.T, svc AuthService, phone, password string) *model.User {
	t.Helper()
	user, err := svc.Register(context.Background(), phone, password, "Test User", "")
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	svc, repo, _ := newTestAuthService(t, false, nil)

	user := registerUser(t, svc, "13800000001", "password123")
	assert.Equal(t, model.UserRoleViewer, user.Role)
	assert.Equal(t, model.UserStatusActive, user.Status)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, crypto.CheckPassword("password123", user.PasswordHash))

	stored, err := repo.GetByPhone(context.Background(), "13800000001")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t, false, nil)

	_, err := svc.Register(context.Background(), "13800000001", "short", "Test", "")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterRejectsDuplicatePhone(t *testing.T) {
	svc, _, _ := newTestAuthService(t, false, nil)
	registerUser(t, svc, "13800000001", "password123")

	_, err := svc.Register(context.Background(), "13800000001", "password456", "Other", "")
	assert.ErrorIs(t, err, ErrPhoneAlreadyRegistered)
}

func TestRegisterWithInviteCode(t *testing.T) {
	invites := &fakeInviteService{}
	svc, _, _ := newTestAuthService(t, true, invites)

	_, err := svc.Register(context.Background(), "13800000001", "password123", "Test", "")
	assert.ErrorIs(t, err, ErrInviteCodeRequired)

	invites.redeemErr = ErrInviteCodeInvalid
	_, err = svc.Register(context.Background(), "13800000001", "password123", "Test", "bad-code")
	assert.ErrorIs(t, err, ErrInviteCodeInvalid)

	invites.redeemErr = nil
	_, err = svc.Register(context.Background(), "13800000001", "password123", "Test", "good-code")
	require.NoError(t, err)
	assert.Equal(t, []string{"good-code"}, invites.redeemed)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestAuthService(t, false, nil)
	registerUser(t, svc, "13800000001", "password123")

	tokens, err := svc.Login(context.Background(), "13800000001", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), tokens.ExpiresIn)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestAuthService(t, false, nil)
	registerUser(t, svc, "13800000001", "password123")

	_, err := svc.Login(context.Background(), "13800000001", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "13800009999", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	svc, repo, _ := newTestAuthService(t, false, nil)
	user := registerUser(t, svc, "13800000001", "password123")

	user.Status = model.UserStatusDisabled
	require.NoError(t, repo.Update(context.Background(), user))

	_, err := svc.Login(context.Background(), "13800000001", "password123")
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, _, _ := newTestAuthService(t, false, nil)
	registerUser(t, svc, "13800000001", "password123")

	tokens, err := svc.Login(context.Background(), "13800000001", "password123")
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The old refresh token was retired by the rotation.
	_, err = svc.RefreshToken(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	// The new one still works.
	_, err = svc.RefreshToken(context.Background(), rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t, false, nil)
	registerUser(t, svc, "13800000001", "password123")

	tokens, err := svc.Login(context.Background(), "13800000001", "password123")
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), tokens.AccessToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestRefreshTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestAuthService(t, false, nil)

	_, err := svc.RefreshToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t, false, nil)
	registerUser(t, svc, "13800000001", "password123")

	tokens, err := svc.Login(context.Background(), "13800000001", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), tokens.RefreshToken))

	_, err = svc.RefreshToken(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}
