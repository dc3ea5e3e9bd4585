package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pollsight/datahub/internal/model"
	"pollsight/datahub/internal/repository"
	"pollsight/datahub/pkg/crypto"
	jwtpkg "pollsight/datahub/pkg/jwt"
)

const minPasswordLength = 8

// TokenSet represents a set of tokens returned after authentication.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthService interface {
	Register(ctx context.Context, phone, password, displayName, inviteCode string) (*model.User, error)
	Login(ctx context.Context, phone, password string) (*TokenSet, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	userRepo      repository.UserRepository
	inviteService InviteService
	stateStore    repository.StateStore
	jwtManager    *jwtpkg.Manager
	inviteEnabled bool
}

func NewAuthService(
	userRepo repository.UserRepository,
	inviteService InviteService,
	stateStore repository.StateStore,
	jwtManager *jwtpkg.Manager,
	inviteEnabled bool,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		inviteService: inviteService,
		stateStore:    stateStore,
		jwtManager:    jwtManager,
		inviteEnabled: inviteEnabled,
	}
}

func (s *authService) Register(ctx context.Context, phone, password, displayName, inviteCode string) (*model.User, error) {
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	if existing, err := s.userRepo.GetByPhone(ctx, phone); err == nil && existing != nil {
		return nil, ErrPhoneAlreadyRegistered
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup phone: %w", err)
	}

	if s.inviteEnabled {
		if inviteCode == "" {
			return nil, ErrInviteCodeRequired
		}
		if err := s.inviteService.Redeem(ctx, inviteCode); err != nil {
			return nil, err
		}
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Phone:        phone,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         model.UserRoleViewer,
		Status:       model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, phone, password string) (*TokenSet, error) {
	user, err := s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup phone: %w", err)
	}

	if !crypto.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return nil, ErrRefreshTokenInvalid
	}

	// Refresh tokens are whitelisted by JTI; absent means revoked or rotated.
	active, err := s.stateStore.Exists(ctx, refreshKey(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("check refresh token: %w", err)
	}
	if !active {
		return nil, ErrRefreshTokenInvalid
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	// Rotation: the used token is retired before new ones are issued.
	if err := s.stateStore.Delete(ctx, refreshKey(claims.ID)); err != nil {
		return nil, fmt.Errorf("retire refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return ErrRefreshTokenInvalid
	}
	return s.stateStore.Delete(ctx, refreshKey(claims.ID))
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*TokenSet, error) {
	access, err := s.jwtManager.GenerateAccessToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, claims, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.stateStore.Set(ctx, refreshKey(claims.ID), []byte(user.ID.String()), s.jwtManager.RefreshTokenTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *authService) userFromClaims(ctx context.Context, claims *jwtpkg.Claims) (*model.User, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func refreshKey(jti string) string { return "refresh:" + jti }

// ensure authService implements AuthService
var _ AuthService = (*authService)(nil)
