package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pollsight/datahub/internal/model"
	"pollsight/datahub/internal/repository"
	"pollsight/datahub/pkg/crypto"
)

type InviteService interface {
	CreateInviteCode(ctx context.Context, createdBy uuid.UUID, maxUses int, expiresAt *time.Time) (*model.InviteCode, error)
	ListInviteCodes(ctx context.Context) ([]model.InviteCode, error)
	// Redeem consumes one use of the code, failing when it is unknown,
	// expired, or exhausted.
	Redeem(ctx context.Context, code string) error
}

type inviteService struct {
	inviteRepo repository.InviteCodeRepository
}

func NewInviteService(inviteRepo repository.InviteCodeRepository) InviteService {
	return &inviteService{inviteRepo: inviteRepo}
}

func (s *inviteService) CreateInviteCode(ctx context.Context, createdBy uuid.UUID, maxUses int, expiresAt *time.Time) (*model.InviteCode, error) {
	if maxUses <= 0 {
		maxUses = 1
	}

	code, err := crypto.GenerateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("generate invite code: %w", err)
	}

	inviteCode := &model.InviteCode{
		Code:      code,
		MaxUses:   maxUses,
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
	}
	if err := s.inviteRepo.Create(ctx, inviteCode); err != nil {
		return nil, fmt.Errorf("create invite code: %w", err)
	}
	return inviteCode, nil
}

func (s *inviteService) ListInviteCodes(ctx context.Context) ([]model.InviteCode, error) {
	return s.inviteRepo.List(ctx)
}

func (s *inviteService) Redeem(ctx context.Context, code string) error {
	inviteCode, err := s.inviteRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteCodeInvalid
		}
		return fmt.Errorf("lookup invite code: %w", err)
	}

	now := time.Now()
	if inviteCode.UsedCount >= inviteCode.MaxUses {
		return ErrInviteCodeExhausted
	}
	if !inviteCode.Usable(now) {
		return ErrInviteCodeInvalid
	}
	return s.inviteRepo.IncrementUsedCount(ctx, code)
}
