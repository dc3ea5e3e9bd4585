package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pollsight/datahub/internal/model"
	"pollsight/datahub/internal/repository"
)

// ConstituencyDetail bundles a constituency with its vote-share table for one
// election year, ordered by descending share.
type ConstituencyDetail struct {
	Constituency model.Constituency `json:"constituency"`
	Year         int                `json:"year"`
	Results      []model.Result     `json:"results"`
	Turnout      float64            `json:"turnout"`
}

type ElectionService interface {
	ListConstituencies(ctx context.Context, region string) ([]model.Constituency, error)
	GetConstituency(ctx context.Context, code string, year int) (*ConstituencyDetail, error)
	Years(ctx context.Context) ([]int, error)
	SearchContacts(ctx context.Context, constituencyCode, query string) ([]model.Contact, error)
}

type electionService struct {
	constituencyRepo repository.ConstituencyRepository
	resultRepo       repository.ResultRepository
	contactRepo      repository.ContactRepository
}

func NewElectionService(
	constituencyRepo repository.ConstituencyRepository,
	resultRepo repository.ResultRepository,
	contactRepo repository.ContactRepository,
) ElectionService {
	return &electionService{
		constituencyRepo: constituencyRepo,
		resultRepo:       resultRepo,
		contactRepo:      contactRepo,
	}
}

func (s *electionService) ListConstituencies(ctx context.Context, region string) ([]model.Constituency, error) {
	return s.constituencyRepo.List(ctx, region)
}

func (s *electionService) GetConstituency(ctx context.Context, code string, year int) (*ConstituencyDetail, error) {
	constituency, err := s.constituencyRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConstituencyNotFound
		}
		return nil, fmt.Errorf("lookup constituency: %w", err)
	}

	if year == 0 {
		years, err := s.resultRepo.Years(ctx)
		if err != nil {
			return nil, fmt.Errorf("list years: %w", err)
		}
		if len(years) > 0 {
			year = years[0]
		}
	}

	results, err := s.resultRepo.ListByConstituency(ctx, code, year)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	detail := &ConstituencyDetail{
		Constituency: *constituency,
		Year:         year,
		Results:      results,
	}
	if constituency.RegisteredVoters > 0 {
		var cast int
		for _, res := range results {
			cast += res.Votes
		}
		detail.Turnout = float64(cast) / float64(constituency.RegisteredVoters) * 100
	}
	return detail, nil
}

func (s *electionService) Years(ctx context.Context) ([]int, error) {
	return s.resultRepo.Years(ctx)
}

func (s *electionService) SearchContacts(ctx context.Context, constituencyCode, query string) ([]model.Contact, error) {
	return s.contactRepo.Search(ctx, constituencyCode, query)
}
