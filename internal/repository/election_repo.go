package repository

import (
	"context"

	"pollsight/datahub/internal/model"
)

type ConstituencyRepository interface {
	ReplaceAll(ctx context.Context, constituencies []model.Constituency) error
	List(ctx context.Context, region string) ([]model.Constituency, error)
	GetByCode(ctx context.Context, code string) (*model.Constituency, error)
}

type ResultRepository interface {
	UpsertBatch(ctx context.Context, results []model.Result) error
	ListByConstituency(ctx context.Context, code string, year int) ([]model.Result, error)
	Years(ctx context.Context) ([]int, error)
}

type ContactRepository interface {
	ReplaceAll(ctx context.Context, contacts []model.Contact) error
	Search(ctx context.Context, constituencyCode, query string) ([]model.Contact, error)
}
