package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pollsight/datahub/internal/model"
)

type pgConstituencyRepository struct {
	db *gorm.DB
}

func NewPGConstituencyRepository(db *gorm.DB) ConstituencyRepository {
	return &pgConstituencyRepository{db: db}
}

// ReplaceAll swaps the full constituency set in one transaction so readers
// never observe a partially loaded dataset.
func (r *pgConstituencyRepository) ReplaceAll(ctx context.Context, constituencies []model.Constituency) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Constituency{}).Error; err != nil {
			return err
		}
		if len(constituencies) == 0 {
			return nil
		}
		return tx.CreateInBatches(constituencies, 200).Error
	})
}

func (r *pgConstituencyRepository) List(ctx context.Context, region string) ([]model.Constituency, error) {
	q := r.db.WithContext(ctx).Order("code")
	if region != "" {
		q = q.Where("region = ?", region)
	}
	var constituencies []model.Constituency
	if err := q.Find(&constituencies).Error; err != nil {
		return nil, err
	}
	return constituencies, nil
}

func (r *pgConstituencyRepository) GetByCode(ctx context.Context, code string) (*model.Constituency, error) {
	var constituency model.Constituency
	if err := r.db.WithContext(ctx).First(&constituency, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &constituency, nil
}

type pgResultRepository struct {
	db *gorm.DB
}

func NewPGResultRepository(db *gorm.DB) ResultRepository {
	return &pgResultRepository{db: db}
}

func (r *pgResultRepository) UpsertBatch(ctx context.Context, results []model.Result) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "constituency_code"}, {Name: "year"}, {Name: "party"}},
			DoUpdates: clause.AssignmentColumns([]string{"candidate", "votes", "vote_share", "updated_at"}),
		}).
		CreateInBatches(results, 200).Error
}

func (r *pgResultRepository) ListByConstituency(ctx context.Context, code string, year int) ([]model.Result, error) {
	q := r.db.WithContext(ctx).Where("constituency_code = ?", code).Order("vote_share DESC")
	if year > 0 {
		q = q.Where("year = ?", year)
	}
	var results []model.Result
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pgResultRepository) Years(ctx context.Context) ([]int, error) {
	var years []int
	if err := r.db.WithContext(ctx).
		Model(&model.Result{}).
		Distinct("year").
		Order("year DESC").
		Pluck("year", &years).Error; err != nil {
		return nil, err
	}
	return years, nil
}

type pgContactRepository struct {
	db *gorm.DB
}

func NewPGContactRepository(db *gorm.DB) ContactRepository {
	return &pgContactRepository{db: db}
}

func (r *pgContactRepository) ReplaceAll(ctx context.Context, contacts []model.Contact) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Contact{}).Error; err != nil {
			return err
		}
		if len(contacts) == 0 {
			return nil
		}
		return tx.CreateInBatches(contacts, 200).Error
	})
}

func (r *pgContactRepository) Search(ctx context.Context, constituencyCode, query string) ([]model.Contact, error) {
	q := r.db.WithContext(ctx).Order("office, name")
	if constituencyCode != "" {
		q = q.Where("constituency_code = ?", constituencyCode)
	}
	if query != "" {
		pattern := "%" + query + "%"
		q = q.Where("name ILIKE ? OR office ILIKE ?", pattern, pattern)
	}
	var contacts []model.Contact
	if err := q.Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}
