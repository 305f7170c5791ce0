package db

import (
	"context"

	"github.com/terraincognita07/cycleapp/internal/models"
	"gorm.io/gorm"
)

type PeriodRepository struct {
	database *gorm.DB
}

func NewPeriodRepository(database *gorm.DB) *PeriodRepository {
	return &PeriodRepository{database: database}
}

func (repo *PeriodRepository) List(ctx context.Context, userID uint, filter models.PeriodFilter) ([]models.Period, error) {
	query := repo.database.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Predicted != nil {
		query = query.Where("is_predicted = ?", *filter.Predicted)
	}
	if filter.From != nil {
		query = query.Where("start_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("start_date <= ?", filter.To.UTC())
	}
	if filter.RequireEnd {
		query = query.Where("end_date IS NOT NULL")
	}
	if filter.Descending {
		query = query.Order("start_date DESC").Order("id DESC")
	} else {
		query = query.Order("start_date ASC").Order("id ASC")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	periods := make([]models.Period, 0)
	if err := query.Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

func (repo *PeriodRepository) FindActive(ctx context.Context, userID uint) (models.Period, error) {
	var period models.Period
	if err := repo.database.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND is_predicted = ?", userID, true, false).
		Order("start_date DESC").
		First(&period).Error; err != nil {
		return models.Period{}, err
	}
	return period, nil
}

func (repo *PeriodRepository) Create(ctx context.Context, period *models.Period) error {
	return repo.database.WithContext(ctx).Create(period).Error
}

func (repo *PeriodRepository) Save(ctx context.Context, period *models.Period) error {
	return repo.database.WithContext(ctx).Save(period).Error
}

type OvulationRepository struct {
	database *gorm.DB
}

func NewOvulationRepository(database *gorm.DB) *OvulationRepository {
	return &OvulationRepository{database: database}
}

func (repo *OvulationRepository) List(ctx context.Context, userID uint, filter models.OvulationFilter) ([]models.Ovulation, error) {
	query := repo.database.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Predicted != nil {
		query = query.Where("is_predicted = ?", *filter.Predicted)
	}
	if filter.From != nil {
		query = query.Where("start_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("start_date <= ?", filter.To.UTC())
	}

	ovulations := make([]models.Ovulation, 0)
	if err := query.Order("start_date ASC").Order("id ASC").Find(&ovulations).Error; err != nil {
		return nil, err
	}
	return ovulations, nil
}

func (repo *OvulationRepository) Create(ctx context.Context, ovulation *models.Ovulation) error {
	return repo.database.WithContext(ctx).Create(ovulation).Error
}
