package db

import (
	"context"
	"time"

	"github.com/terraincognita07/cycleapp/internal/models"
	"gorm.io/gorm"
)

// PredictionRepository backs the reconciliation job: it loads users with
// history and scopes each user's writes to one transaction.
type PredictionRepository struct {
	database *gorm.DB
	users    *UserRepository
}

func NewPredictionRepository(database *gorm.DB) *PredictionRepository {
	return &PredictionRepository{database: database, users: NewUserRepository(database)}
}

func (repo *PredictionRepository) ListUsersWithHistory(ctx context.Context) ([]models.User, error) {
	return repo.users.ListWithHistory(ctx)
}

// Transaction commits when fn returns nil and rolls back otherwise.
func (repo *PredictionRepository) Transaction(ctx context.Context, fn func(*PredictionTx) error) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PredictionTx{tx: tx})
	})
}

type PredictionTx struct {
	tx *gorm.DB
}

func (writer *PredictionTx) SaveCycleVariations(user *models.User) error {
	return writer.tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"min_cycle_length":            user.MinCycleLength,
		"max_cycle_length":            user.MaxCycleLength,
		"min_period_length":           user.MinPeriodLength,
		"max_period_length":           user.MaxPeriodLength,
		"last_cycle_variation_update": user.LastCycleVariationUpdate,
	}).Error
}

func (writer *PredictionTx) DeleteStalePredictions(userID uint, now time.Time) (int64, error) {
	periods := writer.tx.
		Where("user_id = ? AND is_predicted = ? AND start_date < ?", userID, true, now.UTC()).
		Delete(&models.Period{})
	if periods.Error != nil {
		return 0, periods.Error
	}
	ovulations := writer.tx.
		Where("user_id = ? AND is_predicted = ? AND start_date < ?", userID, true, now.UTC()).
		Delete(&models.Ovulation{})
	if ovulations.Error != nil {
		return 0, ovulations.Error
	}
	return periods.RowsAffected + ovulations.RowsAffected, nil
}

func (writer *PredictionTx) PredictedPeriodExists(userID uint, start time.Time) (bool, error) {
	var count int64
	if err := writer.tx.Model(&models.Period{}).
		Where("user_id = ? AND is_predicted = ? AND start_date = ?", userID, true, start.UTC()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (writer *PredictionTx) PredictedOvulationExists(userID uint, start time.Time) (bool, error) {
	var count int64
	if err := writer.tx.Model(&models.Ovulation{}).
		Where("user_id = ? AND is_predicted = ? AND start_date = ?", userID, true, start.UTC()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// EarliestPredictedPeriodStart reports the first stored forecast start for userID.
func (writer *PredictionTx) EarliestPredictedPeriodStart(userID uint) (time.Time, bool, error) {
	var periods []models.Period
	if err := writer.tx.
		Where("user_id = ? AND is_predicted = ?", userID, true).
		Order("start_date ASC").
		Limit(1).
		Find(&periods).Error; err != nil {
		return time.Time{}, false, err
	}
	if len(periods) == 0 {
		return time.Time{}, false, nil
	}
	return periods[0].StartDate, true, nil
}

func (writer *PredictionTx) CreatePeriod(period *models.Period) error {
	return writer.tx.Create(period).Error
}

func (writer *PredictionTx) CreateOvulation(ovulation *models.Ovulation) error {
	return writer.tx.Create(ovulation).Error
}
