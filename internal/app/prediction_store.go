package app

import (
	"context"

	"github.com/terraincognita07/cycleapp/internal/db"
	"github.com/terraincognita07/cycleapp/internal/models"
	"github.com/terraincognita07/cycleapp/internal/services"
)

// predictionStore exposes the gorm prediction repository to the reconciler.
type predictionStore struct {
	repo *db.PredictionRepository
}

func newPredictionStore(repo *db.PredictionRepository) *predictionStore {
	return &predictionStore{repo: repo}
}

func (store *predictionStore) ListUsersWithHistory(ctx context.Context) ([]models.User, error) {
	return store.repo.ListUsersWithHistory(ctx)
}

func (store *predictionStore) WithinUserTransaction(ctx context.Context, _ uint, fn func(services.PredictionWriter) error) error {
	return store.repo.Transaction(ctx, func(tx *db.PredictionTx) error {
		return fn(tx)
	})
}
