package storage

import (
	"context"

	"carbi-scraper/models"
)

// ConfigReader loads the per-run configuration and the known inventory
type ConfigReader interface {
	LoadDealers(ctx context.Context) ([]models.Dealer, error)
	LoadTargetModels(ctx context.Context) ([]models.TargetModel, error)
	LoadInsuranceRules(ctx context.Context) ([]models.InsuranceRule, error)
	LoadKnownCars(ctx context.Context) ([]models.Car, error)
}

// InventoryWriter applies single-row inventory mutations
type InventoryWriter interface {
	InsertCar(ctx context.Context, car *models.Car) error
	UpdateCar(ctx context.Context, update models.CarUpdate) error
	MarkSold(ctx context.Context, carID string) error
}

// ReviewWriter stores listings that need a human decision
type ReviewWriter interface {
	UpsertReview(ctx context.Context, item *models.ReviewItem) error
}

// Store is everything a scraper run needs from the database
type Store interface {
	ConfigReader
	InventoryWriter
	ReviewWriter
	Close() error
}
