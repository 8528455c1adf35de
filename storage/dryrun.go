package storage

import (
	"context"
	"strconv"

	"carbi-scraper/models"
	"carbi-scraper/utils"
)

// DryRunStore reads through to the wrapped store and only logs writes
type DryRunStore struct {
	Store
	logger *utils.Logger
}

// NewDryRunStore wraps store so that no mutation reaches the database
func NewDryRunStore(store Store, logger *utils.Logger) *DryRunStore {
	return &DryRunStore{Store: store, logger: logger}
}

func (s *DryRunStore) InsertCar(_ context.Context, c *models.Car) error {
	s.logger.Info("[dry-run] insert car %s dealer=%s price=%d group=%s", c.VRM, c.DealerID, c.Price, c.InsuranceGroup)
	return nil
}

func (s *DryRunStore) UpdateCar(_ context.Context, upd models.CarUpdate) error {
	price := "unchanged"
	if upd.Price != nil {
		price = strconv.FormatInt(*upd.Price, 10)
	}
	s.logger.Info("[dry-run] update car %s price=%s reactivate=%t", upd.VRM, price, upd.Reactivate)
	return nil
}

func (s *DryRunStore) MarkSold(_ context.Context, carID string) error {
	s.logger.Info("[dry-run] mark car %s sold", carID)
	return nil
}

func (s *DryRunStore) UpsertReview(_ context.Context, item *models.ReviewItem) error {
	s.logger.Info("[dry-run] review %s dealer=%s reason=%q", item.ListingKey, item.DealerID, item.Reason)
	return nil
}
