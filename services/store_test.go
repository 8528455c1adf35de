package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"carbi-scraper/models"
	"carbi-scraper/storage"
)

// memStore is an in-memory storage.Store for tests
type memStore struct {
	mu      sync.Mutex
	dealers []models.Dealer
	targets []models.TargetModel
	rules   []models.InsuranceRule
	cars    map[string]*models.Car
	reviews map[string]*models.ReviewItem

	loadErr   error
	failWrite map[string]bool // VRMs or car IDs whose writes fail
}

var _ storage.Store = (*memStore)(nil)

var errWrite = errors.New("write failed")

func newMemStore() *memStore {
	return &memStore{
		cars:      make(map[string]*models.Car),
		reviews:   make(map[string]*models.ReviewItem),
		failWrite: make(map[string]bool),
	}
}

func (s *memStore) addCar(c models.Car) {
	s.cars[c.ID] = &c
}

func (s *memStore) LoadDealers(context.Context) ([]models.Dealer, error) {
	return s.dealers, s.loadErr
}

func (s *memStore) LoadTargetModels(context.Context) ([]models.TargetModel, error) {
	return s.targets, s.loadErr
}

func (s *memStore) LoadInsuranceRules(context.Context) ([]models.InsuranceRule, error) {
	return s.rules, s.loadErr
}

func (s *memStore) LoadKnownCars(context.Context) ([]models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Car
	for _, c := range s.cars {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, s.loadErr
}

func (s *memStore) InsertCar(_ context.Context, c *models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite[c.VRM] {
		return errWrite
	}
	cp := *c
	s.cars[c.ID] = &cp
	return nil
}

func (s *memStore) UpdateCar(_ context.Context, upd models.CarUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite[upd.ID] {
		return errWrite
	}
	c, ok := s.cars[upd.ID]
	if !ok {
		return storage.ErrCarNotFound
	}
	c.LastSeen = upd.LastSeen
	if upd.Price != nil {
		c.Price = *upd.Price
	}
	if upd.Reactivate {
		c.Status = models.CarActive
	}
	return nil
}

func (s *memStore) MarkSold(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite[id] {
		return errWrite
	}
	if c, ok := s.cars[id]; ok && c.Status == models.CarActive {
		c.Status = models.CarSold
	}
	return nil
}

func (s *memStore) UpsertReview(_ context.Context, item *models.ReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := item.DealerID + "/" + item.ListingKey
	if prev, ok := s.reviews[key]; ok {
		prev.Price = item.Price
		return nil
	}
	cp := *item
	s.reviews[key] = &cp
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) carByVRM(dealerID, vrm string) *models.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cars {
		if c.DealerID == dealerID && c.VRM == vrm {
			return c
		}
	}
	return nil
}

func (s *memStore) reviewTitles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.reviews {
		out = append(out, r.Title)
	}
	sort.Strings(out)
	return out
}
