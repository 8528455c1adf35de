package services

import (
	"context"
	"sort"
	"time"

	"carbi-scraper/models"
	"carbi-scraper/storage"
	"carbi-scraper/utils"

	"github.com/google/uuid"
)

// Observation is an accepted listing together with its resolved group
type Observation struct {
	Listing        *models.RawListing
	InsuranceGroup string
}

// Plan is the set of mutations that brings one dealer's inventory in line
// with what was observed on its site this run
type Plan struct {
	DealerID   string
	Inserts    []*models.Car
	Updates    []models.CarUpdate
	Sold       []*models.Car
	Duplicates int
}

// Empty reports whether the plan changes nothing
func (p *Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0 && len(p.Sold) == 0
}

// ApplyResult counts the mutations written by Apply
type ApplyResult struct {
	Inserted int
	Updated  int
	Relisted int
	Sold     int
	Errors   int
}

// Reconciler diffs observed listings against the known inventory
type Reconciler struct {
	store  storage.InventoryWriter
	logger *utils.Logger
	newID  func() string
}

// NewReconciler creates a new Reconciler
func NewReconciler(store storage.InventoryWriter, logger *utils.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger, newID: uuid.NewString}
}

// Plan computes the mutations for one dealer. known holds the dealer's
// persisted cars (active and sold) keyed by VRM and is not modified.
//
// A known car that is observed again gets last_seen refreshed, its price
// updated if it changed, and is reactivated if it was sold. Title, mileage and
// the other descriptive fields are never rewritten. An unknown VRM becomes a
// new active car. Every active car that was not observed is marked sold.
func (r *Reconciler) Plan(dealerID string, observed []Observation, known map[string]*models.Car, now time.Time) *Plan {
	plan := &Plan{DealerID: dealerID}
	seen := utils.NewKeyTracker()

	for _, obs := range observed {
		l := obs.Listing
		if !seen.Add(l.VRM) {
			plan.Duplicates++
			r.logger.Debug("Duplicate %s on dealer %s, keeping first observation", l.VRM, dealerID)
			continue
		}

		if car, ok := known[l.VRM]; ok {
			upd := models.CarUpdate{ID: car.ID, VRM: car.VRM, LastSeen: now}
			if car.Price != l.Price {
				price := l.Price
				upd.Price = &price
			}
			if car.Status == models.CarSold {
				upd.Reactivate = true
			}
			plan.Updates = append(plan.Updates, upd)
			continue
		}

		plan.Inserts = append(plan.Inserts, &models.Car{
			ID:             r.newID(),
			DealerID:       dealerID,
			VRM:            l.VRM,
			Title:          l.Title,
			Price:          l.Price,
			Mileage:        l.Mileage,
			Year:           l.Year,
			ImageURL:       l.ImageURL,
			Transmission:   l.Transmission,
			Fuel:           l.Fuel,
			Doors:          l.Doors,
			InsuranceGroup: obs.InsuranceGroup,
			Status:         models.CarActive,
			LastSeen:       now,
		})
	}

	for vrm, car := range known {
		if car.Status == models.CarActive && !seen.Has(vrm) {
			plan.Sold = append(plan.Sold, car)
		}
	}
	sort.Slice(plan.Sold, func(i, j int) bool { return plan.Sold[i].VRM < plan.Sold[j].VRM })

	return plan
}

// Apply writes the plan row by row. A failed row is logged and counted; it
// does not stop the remaining writes.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) ApplyResult {
	var res ApplyResult

	for _, car := range plan.Inserts {
		if err := r.store.InsertCar(ctx, car); err != nil {
			r.logger.Error("Insert %s failed: %v", car.VRM, err)
			res.Errors++
			continue
		}
		r.logger.Info("New car found: %s (%s, £%d, group %s)", car.VRM, car.Title, car.Price, car.InsuranceGroup)
		res.Inserted++
	}

	for _, upd := range plan.Updates {
		if err := r.store.UpdateCar(ctx, upd); err != nil {
			r.logger.Error("Update %s failed: %v", upd.VRM, err)
			res.Errors++
			continue
		}
		if upd.Price != nil {
			r.logger.Info("Price change for %s: now £%d", upd.VRM, *upd.Price)
		}
		if upd.Reactivate {
			r.logger.Info("Re-listed: %s", upd.VRM)
			res.Relisted++
		}
		res.Updated++
	}

	for _, car := range plan.Sold {
		if err := r.store.MarkSold(ctx, car.ID); err != nil {
			r.logger.Error("Mark sold %s failed: %v", car.VRM, err)
			res.Errors++
			continue
		}
		r.logger.Info("Marking as SOLD: %s", car.VRM)
		res.Sold++
	}

	return res
}
