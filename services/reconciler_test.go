package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"carbi-scraper/models"
	"carbi-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	yesterday = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	today     = time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
)

func newTestReconciler(store *memStore) *Reconciler {
	r := NewReconciler(store, utils.NewNopLogger())
	n := 0
	r.newID = func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
	return r
}

func observe(vrm, title string, price int64, group string) Observation {
	return Observation{
		Listing:        &models.RawListing{DealerID: "d1", VRM: vrm, Title: title, Price: price, HasReliableKey: true},
		InsuranceGroup: group,
	}
}

func knownByVRM(cars ...models.Car) map[string]*models.Car {
	out := make(map[string]*models.Car)
	for i := range cars {
		out[cars[i].VRM] = &cars[i]
	}
	return out
}

func TestPlanInsertsNewAndSellsMissing(t *testing.T) {
	r := newTestReconciler(newMemStore())
	known := knownByVRM(models.Car{ID: "c1", DealerID: "d1", VRM: "XY99ZZZ", Price: 3000, Status: models.CarActive})

	plan := r.Plan("d1", []Observation{observe("AB12CDE", "Ford Focus", 4500, "15")}, known, today)

	require.Len(t, plan.Inserts, 1)
	ins := plan.Inserts[0]
	assert.Equal(t, "new-1", ins.ID)
	assert.Equal(t, "AB12CDE", ins.VRM)
	assert.Equal(t, "d1", ins.DealerID)
	assert.Equal(t, "15", ins.InsuranceGroup)
	assert.Equal(t, models.CarActive, ins.Status)
	assert.Equal(t, today, ins.LastSeen)

	assert.Empty(t, plan.Updates)
	require.Len(t, plan.Sold, 1)
	assert.Equal(t, "c1", plan.Sold[0].ID)
	assert.False(t, plan.Empty())
}

func TestPlanUnchangedCarOnlyRefreshesLastSeen(t *testing.T) {
	r := newTestReconciler(newMemStore())
	known := knownByVRM(models.Car{ID: "c1", DealerID: "d1", VRM: "AB12CDE", Price: 4500, Status: models.CarActive})

	plan := r.Plan("d1", []Observation{observe("AB12CDE", "Ford Focus", 4500, "15")}, known, today)

	require.Len(t, plan.Updates, 1)
	upd := plan.Updates[0]
	assert.Equal(t, "c1", upd.ID)
	assert.Equal(t, today, upd.LastSeen)
	assert.Nil(t, upd.Price)
	assert.False(t, upd.Reactivate)
	assert.Empty(t, plan.Inserts)
	assert.Empty(t, plan.Sold)
}

func TestPlanReactivatesSoldCarWithNewPrice(t *testing.T) {
	r := newTestReconciler(newMemStore())
	known := knownByVRM(models.Car{ID: "c1", DealerID: "d1", VRM: "AB12CDE", Price: 4500, Status: models.CarSold})

	plan := r.Plan("d1", []Observation{observe("AB12CDE", "Ford Focus", 4200, "15")}, known, today)

	require.Len(t, plan.Updates, 1)
	upd := plan.Updates[0]
	require.NotNil(t, upd.Price)
	assert.Equal(t, int64(4200), *upd.Price)
	assert.True(t, upd.Reactivate)
}

func TestPlanLeavesUnseenSoldCarsAlone(t *testing.T) {
	r := newTestReconciler(newMemStore())
	known := knownByVRM(
		models.Car{ID: "c1", DealerID: "d1", VRM: "AB12CDE", Status: models.CarSold},
		models.Car{ID: "c2", DealerID: "d1", VRM: "CD34EFG", Status: models.CarActive},
		models.Car{ID: "c3", DealerID: "d1", VRM: "BB11BBB", Status: models.CarActive},
	)

	plan := r.Plan("d1", nil, known, today)

	require.Len(t, plan.Sold, 2)
	assert.Equal(t, "BB11BBB", plan.Sold[0].VRM)
	assert.Equal(t, "CD34EFG", plan.Sold[1].VRM)
}

func TestPlanKeepsFirstOfDuplicateVRMs(t *testing.T) {
	r := newTestReconciler(newMemStore())

	plan := r.Plan("d1", []Observation{
		observe("AB12CDE", "Ford Focus", 4500, "15"),
		observe("AB12CDE", "Ford Focus", 9999, "15"),
	}, nil, today)

	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, int64(4500), plan.Inserts[0].Price)
	assert.Equal(t, 1, plan.Duplicates)
}

func TestPlanEmpty(t *testing.T) {
	r := newTestReconciler(newMemStore())
	assert.True(t, r.Plan("d1", nil, nil, today).Empty())
}

func TestApplyWritesPlan(t *testing.T) {
	store := newMemStore()
	store.addCar(models.Car{ID: "c1", DealerID: "d1", VRM: "XY99ZZZ", Price: 3000, Status: models.CarActive, LastSeen: yesterday})
	store.addCar(models.Car{ID: "c2", DealerID: "d1", VRM: "KL63MNO", Price: 5000, Status: models.CarSold, LastSeen: yesterday})
	r := newTestReconciler(store)

	known, err := store.LoadKnownCars(context.Background())
	require.NoError(t, err)
	byVRM := make(map[string]*models.Car)
	for i := range known {
		byVRM[known[i].VRM] = &known[i]
	}

	plan := r.Plan("d1", []Observation{
		observe("AB12CDE", "Ford Focus", 4500, "15"),
		observe("KL63MNO", "Ford Fiesta", 4800, "12"),
	}, byVRM, today)
	res := r.Apply(context.Background(), plan)

	assert.Equal(t, ApplyResult{Inserted: 1, Updated: 1, Relisted: 1, Sold: 1}, res)

	assert.Equal(t, models.CarSold, store.carByVRM("d1", "XY99ZZZ").Status)

	relisted := store.carByVRM("d1", "KL63MNO")
	assert.Equal(t, models.CarActive, relisted.Status)
	assert.Equal(t, int64(4800), relisted.Price)
	assert.Equal(t, today, relisted.LastSeen)

	inserted := store.carByVRM("d1", "AB12CDE")
	require.NotNil(t, inserted)
	assert.Equal(t, "15", inserted.InsuranceGroup)
}

func TestApplyCountsRowErrorsAndContinues(t *testing.T) {
	store := newMemStore()
	store.addCar(models.Car{ID: "c1", DealerID: "d1", VRM: "XY99ZZZ", Status: models.CarActive})
	store.addCar(models.Car{ID: "c2", DealerID: "d1", VRM: "CD34EFG", Status: models.CarActive})
	store.failWrite["AB12CDE"] = true
	store.failWrite["c1"] = true
	r := newTestReconciler(store)

	known := knownByVRM(
		models.Car{ID: "c1", DealerID: "d1", VRM: "XY99ZZZ", Status: models.CarActive},
		models.Car{ID: "c2", DealerID: "d1", VRM: "CD34EFG", Status: models.CarActive},
	)
	plan := r.Plan("d1", []Observation{
		observe("AB12CDE", "Ford Focus", 4500, "15"),
		observe("EF56GHI", "Ford Ka", 2500, "5"),
	}, known, today)
	res := r.Apply(context.Background(), plan)

	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Sold)
	assert.Equal(t, 2, res.Errors)
	assert.Nil(t, store.carByVRM("d1", "AB12CDE"))
	assert.Equal(t, models.CarActive, store.carByVRM("d1", "XY99ZZZ").Status)
	assert.Equal(t, models.CarSold, store.carByVRM("d1", "CD34EFG").Status)
}
