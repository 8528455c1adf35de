package models

import "time"

// Dealer is a site to crawl
type Dealer struct {
	ID      string
	Website string
}

// TargetModel carries the buying rules configured for one target model
type TargetModel struct {
	ID                string
	ForbiddenKeywords []string
	MaxPrice          *int64 // nil when the model has no ceiling
}

// InsuranceRule maps titles containing every MustContain keyword to a group
type InsuranceRule struct {
	ID             string
	MustContain    []string
	InsuranceGroup string
	Position       int
}

// CarStatus is the lifecycle state of a persisted car
type CarStatus string

const (
	CarActive CarStatus = "active"
	CarSold   CarStatus = "sold"
)

// Car is a persisted inventory row, identified by (DealerID, VRM)
type Car struct {
	ID             string
	DealerID       string
	VRM            string
	Title          string
	Price          int64
	Mileage        int
	Year           int
	ImageURL       string
	Transmission   string
	Fuel           string
	Doors          int
	InsuranceGroup string
	Status         CarStatus
	LastSeen       time.Time
}

// CarUpdate is the set of fields refreshed when a known car is observed again.
// Price is nil when unchanged.
type CarUpdate struct {
	ID         string
	VRM        string
	LastSeen   time.Time
	Price      *int64
	Reactivate bool
}
