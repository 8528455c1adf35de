package models

import "time"

// RawListing represents a vehicle card extracted from a dealer page, before classification
type RawListing struct {
	DealerID     string
	VRM          string // normalized, e.g. "AB12CDE"; a placeholder when HasReliableKey is false
	Title        string
	Price        int64 // whole pounds
	Mileage      int
	Year         int
	ImageURL     string
	Transmission string
	Fuel         string
	Doors        int

	// HasReliableKey is false when no registration mark was found on the card
	// and VRM holds a synthetic placeholder that will never match a stored car.
	HasReliableKey bool

	ScrapedAt time.Time
}

// ReviewStatus is the lifecycle state of a review queue item
type ReviewStatus string

const ReviewPending ReviewStatus = "pending"

// ReviewItem is a listing that passed the filters but could not be placed
// into the inventory automatically, waiting for a human to classify it
type ReviewItem struct {
	DealerID     string
	VRM          string
	ListingKey   string
	Title        string
	Price        int64
	Mileage      int
	Year         int
	ImageURL     string
	Transmission string
	Fuel         string
	Doors        int
	Reason       string
	Status       ReviewStatus
	CreatedAt    time.Time
}

// NewReviewItem builds a pending review item from a raw listing
func NewReviewItem(l *RawListing, listingKey, reason string, now time.Time) *ReviewItem {
	return &ReviewItem{
		DealerID:     l.DealerID,
		VRM:          l.VRM,
		ListingKey:   listingKey,
		Title:        l.Title,
		Price:        l.Price,
		Mileage:      l.Mileage,
		Year:         l.Year,
		ImageURL:     l.ImageURL,
		Transmission: l.Transmission,
		Fuel:         l.Fuel,
		Doors:        l.Doors,
		Reason:       reason,
		Status:       ReviewPending,
		CreatedAt:    now,
	}
}
