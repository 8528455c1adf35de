package models

import "time"

// DealerResult holds the counters of one dealer iteration
type DealerResult struct {
	DealerID    string
	Website     string
	Found       int
	Rejected    int
	Review      int
	Accepted    int
	Inserted    int
	Updated     int
	Relisted    int
	Sold        int
	WriteErrors int
	Err         error
	Duration    time.Duration
}

// Failed reports whether the dealer was skipped
func (r *DealerResult) Failed() bool { return r.Err != nil }

// RunReport is the outcome of one scraper run
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Dealers    []*DealerResult
	Raw        []*RawListing
}

// RunSummary holds totals computed from a RunReport
type RunSummary struct {
	Dealers        int
	FailedDealers  int
	Found          int
	Rejected       int
	Review         int
	Inserted       int
	Updated        int
	Relisted       int
	Sold           int
	WriteErrors    int
	AveragePrice   float64
	MinPrice       int64
	MaxPrice       int64
	ListingsByFuel map[string]int
	Busiest        []*DealerResult
}
